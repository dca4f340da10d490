package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/marmos91/dittodrive/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSplitsPrefixesAndKeys(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("docs/report.pdf", []byte("pdf"))
	s.Seed("docs/archive/old.txt", []byte("old"))
	s.Seed("docs/archive/deep/x.txt", []byte("x"))
	s.Seed("readme.txt", []byte("hi"))

	listing, err := s.List(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/archive/"}, listing.Prefixes)
	assert.Equal(t, []string{"docs/report.pdf"}, listing.Keys)
}

func TestListRoot(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("a.txt", []byte("a"))
	s.Seed("sub/b.txt", []byte("b"))

	listing, err := s.List(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"sub/"}, listing.Prefixes)
	assert.Equal(t, []string{"a.txt"}, listing.Keys)
}

func TestHeadNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Head(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrObjectNotFound)
}

func TestPutReportsProgress(t *testing.T) {
	s := NewMemoryStore()
	payload := bytes.Repeat([]byte("x"), 100*1024)

	var reports []int64
	err := s.Put(context.Background(), "big.bin", bytes.NewReader(payload), int64(len(payload)),
		func(transferred, total int64) {
			reports = append(reports, transferred)
		})
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	assert.Equal(t, int64(len(payload)), reports[len(reports)-1])

	info, err := s.Head(context.Background(), "big.bin")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), info.Size)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("a.txt", []byte("a"))

	require.NoError(t, s.Delete(context.Background(), "a.txt"))
	require.NoError(t, s.Delete(context.Background(), "a.txt"))
}

func TestCopyThenDeleteMovesBytes(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("src.txt", []byte("payload"))

	ctx := context.Background()
	require.NoError(t, s.Copy(ctx, "src.txt", "dst.txt"))
	require.NoError(t, s.Delete(ctx, "src.txt"))

	assert.Equal(t, []string{"dst.txt"}, s.Keys())
}

func TestDeleteBatchCollectsFailures(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("a.txt", []byte("a"))
	s.Seed("b.txt", []byte("b"))
	injected := errors.New("disk on fire")
	s.FailDelete["b.txt"] = injected

	failures, err := s.DeleteBatch(context.Background(), []string{"a.txt", "b.txt"})
	require.NoError(t, err)

	assert.Len(t, failures, 1)
	assert.ErrorIs(t, failures["b.txt"], injected)
	assert.Equal(t, []string{"b.txt"}, s.Keys())
}
