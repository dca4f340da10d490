package namespace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store"
	"github.com/marmos91/dittodrive/pkg/store/memory"
)

func TestProjectListingFoldersBeforeFiles(t *testing.T) {
	raw := &store.Listing{
		Prefixes: []string{"docs/work/", "docs/archive/"},
		Keys:     []string{"docs/zz.txt", "docs/aa.txt"},
	}

	entries := ProjectListing("docs", raw)

	require.Len(t, entries, 4)
	// Folders first, source order preserved within each group.
	assert.Equal(t, Entry{Kind: KindFolder, Name: "work", Path: "docs/work"}, entries[0])
	assert.Equal(t, Entry{Kind: KindFolder, Name: "archive", Path: "docs/archive"}, entries[1])
	assert.Equal(t, "zz.txt", entries[2].Name)
	assert.Equal(t, "aa.txt", entries[3].Name)
}

func TestProjectListingFiltersPlaceholders(t *testing.T) {
	raw := &store.Listing{
		Prefixes: []string{"empty/"},
		Keys:     []string{Placeholder, "real.txt"},
	}

	entries := ProjectListing("", raw)

	require.Len(t, entries, 2)
	assert.Equal(t, "empty", entries[0].Name)
	assert.Equal(t, "real.txt", entries[1].Name)
}

// A flat key space can hold both "a" and "a/b": the projection must not emit
// two entries named "a".
func TestProjectListingNeverDuplicatesNames(t *testing.T) {
	raw := &store.Listing{
		Prefixes: []string{"a/"},
		Keys:     []string{"a"},
	}

	entries := ProjectListing("", raw)

	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsFolder())
}

func TestResolverListHydratesFiles(t *testing.T) {
	s := memory.NewMemoryStore()
	s.Seed("docs/report.pdf", []byte("0123456789"))
	s.Seed("docs/archive/"+Placeholder, nil)

	entries, err := NewResolver(s).List(context.Background(), "docs")
	require.NoError(t, err)

	require.Len(t, entries, 2)

	folder := entries[0]
	assert.True(t, folder.IsFolder())
	assert.Equal(t, "archive", folder.Name)
	assert.Equal(t, "docs/archive", folder.Path)
	assert.Zero(t, folder.Size)

	file := entries[1]
	assert.Equal(t, KindFile, file.Kind)
	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, uint64(10), file.Size)
	assert.False(t, file.UpdatedAt.IsZero())
	assert.Equal(t, "memory://docs/report.pdf", file.DownloadURL)
}

// A single file's metadata failure must fail the whole listing rather than
// silently dropping the file.
func TestResolverListFailsFastOnHydrationError(t *testing.T) {
	s := memory.NewMemoryStore()
	s.Seed("a.txt", []byte("a"))
	s.Seed("b.txt", []byte("b"))
	injected := errors.New("head exploded")
	s.FailHead["b.txt"] = injected

	_, err := NewResolver(s).List(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, injected)
}

func TestResolverListEmptyFolder(t *testing.T) {
	s := memory.NewMemoryStore()
	s.Seed("stuff/"+Placeholder, nil)

	entries, err := NewResolver(s).List(context.Background(), "stuff")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
