package cache

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store"
	"github.com/marmos91/dittodrive/pkg/store/memory"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Store, *memory.MemoryStore) {
	t.Helper()
	inner := memory.NewMemoryStore()
	c, err := New(inner, Config{TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, inner
}

func TestHeadServedFromCache(t *testing.T) {
	c, inner := newTestCache(t, time.Minute)
	inner.Seed("docs/a.txt", []byte("aaa"))

	first, err := c.Head(context.Background(), "docs/a.txt")
	require.NoError(t, err)
	second, err := c.Head(context.Background(), "docs/a.txt")
	require.NoError(t, err)

	assert.Equal(t, first.Size, second.Size)
	assert.Equal(t, 1, inner.Calls().Head, "second head must come from cache")
}

func TestListServedFromCache(t *testing.T) {
	c, inner := newTestCache(t, time.Minute)
	inner.Seed("docs/a.txt", []byte("a"))
	inner.Seed("docs/sub/.keep", nil)

	first, err := c.List(context.Background(), "docs")
	require.NoError(t, err)
	second, err := c.List(context.Background(), "docs")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.Calls().List)
}

func TestPutInvalidatesKeyAndParentListing(t *testing.T) {
	c, inner := newTestCache(t, time.Minute)
	inner.Seed("docs/a.txt", []byte("a"))

	_, err := c.List(context.Background(), "docs")
	require.NoError(t, err)
	_, err = c.Head(context.Background(), "docs/a.txt")
	require.NoError(t, err)

	payload := []byte("rewritten")
	require.NoError(t, c.Put(context.Background(), "docs/a.txt", bytes.NewReader(payload), int64(len(payload)), nil))

	info, err := c.Head(context.Background(), "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(len(payload)), info.Size, "stale size would mean the write did not invalidate")

	listing, err := c.List(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.txt"}, listing.Keys)
	assert.Equal(t, 2, inner.Calls().List, "listing must be re-fetched after the write")
}

// Creating a folder writes parent/name/.keep; the new sub-prefix must show
// up in the parent's listing immediately, not after the TTL.
func TestPlaceholderWriteInvalidatesAncestorListing(t *testing.T) {
	c, inner := newTestCache(t, time.Minute)
	inner.Seed("a.txt", []byte("a"))

	listing, err := c.List(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, listing.Prefixes)

	require.NoError(t, c.Put(context.Background(), "docs/.keep", bytes.NewReader(nil), 0, nil))

	listing, err = c.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/"}, listing.Prefixes)
}

// A write deep in the tree affects the listing of every level above it.
func TestDeepWriteInvalidatesAllAncestorListings(t *testing.T) {
	c, inner := newTestCache(t, time.Minute)
	inner.Seed("a/b/c.txt", []byte("c"))

	for _, path := range []string{"", "a", "a/b"} {
		_, err := c.List(context.Background(), path)
		require.NoError(t, err)
	}

	failures, err := c.DeleteBatch(context.Background(), []string{"a/b/c.txt"})
	require.NoError(t, err)
	require.Empty(t, failures)

	// The whole subtree is gone; every cached level must reflect that.
	root, err := c.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, root.Prefixes)

	mid, err := c.List(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, mid.Prefixes)
	assert.Empty(t, mid.Keys)
}

func TestDeleteBatchInvalidatesSurvivingListings(t *testing.T) {
	c, inner := newTestCache(t, time.Minute)
	inner.Seed("docs/a.txt", []byte("a"))
	inner.Seed("docs/b.txt", []byte("b"))

	_, err := c.List(context.Background(), "docs")
	require.NoError(t, err)

	failures, err := c.DeleteBatch(context.Background(), []string{"docs/a.txt", "docs/b.txt"})
	require.NoError(t, err)
	assert.Empty(t, failures)

	listing, err := c.List(context.Background(), "docs")
	require.NoError(t, err)
	assert.Empty(t, listing.Keys)
}

func TestEntriesExpire(t *testing.T) {
	c, inner := newTestCache(t, 50*time.Millisecond)
	inner.Seed("a.txt", []byte("a"))

	_, err := c.Head(context.Background(), "a.txt")
	require.NoError(t, err)

	// Mutate behind the cache's back, then wait out the TTL.
	inner.Seed("a.txt", []byte("much longer content"))
	time.Sleep(80 * time.Millisecond)

	info, err := c.Head(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(len("much longer content")), info.Size)
}

func TestMissesPropagateNotFound(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	_, err := c.Head(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrObjectNotFound)
}
