// Package memory implements an in-memory ObjectStore.
//
// It exists for tests and local development. Beyond the plain primitives it
// records per-operation call counts and supports per-key fault injection, so
// engine tests can assert properties like "no store call was issued" or
// exercise partial-failure paths without a real backend.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/pkg/store"
)

const progressChunkSize = 32 * 1024

type object struct {
	data      []byte
	updatedAt time.Time
}

// Calls counts primitive invocations by operation. Snapshot via
// MemoryStore.Calls(); used by tests only.
type Calls struct {
	List   int
	Head   int
	URL    int
	Put    int
	Copy   int
	Delete int
}

// MemoryStore is a map-backed ObjectStore.
//
// Listings are returned in lexicographic key order, which stands in for the
// "source order" of a real backend (S3 also lists lexicographically).
//
// Thread safety: all methods are safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]*object
	calls   Calls

	// Fault injection: when a key is present in one of these maps, the
	// corresponding operation fails with the mapped error instead of
	// executing. Set up before the operation under test runs.
	FailPut    map[string]error
	FailCopy   map[string]error
	FailDelete map[string]error
	FailHead   map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:    make(map[string]*object),
		FailPut:    make(map[string]error),
		FailCopy:   make(map[string]error),
		FailDelete: make(map[string]error),
		FailHead:   make(map[string]error),
	}
}

// Seed writes an object directly, bypassing call counting. Tests use it to
// arrange store state.
func (m *MemoryStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &object{data: append([]byte(nil), data...), updatedAt: time.Now()}
}

// Keys returns all stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Calls returns a snapshot of the per-operation call counters.
func (m *MemoryStore) Calls() Calls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// List implements delimiter-based prefix listing over the flat key map.
func (m *MemoryStore) List(ctx context.Context, prefix string) (*store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.List++

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	prefixSet := make(map[string]struct{})
	var keys []string

	for key := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if idx := strings.Index(rest, "/"); idx >= 0 {
			prefixSet[prefix+rest[:idx+1]] = struct{}{}
		} else {
			keys = append(keys, key)
		}
	}

	prefixes := make([]string, 0, len(prefixSet))
	for p := range prefixSet {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	sort.Strings(keys)

	return &store.Listing{Prefixes: prefixes, Keys: keys}, nil
}

func (m *MemoryStore) Head(ctx context.Context, key string) (*store.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Head++

	if err, ok := m.FailHead[key]; ok {
		return nil, err
	}

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("head %q: %w", key, store.ErrObjectNotFound)
	}

	return &store.ObjectInfo{Size: uint64(len(obj.data)), UpdatedAt: obj.updatedAt}, nil
}

func (m *MemoryStore) DownloadURL(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.URL++

	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("download url %q: %w", key, store.ErrObjectNotFound)
	}

	return "memory://" + key, nil
}

// Put reads r in chunks so that context cancellation mid-transfer is
// observed and progress callbacks fire incrementally, matching how the S3
// client behaves on the wire.
func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, progress store.ProgressFunc) error {
	m.mu.Lock()
	m.calls.Put++
	if err, ok := m.FailPut[key]; ok {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	var buf bytes.Buffer
	chunk := make([]byte, progressChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if progress != nil {
				progress(int64(buf.Len()), size)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("put %q: %w", key, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = &object{data: buf.Bytes(), updatedAt: time.Now()}
	return nil
}

func (m *MemoryStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Copy++

	if err, ok := m.FailCopy[srcKey]; ok {
		return err
	}

	src, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("copy %q: %w", srcKey, store.ErrObjectNotFound)
	}

	m.objects[dstKey] = &object{
		data:      append([]byte(nil), src.data...),
		updatedAt: time.Now(),
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++

	if err, ok := m.FailDelete[key]; ok {
		return err
	}

	// Absent keys are success: delete is idempotent.
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	failures := make(map[string]error)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := m.Delete(ctx, key); err != nil {
			failures[key] = err
		}
	}
	return failures, nil
}

var _ store.ObjectStore = (*MemoryStore)(nil)
