// Package cache decorates an ObjectStore with a BadgerDB-backed metadata
// cache.
//
// Listing a folder costs one List plus a Head and a presign per file, and
// the UI re-lists aggressively (after every mutation and on navigation).
// The cache absorbs the Head and List calls for unchanged folders. Entries
// carry a short TTL so external writers converge quickly, and every
// mutation through this store invalidates the affected keys immediately so
// the session's own writes are always visible on the next listing.
//
// Download URLs are never cached: presigned URLs embed their own expiry and
// re-signing is a local operation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store"
)

const (
	defaultTTL = 5 * time.Second

	headKeyPrefix = "head/"
	listKeyPrefix = "list/"
)

// Config controls the cache decorator.
type Config struct {
	// Path is the BadgerDB directory. Empty runs the cache in memory,
	// which is what tests and single-session deployments want.
	Path string `mapstructure:"path"`

	// TTL is the entry lifetime. Zero means 5 seconds.
	TTL time.Duration `mapstructure:"ttl"`
}

// Store wraps an ObjectStore, serving Head and List from BadgerDB when a
// fresh entry exists.
//
// Thread safety: safe for concurrent use; Badger transactions provide the
// isolation.
type Store struct {
	inner store.ObjectStore
	db    *badger.DB
	ttl   time.Duration
}

// New opens the cache database and wraps inner.
func New(inner store.ObjectStore, config Config) (*Store, error) {
	var opts badger.Options
	if config.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	ttl := config.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}

	return &Store{inner: inner, db: db, ttl: ttl}, nil
}

// Close releases the cache database. The inner store is not closed.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(cacheKey string, out any) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cacheKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err != nil && err != badger.ErrKeyNotFound {
		logger.Debug("cache: read %q: %v", cacheKey, err)
	}
	return err == nil
}

func (s *Store) set(cacheKey string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(cacheKey), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		logger.Debug("cache: write %q: %v", cacheKey, err)
	}
}

func (s *Store) drop(cacheKeys ...string) {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, k := range cacheKeys {
			if err := txn.Delete([]byte(k)); err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Debug("cache: invalidate: %v", err)
	}
}

// invalidateKey drops the cached metadata for key and the cached listings of
// every ancestor folder. The whole ancestor chain is affected, not just the
// immediate parent: writing "a/b/.keep" makes "b" appear in "a"'s listing
// AND makes "a/" appear in the root's, and a recursive delete can remove a
// sub-prefix from any level above the deleted keys.
func (s *Store) invalidateKey(key string) {
	dropped := []string{headKeyPrefix + key}
	ancestor := key
	for {
		idx := lastSlash(ancestor)
		if idx < 0 {
			dropped = append(dropped, listKeyPrefix)
			break
		}
		ancestor = ancestor[:idx]
		dropped = append(dropped, listKeyPrefix+ancestor)
	}
	s.drop(dropped...)
}

func lastSlash(key string) int {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return i
		}
	}
	return -1
}

func (s *Store) List(ctx context.Context, prefix string) (*store.Listing, error) {
	var cached store.Listing
	if s.get(listKeyPrefix+prefix, &cached) {
		return &cached, nil
	}

	listing, err := s.inner.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	s.set(listKeyPrefix+prefix, listing)
	return listing, nil
}

func (s *Store) Head(ctx context.Context, key string) (*store.ObjectInfo, error) {
	var cached store.ObjectInfo
	if s.get(headKeyPrefix+key, &cached) {
		return &cached, nil
	}

	info, err := s.inner.Head(ctx, key)
	if err != nil {
		return nil, err
	}
	s.set(headKeyPrefix+key, info)
	return info, nil
}

func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	return s.inner.DownloadURL(ctx, key)
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, progress store.ProgressFunc) error {
	if err := s.inner.Put(ctx, key, r, size, progress); err != nil {
		return err
	}
	s.invalidateKey(key)
	return nil
}

func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := s.inner.Copy(ctx, srcKey, dstKey); err != nil {
		return err
	}
	s.invalidateKey(dstKey)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidateKey(key)
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	failures, err := s.inner.DeleteBatch(ctx, keys)
	for _, key := range keys {
		if _, failed := failures[key]; failed {
			continue
		}
		s.invalidateKey(key)
	}
	return failures, err
}

var _ store.ObjectStore = (*Store)(nil)
