// Package store defines the object store abstraction the namespace engine is
// built on.
//
// The store is a flat key space: there are no directories, no renames and no
// moves. Keys are "/"-joined path strings identical to the namespace Path
// type. Everything directory-like (folders, move, rename) is synthesized on
// top of these primitives by pkg/namespace and pkg/mutation.
package store

import (
	"context"
	"io"
	"time"
)

// Listing is the result of a delimiter-based prefix listing.
//
// Prefixes are the immediate child prefixes under the listed prefix, each
// with a trailing "/" (mirroring S3 CommonPrefixes). Keys are the object
// keys directly under the listed prefix, excluding anything nested deeper.
// Both slices preserve the order the backend returned them in; no ordering
// guarantee beyond that is made.
type Listing struct {
	Prefixes []string
	Keys     []string
}

// ObjectInfo holds the per-object metadata a listing needs to hydrate a
// file entry.
type ObjectInfo struct {
	Size      uint64
	UpdatedAt time.Time
}

// ProgressFunc receives transfer progress during Put. transferred is the
// number of bytes sent so far, total is the full payload size (-1 when
// unknown). Implementations invoke it from the transfer goroutine; callers
// must not block in it.
type ProgressFunc func(transferred, total int64)

// ObjectStore is the set of primitives the engine consumes.
//
// Semantics the engine relies on:
//   - List reflects store state at call time only; staleness between a List
//     and a subsequent mutation is expected and tolerated by callers.
//   - Put overwrites any existing object at the key (native last-write-wins).
//   - Delete is idempotent: deleting an absent key succeeds.
//   - Copy duplicates an object server-side where the backend supports it;
//     it never deletes the source.
//
// All methods honor context cancellation. Implementations must be safe for
// concurrent use; recursive operations fan out calls from multiple
// goroutines.
type ObjectStore interface {
	// List returns the immediate sub-prefixes and direct objects under
	// prefix. The root is listed with the empty prefix. Listing a prefix
	// with no content returns an empty Listing, not an error.
	List(ctx context.Context, prefix string) (*Listing, error)

	// Head returns size and modification time for a single object.
	// Returns ErrObjectNotFound if the key does not exist.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// DownloadURL returns an opaque locator (typically a presigned URL)
	// from which the object's bytes can be fetched by a client.
	// Returns ErrObjectNotFound if the key does not exist.
	DownloadURL(ctx context.Context, key string) (string, error)

	// Put writes the full object at key, replacing any existing object.
	// size is the payload length (-1 when unknown). progress may be nil.
	Put(ctx context.Context, key string, r io.Reader, size int64, progress ProgressFunc) error

	// Copy duplicates srcKey to dstKey, replacing any existing object at
	// dstKey. Returns ErrObjectNotFound if srcKey does not exist.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Delete removes the object at key. Absent keys are success.
	Delete(ctx context.Context, key string) error

	// DeleteBatch removes multiple objects in one logical operation,
	// using the backend's batch API where available. The operation is
	// best-effort: successfully deleted keys are not rolled back when
	// others fail. The returned map contains one entry per failed key
	// (empty map means all succeeded). The error return is reserved for
	// context cancellation and whole-call transport failures.
	DeleteBatch(ctx context.Context, keys []string) (failures map[string]error, err error)
}
