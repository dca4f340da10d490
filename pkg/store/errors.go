package store

import "errors"

// Sentinel errors shared by all object store implementations. Callers match
// with errors.Is; implementations wrap them with key context via fmt.Errorf
// and %w.
var (
	// ErrObjectNotFound indicates the requested key does not exist.
	//
	// Head, DownloadURL and Copy return it for absent keys. Delete does
	// NOT: deleting an absent key is success (idempotent delete).
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnavailable indicates a transport or backend failure (network
	// error, 5xx, throttling that exhausted the client's patience). The
	// engine performs no automatic retries; the error propagates to the
	// caller.
	ErrUnavailable = errors.New("object store unavailable")
)
