package mutation

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNotFound indicates the operation's subject does not exist.
	// Delete is exempt: deleting an absent file is success.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTarget indicates a move destination inside the moved
	// folder itself (or the folder itself). Detected before any store
	// call is issued.
	ErrInvalidTarget = errors.New("invalid target")
)

// PartialError reports a recursive operation where some but not all
// sub-operations failed. Already-completed sub-operations are not rolled
// back; the failure detail identifies exactly which sub-paths failed so the
// caller can surface the partial outcome instead of masking it.
type PartialError struct {
	Op       string
	Failures map[string]error
}

func (e *PartialError) Error() string {
	keys := make([]string, 0, len(e.Failures))
	for k := range e.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s: %d sub-operations failed (first: %s: %v)",
		e.Op, len(e.Failures), keys[0], e.Failures[keys[0]])
}

// FailedPaths returns the failed sub-paths in sorted order.
func (e *PartialError) FailedPaths() []string {
	keys := make([]string, 0, len(e.Failures))
	for k := range e.Failures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
