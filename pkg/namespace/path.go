// Package namespace derives a hierarchical folder/file view from a flat
// object store.
//
// Folders are emergent: nothing in the store represents them except key
// prefixes and an optional zero-byte placeholder object that keeps an
// otherwise-empty folder enumerable. Everything this package returns is a
// computed projection over store listings, never persisted state.
package namespace

import (
	"errors"
	"strings"
)

// Placeholder is the reserved leaf name of the zero-byte object used to keep
// an empty folder listable. Placeholder objects are filtered from every
// listing.
const Placeholder = ".keep"

// ErrInvalidName indicates a candidate entry name is empty or contains the
// path delimiter.
var ErrInvalidName = errors.New("invalid name")

// Join appends a name to a parent path. The empty parent denotes the root.
func Join(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// Parent returns the parent path of path, or "" when path is a root-level
// name.
func Parent(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Base returns the final segment of path.
func Base(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// ValidateName rejects names that cannot be a single path segment.
func ValidateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if strings.Contains(name, "/") {
		return ErrInvalidName
	}
	return nil
}

// Contains reports whether candidate equals ancestor or lies anywhere under
// it. Used to reject moving a folder into itself or its own descendants.
func Contains(ancestor, candidate string) bool {
	if ancestor == candidate {
		return true
	}
	return strings.HasPrefix(candidate, ancestor+"/")
}
