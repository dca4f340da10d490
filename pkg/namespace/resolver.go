package namespace

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/store"
)

// hydrateConcurrency bounds parallel metadata fetches per listing.
const hydrateConcurrency = 16

// Resolver turns raw prefix listings into typed directory entries.
type Resolver struct {
	store store.ObjectStore
}

// NewResolver creates a Resolver over the given store.
func NewResolver(st store.ObjectStore) *Resolver {
	return &Resolver{store: st}
}

// List returns the entries directly under path (folders first, store order
// preserved within each group), with every file entry hydrated with size,
// timestamp and download locator.
//
// Hydration runs in parallel across the listing's files. Any single
// hydration failure fails the whole listing: a partial listing could hide
// data loss from the caller, so fail-fast is deliberate.
func (r *Resolver) List(ctx context.Context, path string) ([]Entry, error) {
	listing, err := r.store.List(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", path, err)
	}

	entries := ProjectListing(path, listing)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hydrateConcurrency)

	for i := range entries {
		if entries[i].IsFolder() {
			continue
		}
		entry := &entries[i]
		g.Go(func() error {
			info, err := r.store.Head(gctx, entry.Path)
			if err != nil {
				return fmt.Errorf("hydrate %q: %w", entry.Path, err)
			}
			url, err := r.store.DownloadURL(gctx, entry.Path)
			if err != nil {
				return fmt.Errorf("hydrate %q: %w", entry.Path, err)
			}
			entry.Size = info.Size
			entry.UpdatedAt = info.UpdatedAt
			entry.DownloadURL = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}

// ProjectListing is the pure projection from a raw store listing to
// directory entries. It owns the namespace invariants:
//
//   - every sub-prefix becomes a folder entry named by its final segment
//   - every object becomes a file entry, except placeholder objects
//   - names are unique within the result; when the store holds both a
//     prefix and an object with the same name (possible in a flat key
//     space), the folder wins and the file is dropped
//   - folders precede files; source order is preserved within each group
//
// File entries come back unhydrated (no size/timestamp/URL).
func ProjectListing(parent string, listing *store.Listing) []Entry {
	seen := make(map[string]struct{})
	entries := make([]Entry, 0, len(listing.Prefixes)+len(listing.Keys))

	for _, prefix := range listing.Prefixes {
		name := Base(strings.TrimSuffix(prefix, "/"))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, Entry{
			Kind: KindFolder,
			Name: name,
			Path: Join(parent, name),
		})
	}

	for _, key := range listing.Keys {
		name := Base(key)
		if name == Placeholder {
			// The placeholder only exists to keep its folder
			// enumerable; it is never shown. The folder itself
			// still appears because the store reports the prefix
			// independently.
			continue
		}
		if _, dup := seen[name]; dup {
			logger.Warn("namespace: dropping file %q shadowed by folder of the same name", key)
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, Entry{
			Kind: KindFile,
			Name: name,
			Path: key,
		})
	}

	return entries
}
