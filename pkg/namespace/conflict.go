package namespace

import (
	"context"
	"sort"
)

// ConflictDetector answers "which of these names are already taken at this
// path" ahead of any mutating operation.
//
// Detection is inherently racy against concurrent external mutation: the
// snapshot reflects the store at listing time only. The design accepts
// eventual, not linearizable, consistency; callers re-check after their own
// mutations complete but cannot defend against other sessions.
type ConflictDetector struct {
	resolver *Resolver
}

// NewConflictDetector creates a detector over the given resolver.
func NewConflictDetector(resolver *Resolver) *ConflictDetector {
	return &ConflictDetector{resolver: resolver}
}

// ExistingNames returns the set of entry names currently at path.
//
// Hydration is skipped: only names matter here, so a raw projection over the
// listing is enough and avoids a Head call per file.
func (d *ConflictDetector) ExistingNames(ctx context.Context, path string) (map[string]struct{}, error) {
	listing, err := d.resolver.store.List(ctx, path)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for _, entry := range ProjectListing(path, listing) {
		names[entry.Name] = struct{}{}
	}
	return names, nil
}

// FindConflicts returns the candidates already present at path, sorted.
// The result is always a subset of candidates.
func (d *ConflictDetector) FindConflicts(ctx context.Context, path string, candidates []string) ([]string, error) {
	existing, err := d.ExistingNames(ctx, path)
	if err != nil {
		return nil, err
	}

	var conflicts []string
	seen := make(map[string]struct{})
	for _, name := range candidates {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, taken := existing[name]; taken {
			conflicts = append(conflicts, name)
		}
	}
	sort.Strings(conflicts)
	return conflicts, nil
}
