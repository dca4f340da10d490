// Package mutation executes namespace mutations as sequences of primitive
// object store operations.
//
// None of these operations are atomic: the store offers single-object
// put/copy/delete only. Delete is idempotent on retry; move, rename and
// create are not, since re-invoking after a partial failure may duplicate
// artifacts, so callers must not blindly retry them. Partial outcomes are
// reported, never hidden and never rolled back.
package mutation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/namespace"
	"github.com/marmos91/dittodrive/pkg/store"
)

// copyConcurrency bounds the copy fan-out of one folder move.
const copyConcurrency = 8

// Item identifies the subject of a mutation: a full namespace path plus
// whether it names a folder (emergent prefix) or a file (real object).
type Item struct {
	Path     string
	IsFolder bool
}

// Name returns the item's leaf name.
func (i Item) Name() string {
	return namespace.Base(i.Path)
}

// Engine executes create/delete/move/rename against an object store.
//
// The engine performs no conflict checking; callers run the conflict
// pre-check (pkg/namespace.ConflictDetector) before any operation that
// introduces a new name at a destination.
type Engine struct {
	store store.ObjectStore
}

// NewEngine creates an Engine over the given store.
func NewEngine(st store.ObjectStore) *Engine {
	return &Engine{store: st}
}

// CreateFolder materializes an (otherwise emergent) folder by writing a
// zero-byte placeholder at parent/name/.keep. The folder stays listable only
// as long as the placeholder or some real descendant exists; if everything
// under it is later removed, the folder silently disappears. Accepted
// behavior, not a defect.
func (e *Engine) CreateFolder(ctx context.Context, parent, name string) error {
	if err := namespace.ValidateName(name); err != nil {
		return fmt.Errorf("create folder %q: %w", name, err)
	}

	key := namespace.Join(namespace.Join(parent, name), namespace.Placeholder)
	if err := e.store.Put(ctx, key, bytes.NewReader(nil), 0, nil); err != nil {
		return fmt.Errorf("create folder %q: %w", name, err)
	}

	logger.Debug("mutation: created folder %q", namespace.Join(parent, name))
	return nil
}

// DeleteFile removes a single file. Deleting an already-absent file is
// success (delete is the one idempotent operation here).
func (e *Engine) DeleteFile(ctx context.Context, fullPath string) error {
	if err := e.store.Delete(ctx, fullPath); err != nil {
		return fmt.Errorf("delete %q: %w", fullPath, err)
	}
	return nil
}

// DeleteFolder removes a folder and everything under it.
//
// All descendant objects (files and placeholders, transitively) are
// enumerated first, then deleted as one batch; every descendant delete is
// issued before the operation resolves. There is no ordering between
// siblings and no rollback: if some deletes fail, the rest stay deleted and
// the failure lists the surviving sub-paths.
func (e *Engine) DeleteFolder(ctx context.Context, fullPath string) error {
	keys, err := e.walk(ctx, fullPath)
	if err != nil {
		return fmt.Errorf("delete folder %q: %w", fullPath, err)
	}

	failures, err := e.store.DeleteBatch(ctx, keys)
	if err != nil {
		return fmt.Errorf("delete folder %q: %w", fullPath, err)
	}
	if len(failures) > 0 {
		return &PartialError{
			Op:       fmt.Sprintf("delete folder %q", fullPath),
			Failures: failures,
		}
	}

	logger.Info("mutation: deleted folder %q (%d objects)", fullPath, len(keys))
	return nil
}

// Move relocates item into targetFolder under destName (empty destName
// keeps the current leaf name).
//
// A folder must never be moved into itself or any of its own descendants;
// that is rejected with ErrInvalidTarget before any store call. The move is
// synthesized as copy-then-delete via an explicit Plan; see plan.go for the
// partial-failure surface.
func (e *Engine) Move(ctx context.Context, item Item, targetFolder, destName string) error {
	if destName == "" {
		destName = item.Name()
	}
	if err := namespace.ValidateName(destName); err != nil {
		return fmt.Errorf("move %q: %w", item.Path, err)
	}
	if item.IsFolder && namespace.Contains(item.Path, targetFolder) {
		return fmt.Errorf("move %q into %q: %w", item.Path, targetFolder, ErrInvalidTarget)
	}

	plan, err := e.BuildMovePlan(ctx, item, targetFolder, destName)
	if err != nil {
		return err
	}

	return e.executePlan(ctx, plan)
}

// Rename gives item a new leaf name in its current parent. Renaming to the
// identical name is a no-op with zero store calls. For folders this rewrites
// the folder-name segment of every descendant key, with the same
// non-atomicity caveat as Move.
func (e *Engine) Rename(ctx context.Context, item Item, newName string) error {
	if newName == item.Name() {
		return nil
	}
	if err := namespace.ValidateName(newName); err != nil {
		return fmt.Errorf("rename %q: %w", item.Path, err)
	}

	return e.Move(ctx, item, namespace.Parent(item.Path), newName)
}

// BuildMovePlan expands a move into its primitive steps. For a file this is
// one copy and one delete. For a folder, every descendant object key is
// remapped from the source folder prefix to the destination prefix.
func (e *Engine) BuildMovePlan(ctx context.Context, item Item, targetFolder, destName string) (*Plan, error) {
	destPath := namespace.Join(targetFolder, destName)
	plan := &Plan{
		Op: fmt.Sprintf("move %q -> %q", item.Path, destPath),
	}

	if !item.IsFolder {
		plan.Copies = []CopyStep{{Src: item.Path, Dst: destPath}}
		plan.Deletes = []string{item.Path}
		return plan, nil
	}

	keys, err := e.walk(ctx, item.Path)
	if err != nil {
		return nil, fmt.Errorf("move %q: %w", item.Path, err)
	}

	for _, src := range keys {
		rel := src[len(item.Path)+1:]
		plan.Copies = append(plan.Copies, CopyStep{
			Src: src,
			Dst: namespace.Join(destPath, rel),
		})
	}
	plan.Deletes = keys
	return plan, nil
}

// executePlan runs the copy phase concurrently, then the delete phase only
// once every copy succeeded. Copy-phase failures leave partial copies at the
// destination; delete-phase failures leave partial remainders at the source.
// Both surface as PartialError naming the affected keys.
func (e *Engine) executePlan(ctx context.Context, plan *Plan) error {
	var mu sync.Mutex
	copyFailures := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for _, step := range plan.Copies {
		g.Go(func() error {
			if err := e.store.Copy(gctx, step.Src, step.Dst); err != nil {
				mu.Lock()
				copyFailures[step.Src] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(copyFailures) > 0 {
		return &PartialError{Op: plan.Op, Failures: copyFailures}
	}

	deleteFailures, err := e.store.DeleteBatch(ctx, plan.Deletes)
	if err != nil {
		return fmt.Errorf("%s: %w", plan.Op, err)
	}
	if len(deleteFailures) > 0 {
		return &PartialError{Op: plan.Op, Failures: deleteFailures}
	}

	logger.Info("mutation: %s (%d objects)", plan.Op, len(plan.Copies))
	return nil
}

// walk collects every object key under folderPath, transitively, including
// placeholder objects. Sibling order is unspecified.
func (e *Engine) walk(ctx context.Context, folderPath string) ([]string, error) {
	listing, err := e.store.List(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	keys := append([]string(nil), listing.Keys...)
	for _, prefix := range listing.Prefixes {
		subKeys, err := e.walk(ctx, strings.TrimSuffix(prefix, "/"))
		if err != nil {
			return nil, err
		}
		keys = append(keys, subKeys...)
	}
	return keys, nil
}
