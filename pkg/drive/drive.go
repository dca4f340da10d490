// Package drive assembles the namespace engine behind a single facade.
//
// The Drive owns the two pieces of state the spec makes single-owner: the
// current listing snapshot and the (at most one) outstanding
// PendingConflict. UI intents arrive already serialized at this boundary;
// the facade still rejects overlapping intents and stale resolutions rather
// than trusting callers.
package drive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/auth"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/mutation"
	"github.com/marmos91/dittodrive/pkg/namespace"
	"github.com/marmos91/dittodrive/pkg/store"
	"github.com/marmos91/dittodrive/pkg/upload"
)

var (
	// ErrConflictPending indicates a new intent arrived while a conflict
	// is still awaiting resolution. Exactly one PendingConflict may be
	// outstanding at a time.
	ErrConflictPending = errors.New("a conflict is pending resolution")

	// ErrStaleConflict indicates a resolution call whose token does not
	// match the outstanding conflict (or there is none). Overlapping
	// resolutions against a stale conflict are rejected, not replayed.
	ErrStaleConflict = errors.New("stale conflict resolution")

	// ErrNameTaken indicates a create-folder name collision. Folder
	// creation has no Replace/KeepBoth flow; the caller picks another
	// name.
	ErrNameTaken = errors.New("name already taken")
)

// Drive is the facade the presentation layer talks to.
type Drive struct {
	auth     *auth.Context
	store    store.ObjectStore
	resolver *namespace.Resolver
	detector *namespace.ConflictDetector
	engine   *mutation.Engine
	uploads  *upload.Coordinator
	metrics  metrics.DriveMetrics

	mu      sync.Mutex
	pending *PendingConflict
	path    string
	listing []namespace.Entry
}

// New assembles a Drive over the given store. uploadConcurrency bounds
// simultaneous file transfers. m may be nil to disable metrics collection.
func New(authCtx *auth.Context, st store.ObjectStore, uploadConcurrency int, m metrics.DriveMetrics) *Drive {
	resolver := namespace.NewResolver(st)
	return &Drive{
		auth:     authCtx,
		store:    st,
		resolver: resolver,
		detector: namespace.NewConflictDetector(resolver),
		engine:   mutation.NewEngine(st),
		uploads:  upload.NewCoordinator(st, uploadConcurrency),
		metrics:  m,
	}
}

// observe reports one completed operation to the metrics sink, if any.
func (d *Drive) observe(operation string, start time.Time, err error) {
	if d.metrics != nil {
		d.metrics.RecordOperation(operation, time.Since(start), err)
	}
}

func parentOf(item mutation.Item) string {
	return namespace.Parent(item.Path)
}

// List navigates to path and returns its entries. The result also becomes
// the drive's current listing snapshot.
func (d *Drive) List(ctx context.Context, path string) (_ []namespace.Entry, err error) {
	defer func(start time.Time) { d.observe("list", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return nil, err
	}

	entries, err := d.resolver.List(ctx, path)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.path = path
	d.listing = entries
	d.mu.Unlock()

	return append([]namespace.Entry(nil), entries...), nil
}

// DownloadURL returns a time-limited download locator for one file.
func (d *Drive) DownloadURL(ctx context.Context, path string) (string, error) {
	if err := d.auth.Authorize(); err != nil {
		return "", err
	}
	return d.store.DownloadURL(ctx, path)
}

// Refresh re-derives the listing for the current path.
func (d *Drive) Refresh(ctx context.Context) error {
	d.mu.Lock()
	path := d.path
	d.mu.Unlock()

	_, err := d.List(ctx, path)
	return err
}

// Listing returns the current path and a copy of its last derived entries.
func (d *Drive) Listing() (string, []namespace.Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path, append([]namespace.Entry(nil), d.listing...)
}

// CreateFolder creates a folder under parent. Any same-name collision,
// folder or file, blocks with ErrNameTaken.
func (d *Drive) CreateFolder(ctx context.Context, parent, name string) (err error) {
	defer func(start time.Time) { d.observe("create_folder", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return err
	}

	conflicts, err := d.detector.FindConflicts(ctx, parent, []string{name})
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("create folder %q: %w", name, ErrNameTaken)
	}

	if err := d.engine.CreateFolder(ctx, parent, name); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

// DeleteFile removes a single file and refreshes the listing.
func (d *Drive) DeleteFile(ctx context.Context, fullPath string) (err error) {
	defer func(start time.Time) { d.observe("delete_file", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return err
	}
	if err := d.engine.DeleteFile(ctx, fullPath); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

// DeleteFolder recursively removes a folder. On partial failure the error
// is returned as-is (it names the surviving sub-paths) and the listing is
// refreshed anyway so the caller sees the real post-failure state.
func (d *Drive) DeleteFolder(ctx context.Context, fullPath string) (err error) {
	defer func(start time.Time) { d.observe("delete_folder", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return err
	}

	delErr := d.engine.DeleteFolder(ctx, fullPath)
	if refreshErr := d.Refresh(ctx); refreshErr != nil && delErr == nil {
		return refreshErr
	}
	return delErr
}

// Upload submits files for upload to targetPath. When any destination name
// is already taken, no transfer starts: the returned PendingConflict
// carries the collision set and awaits Resolve.
func (d *Drive) Upload(ctx context.Context, files []upload.File, targetPath string) (_ *upload.Batch, _ *PendingConflict, err error) {
	defer func(start time.Time) { d.observe("upload", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return nil, nil, err
	}
	if err := d.rejectWhilePending(); err != nil {
		return nil, nil, err
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}

	conflicts, err := d.detector.FindConflicts(ctx, targetPath, names)
	if err != nil {
		return nil, nil, err
	}
	if len(conflicts) > 0 {
		conflict := newUploadConflict(files, targetPath, conflicts)
		d.setPending(conflict)
		return nil, conflict, nil
	}

	batch, err := d.submit(ctx, files, targetPath)
	return batch, nil, err
}

// Move relocates item into targetFolder, keeping its name. Collisions at
// the destination surface as a PendingConflict.
func (d *Drive) Move(ctx context.Context, item mutation.Item, targetFolder string) (_ *PendingConflict, err error) {
	defer func(start time.Time) { d.observe("move", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return nil, err
	}
	if err := d.rejectWhilePending(); err != nil {
		return nil, err
	}
	if targetFolder == parentOf(item) {
		// Dropping an item onto its own parent is a no-op.
		return nil, nil
	}
	if item.IsFolder && namespace.Contains(item.Path, targetFolder) {
		return nil, fmt.Errorf("move %q into %q: %w", item.Path, targetFolder, mutation.ErrInvalidTarget)
	}

	conflicts, err := d.detector.FindConflicts(ctx, targetFolder, []string{item.Name()})
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		conflict := newMoveConflict(item, targetFolder, conflicts)
		d.setPending(conflict)
		return conflict, nil
	}

	if err := d.engine.Move(ctx, item, targetFolder, ""); err != nil {
		return nil, err
	}
	return nil, d.Refresh(ctx)
}

// Rename gives item a new leaf name. Renaming to the identical name is a
// no-op with no store calls. Collisions surface as a PendingConflict.
func (d *Drive) Rename(ctx context.Context, item mutation.Item, newName string) (_ *PendingConflict, err error) {
	defer func(start time.Time) { d.observe("rename", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return nil, err
	}
	if err := d.rejectWhilePending(); err != nil {
		return nil, err
	}
	if newName == item.Name() {
		return nil, nil
	}
	if err := namespace.ValidateName(newName); err != nil {
		return nil, err
	}

	conflicts, err := d.detector.FindConflicts(ctx, parentOf(item), []string{newName})
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		conflict := newRenameConflict(item, newName, conflicts)
		d.setPending(conflict)
		return conflict, nil
	}

	if err := d.engine.Rename(ctx, item, newName); err != nil {
		return nil, err
	}
	return nil, d.Refresh(ctx)
}

// Pending returns the outstanding conflict, or nil.
func (d *Drive) Pending() *PendingConflict {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Drive) rejectWhilePending() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		return ErrConflictPending
	}
	return nil
}

func (d *Drive) setPending(conflict *PendingConflict) {
	d.mu.Lock()
	d.pending = conflict
	d.mu.Unlock()
	if d.metrics != nil {
		d.metrics.RecordConflict(string(conflict.Kind))
	}
	logger.Info("drive: %s conflict pending at %q: %v", conflict.Kind, conflict.TargetPath, conflict.Conflicting)
}

// takePending atomically claims the outstanding conflict if token matches.
func (d *Drive) takePending(token string) (*PendingConflict, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil || d.pending.Token != token {
		return nil, ErrStaleConflict
	}
	conflict := d.pending
	d.pending = nil
	return conflict, nil
}

// Tasks returns a snapshot of all tracked upload tasks.
func (d *Drive) Tasks() []upload.Task {
	return d.uploads.Snapshot()
}

// ClearTasks removes terminal upload tasks from the tracked set.
func (d *Drive) ClearTasks() {
	d.uploads.Clear()
}

// CancelUpload aborts one in-flight upload.
func (d *Drive) CancelUpload(taskID string) {
	d.uploads.Cancel(taskID)
}

// Close shuts down the upload coordinator.
func (d *Drive) Close() {
	d.uploads.Close()
}

// submit hands files to the coordinator and schedules a listing refresh for
// when the whole batch reaches terminal state. The aggregate Done signal
// fires exactly once per batch, so the refresh runs exactly once too.
//
// Transfers outlive the submitting call: the accepting context (an HTTP
// request, typically) ends long before the batch does, so task contexts are
// detached from it. CancelUpload is the only way to abort a running task.
func (d *Drive) submit(ctx context.Context, files []upload.File, targetPath string) (*upload.Batch, error) {
	batch, err := d.uploads.Submit(context.WithoutCancel(ctx), files, targetPath)
	if err != nil {
		return nil, err
	}

	go func() {
		<-batch.Done
		if err := d.Refresh(context.Background()); err != nil {
			logger.Warn("drive: refresh after batch %s failed: %v", batch.ID, err)
		}
	}()

	return batch, nil
}
