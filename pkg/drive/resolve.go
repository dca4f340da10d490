package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/namespace"
	"github.com/marmos91/dittodrive/pkg/upload"
)

// Resolve applies the caller's choice to the outstanding conflict. The token
// must match the pending conflict or ErrStaleConflict is returned and the
// pending conflict stays untouched.
//
// The returned Batch is non-nil only when the resolution resumed an upload.
func (d *Drive) Resolve(ctx context.Context, token string, choice Resolution) (_ *upload.Batch, err error) {
	defer func(start time.Time) { d.observe("resolve", start, err) }(time.Now())

	if err := d.auth.Authorize(); err != nil {
		return nil, err
	}

	conflict, err := d.takePending(token)
	if err != nil {
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.RecordResolution(string(choice))
	}

	if choice == ResolutionCancel {
		logger.Info("drive: %s conflict at %q cancelled", conflict.Kind, conflict.TargetPath)
		return nil, nil
	}

	switch conflict.Kind {
	case ConflictUpload:
		return d.resolveUpload(ctx, conflict, choice)
	case ConflictMove:
		return nil, d.resolveMove(ctx, conflict, choice)
	case ConflictRename:
		return nil, d.resolveRename(ctx, conflict, choice)
	default:
		return nil, fmt.Errorf("unknown conflict kind %q", conflict.Kind)
	}
}

func (d *Drive) resolveUpload(ctx context.Context, conflict *PendingConflict, choice Resolution) (*upload.Batch, error) {
	files := conflict.files

	switch choice {
	case ResolutionReplace:
		// Puts overwrite files natively, but a folder occupying a
		// destination name has to be removed first.
		for _, name := range conflict.Conflicting {
			isFolder, exists, err := d.entryKind(ctx, conflict.TargetPath, name)
			if err != nil {
				d.setPending(conflict)
				return nil, err
			}
			if exists && isFolder {
				if err := d.engine.DeleteFolder(ctx, namespace.Join(conflict.TargetPath, name)); err != nil {
					d.setPending(conflict)
					return nil, err
				}
			}
		}

	case ResolutionKeepBoth:
		// Names are recomputed against the destination as it is NOW, not
		// against the snapshot that raised the conflict.
		taken, err := d.detector.ExistingNames(ctx, conflict.TargetPath)
		if err != nil {
			d.setPending(conflict)
			return nil, err
		}
		renamed := make([]upload.File, len(files))
		for i, f := range files {
			if _, clash := taken[f.Name]; clash {
				f.Name = namespace.MakeUnique(f.Name, taken)
			}
			taken[f.Name] = struct{}{}
			renamed[i] = f
		}
		files = renamed

	default:
		d.setPending(conflict)
		return nil, fmt.Errorf("unsupported resolution %q", choice)
	}

	return d.submit(ctx, files, conflict.TargetPath)
}

func (d *Drive) resolveMove(ctx context.Context, conflict *PendingConflict, choice Resolution) error {
	destName := conflict.Item.Name()

	switch choice {
	case ResolutionReplace:
		if err := d.evictOccupant(ctx, conflict.TargetPath, destName, conflict.Item.IsFolder); err != nil {
			d.setPending(conflict)
			return err
		}

	case ResolutionKeepBoth:
		taken, err := d.detector.ExistingNames(ctx, conflict.TargetPath)
		if err != nil {
			d.setPending(conflict)
			return err
		}
		destName = namespace.MakeUnique(destName, taken)

	default:
		d.setPending(conflict)
		return fmt.Errorf("unsupported resolution %q", choice)
	}

	if err := d.engine.Move(ctx, conflict.Item, conflict.TargetPath, destName); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

func (d *Drive) resolveRename(ctx context.Context, conflict *PendingConflict, choice Resolution) error {
	newName := conflict.NewName

	switch choice {
	case ResolutionReplace:
		if err := d.evictOccupant(ctx, conflict.TargetPath, newName, conflict.Item.IsFolder); err != nil {
			d.setPending(conflict)
			return err
		}

	case ResolutionKeepBoth:
		taken, err := d.detector.ExistingNames(ctx, conflict.TargetPath)
		if err != nil {
			d.setPending(conflict)
			return err
		}
		newName = namespace.MakeUnique(newName, taken)

	default:
		d.setPending(conflict)
		return fmt.Errorf("unsupported resolution %q", choice)
	}

	if err := d.engine.Rename(ctx, conflict.Item, newName); err != nil {
		return err
	}
	return d.Refresh(ctx)
}

// evictOccupant removes whatever holds name under folderPath when the
// incoming item cannot overwrite it natively. A file destination is
// overwritten by a file copy, so only kind mismatches and folder targets
// need an explicit delete.
func (d *Drive) evictOccupant(ctx context.Context, folderPath, name string, incomingIsFolder bool) error {
	isFolder, exists, err := d.entryKind(ctx, folderPath, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	full := namespace.Join(folderPath, name)
	switch {
	case isFolder:
		return d.engine.DeleteFolder(ctx, full)
	case incomingIsFolder:
		// A folder moving onto a file name: the stale file would shadow
		// nothing in the projection but must not linger in the store.
		return d.engine.DeleteFile(ctx, full)
	default:
		return nil
	}
}

// entryKind reports whether name exists directly under folderPath and
// whether it is a folder there.
func (d *Drive) entryKind(ctx context.Context, folderPath, name string) (isFolder, exists bool, err error) {
	listing, err := d.store.List(ctx, folderPath)
	if err != nil {
		return false, false, err
	}
	for _, entry := range namespace.ProjectListing(folderPath, listing) {
		if entry.Name == name {
			return entry.IsFolder(), true, nil
		}
	}
	return false, false, nil
}
