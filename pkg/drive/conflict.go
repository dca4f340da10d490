package drive

import (
	"github.com/google/uuid"

	"github.com/marmos91/dittodrive/pkg/mutation"
	"github.com/marmos91/dittodrive/pkg/upload"
)

// ConflictKind discriminates which blocked operation a PendingConflict
// describes.
type ConflictKind string

const (
	ConflictUpload ConflictKind = "upload"
	ConflictMove   ConflictKind = "move"
	ConflictRename ConflictKind = "rename"
)

// Resolution is the caller's choice for a pending conflict.
type Resolution string

const (
	// ResolutionReplace proceeds without renaming; the destination
	// primitive overwrites whatever occupies the name (folder targets
	// are deleted first, since a put cannot overwrite a prefix).
	ResolutionReplace Resolution = "replace"

	// ResolutionKeepBoth recomputes collision-free names against the
	// CURRENT destination listing (not the possibly-stale pre-check
	// snapshot) and proceeds under the new names.
	ResolutionKeepBoth Resolution = "keep_both"

	// ResolutionCancel discards the conflict; no store operation is
	// issued.
	ResolutionCancel Resolution = "cancel"
)

// PendingConflict describes one blocked operation awaiting a resolution
// choice. It is a pure value: it holds everything needed to resume the
// operation and nothing about rendering.
//
// At most one PendingConflict is outstanding at a time; the Drive rejects
// new intents while one is pending, and rejects resolutions whose token
// does not match the outstanding conflict (stale resolution from a
// previous conflict).
type PendingConflict struct {
	Token       string       `json:"token"`
	Kind        ConflictKind `json:"kind"`
	TargetPath  string       `json:"targetPath"`
	Conflicting []string     `json:"conflictingNames"`

	// Move and Rename subject; zero-valued for uploads.
	Item mutation.Item `json:"item,omitzero"`

	// Rename only.
	NewName string `json:"newName,omitempty"`

	// Upload only. Unexported: readers are not re-playable through JSON
	// and only the resolution path may consume them.
	files []upload.File
}

func newUploadConflict(files []upload.File, targetPath string, conflicting []string) *PendingConflict {
	return &PendingConflict{
		Token:       uuid.NewString(),
		Kind:        ConflictUpload,
		TargetPath:  targetPath,
		Conflicting: conflicting,
		files:       files,
	}
}

func newMoveConflict(item mutation.Item, targetPath string, conflicting []string) *PendingConflict {
	return &PendingConflict{
		Token:       uuid.NewString(),
		Kind:        ConflictMove,
		TargetPath:  targetPath,
		Conflicting: conflicting,
		Item:        item,
	}
}

func newRenameConflict(item mutation.Item, newName string, conflicting []string) *PendingConflict {
	return &PendingConflict{
		Token:       uuid.NewString(),
		Kind:        ConflictRename,
		TargetPath:  parentOf(item),
		Conflicting: conflicting,
		Item:        item,
		NewName:     newName,
	}
}
