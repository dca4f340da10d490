package namespace

import "time"

// EntryKind discriminates folders from files in a listing.
type EntryKind string

const (
	KindFolder EntryKind = "folder"
	KindFile   EntryKind = "file"
)

// Entry is one row of a directory listing.
//
// Folder entries carry no size or timestamp: a folder has no independent
// existence in the store, so there is nothing to report. File entries are
// hydrated with object metadata and a download locator.
type Entry struct {
	Kind EntryKind `json:"kind"`
	Name string    `json:"name"`
	Path string    `json:"path"`

	// File-only fields; zero-valued on folders.
	Size        uint64    `json:"size,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool {
	return e.Kind == KindFolder
}
