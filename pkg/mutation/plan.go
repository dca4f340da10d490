package mutation

// Object stores have no atomic rename or move, so every move is synthesized
// as copies followed by deletes. The Plan makes that sequence explicit: an
// ordered set of primitive steps that can be inspected, logged and reported
// per step rather than executed as an opaque black box.
//
// Execution order is: all copies issued (concurrently, no sibling ordering),
// then, only if every copy succeeded, all source deletes. Failure during
// the copy phase leaves a partial copy at the destination; failure during
// the delete phase leaves a partial remainder at the source. Neither is
// rolled back.

// CopyStep duplicates one object to its remapped destination key.
type CopyStep struct {
	Src string
	Dst string
}

// Plan is the ordered expansion of one move or rename operation into
// primitive store steps.
type Plan struct {
	// Op names the operation for error reporting, e.g. `move "a" -> "b"`.
	Op string

	// Copies run first, concurrently.
	Copies []CopyStep

	// Deletes run after every copy succeeded.
	Deletes []string
}
