package upload

import "io"

// State is the lifecycle state of one upload task.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Task tracks one file upload. Tasks are owned by the Coordinator for their
// whole lifetime; everything handed outward is a copy.
type Task struct {
	ID      string `json:"id"`
	BatchID string `json:"batchId"`
	Name    string `json:"name"`
	Key     string `json:"key"`
	// Progress is 0..100. Reports may arrive out of order from the
	// transport; the latest report wins, no monotonicity is enforced.
	Progress int    `json:"progress"`
	State    State  `json:"state"`
	Error    string `json:"error,omitempty"`
}

// File is one upload submission: a destination name and its content.
// Size is the content length in bytes (-1 when unknown, which disables
// percentage progress for that file).
type File struct {
	Name    string
	Content io.Reader
	Size    int64
}

// Batch is the handle returned by Submit. Done is closed exactly once, when
// every task of the batch has reached a terminal state; callers use it to
// trigger a namespace refresh.
type Batch struct {
	ID   string
	Done <-chan struct{}
}
