// Package upload coordinates concurrent multi-file uploads with per-file
// progress, completion and error state.
//
// Concurrent progress callbacks never touch shared task structs directly:
// each transfer emits events onto a channel consumed by a single owner
// goroutine, which is the only writer of the task collection. Consumers get
// immutable snapshots.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/namespace"
	"github.com/marmos91/dittodrive/pkg/store"
)

// CancelMessage is the error text a cancelled upload's task carries.
const CancelMessage = "upload cancelled"

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("upload coordinator closed")

type eventKind int

const (
	evStarted eventKind = iota
	evProgress
	evDone
	evFailed
)

type taskEvent struct {
	kind   eventKind
	taskID string
	// progress percent for evProgress, error text for evFailed
	progress int
	errText  string
}

type command func()

type batchState struct {
	remaining int
	done      chan struct{}
}

// Coordinator manages a bounded set of concurrent per-file uploads.
//
// It performs no collision checking: conflict handling happens at the caller
// (ConflictDetector / MakeUnique) before Submit; the coordinator writes to
// whatever key it is given.
type Coordinator struct {
	store       store.ObjectStore
	concurrency int

	events chan taskEvent
	cmds   chan command
	closed chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup

	// Everything below is owned by the run loop. Public methods reach it
	// only through cmds.
	tasks   map[string]*Task
	order   []string
	batches map[string]*batchState
	cancels map[string]context.CancelFunc
}

// NewCoordinator creates a Coordinator uploading at most concurrency files
// at a time (minimum 1).
func NewCoordinator(st store.ObjectStore, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}

	c := &Coordinator{
		store:       st,
		concurrency: concurrency,
		events:      make(chan taskEvent, 64),
		cmds:        make(chan command),
		closed:      make(chan struct{}),
		tasks:       make(map[string]*Task),
		batches:     make(map[string]*batchState),
		cancels:     make(map[string]context.CancelFunc),
	}

	go c.run()
	return c
}

// run is the single owner of the task collection. It lives for the
// coordinator's lifetime; Close only stops new submissions.
func (c *Coordinator) run() {
	for {
		select {
		case ev := <-c.events:
			c.apply(ev)
		case cmd := <-c.cmds:
			cmd()
		}
	}
}

func (c *Coordinator) apply(ev taskEvent) {
	task, ok := c.tasks[ev.taskID]
	if !ok || task.State.Terminal() {
		// Late events after Clear or double terminals are dropped.
		return
	}

	switch ev.kind {
	case evStarted:
		task.State = StateInProgress
	case evProgress:
		// Latest report wins, even if it arrived out of order.
		task.Progress = ev.progress
	case evDone:
		task.State = StateDone
		task.Progress = 100
		c.finishTask(task)
	case evFailed:
		task.State = StateFailed
		task.Error = ev.errText
		c.finishTask(task)
	}
}

func (c *Coordinator) finishTask(task *Task) {
	delete(c.cancels, task.ID)

	batch, ok := c.batches[task.BatchID]
	if !ok {
		return
	}
	batch.remaining--
	if batch.remaining == 0 {
		// Exactly once per batch: the batch is removed before close.
		delete(c.batches, task.BatchID)
		close(batch.done)
		logger.Debug("upload: batch %s complete", task.BatchID)
	}
}

// Submit accepts a batch of files for upload to targetPath. One task per
// file is appended to the tracked set immediately (state Pending); transfers
// start as worker slots free up.
func (c *Coordinator) Submit(ctx context.Context, files []File, targetPath string) (*Batch, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("submit: no files")
	}
	select {
	case <-c.closed:
		return nil, ErrClosed
	default:
	}

	for _, f := range files {
		if err := namespace.ValidateName(f.Name); err != nil {
			return nil, fmt.Errorf("submit %q: %w", f.Name, err)
		}
	}

	batchID := uuid.NewString()
	done := make(chan struct{})
	sem := make(chan struct{}, c.concurrency)

	type launch struct {
		task   *Task
		file   File
		cancel context.CancelFunc
		tctx   context.Context
	}
	launches := make([]launch, 0, len(files))

	registered := make(chan struct{})
	c.cmds <- func() {
		c.batches[batchID] = &batchState{remaining: len(files), done: done}
		for _, f := range files {
			task := &Task{
				ID:      uuid.NewString(),
				BatchID: batchID,
				Name:    f.Name,
				Key:     namespace.Join(targetPath, f.Name),
				State:   StatePending,
			}
			c.tasks[task.ID] = task
			c.order = append(c.order, task.ID)

			tctx, cancel := context.WithCancel(ctx)
			c.cancels[task.ID] = cancel
			launches = append(launches, launch{task: task, file: f, cancel: cancel, tctx: tctx})
		}
		close(registered)
	}
	<-registered

	for _, l := range launches {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			defer l.cancel()

			sem <- struct{}{}
			defer func() { <-sem }()

			c.transfer(l.tctx, l.task.ID, l.task.Key, l.file)
		}()
	}

	logger.Info("upload: batch %s submitted (%d files -> %q)", batchID, len(files), targetPath)
	return &Batch{ID: batchID, Done: done}, nil
}

// transfer runs one upload and reports its lifecycle as events.
func (c *Coordinator) transfer(ctx context.Context, taskID, key string, f File) {
	if err := ctx.Err(); err != nil {
		c.fail(ctx, taskID, key, err)
		return
	}

	c.events <- taskEvent{kind: evStarted, taskID: taskID}

	err := c.store.Put(ctx, key, f.Content, f.Size, func(transferred, total int64) {
		if total <= 0 {
			return
		}
		pct := int(transferred * 100 / total)
		if pct > 100 {
			pct = 100
		}
		select {
		case c.events <- taskEvent{kind: evProgress, taskID: taskID, progress: pct}:
		default:
			// Progress is advisory; dropping a report under backpressure
			// is fine, the next one supersedes it anyway.
		}
	})
	if err != nil {
		c.fail(ctx, taskID, key, err)
		return
	}

	c.events <- taskEvent{kind: evDone, taskID: taskID}
}

// fail marks the task failed. A cancelled upload gets the cancellation
// message and its destination key is deleted best-effort, so later conflict
// checks treat the key as not existing.
func (c *Coordinator) fail(ctx context.Context, taskID, key string, err error) {
	text := err.Error()
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		text = CancelMessage
		if delErr := c.store.Delete(context.Background(), key); delErr != nil {
			logger.Warn("upload: could not remove partial object %q: %v", key, delErr)
		}
	}
	c.events <- taskEvent{kind: evFailed, taskID: taskID, errText: text}
}

// Cancel aborts an in-flight upload. Tasks already terminal are unaffected.
func (c *Coordinator) Cancel(taskID string) {
	c.cmds <- func() {
		if cancel, ok := c.cancels[taskID]; ok {
			cancel()
		}
	}
}

// Clear removes all tasks currently in a terminal state. Pending and
// in-progress tasks are never cleared.
func (c *Coordinator) Clear() {
	done := make(chan struct{})
	c.cmds <- func() {
		kept := c.order[:0]
		for _, id := range c.order {
			task := c.tasks[id]
			if task.State.Terminal() {
				delete(c.tasks, id)
			} else {
				kept = append(kept, id)
			}
		}
		c.order = kept
		close(done)
	}
	<-done
}

// Snapshot returns a copy of all tracked tasks in submission order.
func (c *Coordinator) Snapshot() []Task {
	var out []Task
	done := make(chan struct{})
	c.cmds <- func() {
		out = make([]Task, 0, len(c.order))
		for _, id := range c.order {
			out = append(out, *c.tasks[id])
		}
		close(done)
	}
	<-done
	return out
}

// Close rejects further submissions and waits for in-flight uploads to
// finish reporting. The owner goroutine keeps serving snapshots afterwards.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
	c.wg.Wait()
}
