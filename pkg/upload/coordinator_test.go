package upload

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittodrive/pkg/store/memory"
)

func waitBatch(t *testing.T, b *Batch) {
	t.Helper()
	select {
	case <-b.Done:
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not complete in time")
	}
}

func findTask(t *testing.T, tasks []Task, name string) Task {
	t.Helper()
	for _, task := range tasks {
		if task.Name == name {
			return task
		}
	}
	t.Fatalf("no task named %q", name)
	return Task{}
}

func TestSubmitUploadsAllFiles(t *testing.T) {
	s := memory.NewMemoryStore()
	c := NewCoordinator(s, 4)
	defer c.Close()

	batch, err := c.Submit(context.Background(), []File{
		{Name: "a.txt", Content: bytes.NewReader([]byte("aaa")), Size: 3},
		{Name: "b.txt", Content: bytes.NewReader([]byte("bb")), Size: 2},
	}, "docs")
	require.NoError(t, err)

	waitBatch(t, batch)

	assert.ElementsMatch(t, []string{"docs/a.txt", "docs/b.txt"}, s.Keys())

	tasks := c.Snapshot()
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, StateDone, task.State)
		assert.Equal(t, 100, task.Progress)
		assert.Empty(t, task.Error)
	}
}

// One success and one failure: the aggregate signal still fires once, and
// the failure does not abort its sibling.
func TestMixedOutcomeBatch(t *testing.T) {
	s := memory.NewMemoryStore()
	injected := errors.New("network sneezed")
	s.FailPut["ok-and-broken/bad.bin"] = injected

	c := NewCoordinator(s, 2)
	defer c.Close()

	batch, err := c.Submit(context.Background(), []File{
		{Name: "good.bin", Content: bytes.NewReader([]byte("fine")), Size: 4},
		{Name: "bad.bin", Content: bytes.NewReader([]byte("doomed")), Size: 6},
	}, "ok-and-broken")
	require.NoError(t, err)

	waitBatch(t, batch)

	tasks := c.Snapshot()
	good := findTask(t, tasks, "good.bin")
	bad := findTask(t, tasks, "bad.bin")

	assert.Equal(t, StateDone, good.State)
	assert.Equal(t, StateFailed, bad.State)
	assert.Contains(t, bad.Error, "network sneezed")

	assert.Equal(t, []string{"ok-and-broken/good.bin"}, s.Keys())
}

func TestSubmitRejectsInvalidNames(t *testing.T) {
	c := NewCoordinator(memory.NewMemoryStore(), 1)
	defer c.Close()

	_, err := c.Submit(context.Background(), []File{
		{Name: "../escape", Content: bytes.NewReader(nil), Size: 0},
	}, "")
	require.Error(t, err)

	_, err = c.Submit(context.Background(), nil, "")
	require.Error(t, err)
}

// slowReader trickles bytes out so a cancellation lands mid-transfer.
type slowReader struct {
	remaining int
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, nil // never finishes on its own within the test window
	}
	time.Sleep(2 * time.Millisecond)
	r.remaining--
	p[0] = 'x'
	return 1, nil
}

func TestCancelMarksTaskFailedAndRemovesPartial(t *testing.T) {
	s := memory.NewMemoryStore()
	c := NewCoordinator(s, 1)
	defer c.Close()

	batch, err := c.Submit(context.Background(), []File{
		{Name: "huge.bin", Content: &slowReader{remaining: 1 << 20}, Size: 1 << 20},
	}, "")
	require.NoError(t, err)

	// Wait until the transfer is actually running.
	var taskID string
	require.Eventually(t, func() bool {
		tasks := c.Snapshot()
		if len(tasks) == 1 && tasks[0].State == StateInProgress {
			taskID = tasks[0].ID
			return true
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)

	c.Cancel(taskID)
	waitBatch(t, batch)

	tasks := c.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, StateFailed, tasks[0].State)
	assert.Equal(t, CancelMessage, tasks[0].Error)

	// The destination key must be treated as not existing afterwards.
	assert.Empty(t, s.Keys())
}

func TestClearRemovesOnlyTerminalTasks(t *testing.T) {
	s := memory.NewMemoryStore()
	c := NewCoordinator(s, 2)
	defer c.Close()

	done, err := c.Submit(context.Background(), []File{
		{Name: "quick.txt", Content: bytes.NewReader([]byte("q")), Size: 1},
	}, "")
	require.NoError(t, err)
	waitBatch(t, done)

	_, err = c.Submit(context.Background(), []File{
		{Name: "slow.bin", Content: &slowReader{remaining: 1 << 20}, Size: 1 << 20},
	}, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		tasks := c.Snapshot()
		return len(tasks) == 2 && findTask(t, tasks, "slow.bin").State == StateInProgress
	}, 5*time.Second, 5*time.Millisecond)

	c.Clear()

	tasks := c.Snapshot()
	require.Len(t, tasks, 1)
	assert.Equal(t, "slow.bin", tasks[0].Name)

	// Let the in-flight task finish by cancelling it, then clear again.
	c.Cancel(tasks[0].ID)
	require.Eventually(t, func() bool {
		remaining := c.Snapshot()
		return len(remaining) == 1 && remaining[0].State.Terminal()
	}, 5*time.Second, 5*time.Millisecond)

	c.Clear()
	assert.Empty(t, c.Snapshot())
}

func TestProgressReachesSnapshot(t *testing.T) {
	s := memory.NewMemoryStore()
	c := NewCoordinator(s, 1)
	defer c.Close()

	payload := bytes.Repeat([]byte("p"), 256*1024)
	batch, err := c.Submit(context.Background(), []File{
		{Name: "file.bin", Content: bytes.NewReader(payload), Size: int64(len(payload))},
	}, "")
	require.NoError(t, err)

	waitBatch(t, batch)

	task := findTask(t, c.Snapshot(), "file.bin")
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, StateDone, task.State)
}
