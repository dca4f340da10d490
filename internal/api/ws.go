package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/upload"
)

const (
	taskStreamInterval = 250 * time.Millisecond
	writeTimeout       = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API is same-origin only in production; the UI dev server runs
	// on another port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type taskStreamMessage struct {
	Tasks []upload.Task `json:"tasks"`
}

// handleTaskStream pushes upload task snapshots whenever they change. The
// connection closes when the client goes away or the write fails.
func (s *Server) handleTaskStream(c *gin.Context) {
	if err := s.auth.Authorize(); err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("api: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Reader goroutine: the client sends nothing meaningful, but reading
	// is required to process close frames.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(taskStreamInterval)
	defer ticker.Stop()

	var last []upload.Task
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			tasks := s.drive.Tasks()
			if tasksEqual(last, tasks) {
				continue
			}
			last = tasks

			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(taskStreamMessage{Tasks: tasks}); err != nil {
				return
			}
		}
	}
}

func tasksEqual(a, b []upload.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
