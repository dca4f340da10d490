package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/mutation"
	"github.com/marmos91/dittodrive/pkg/namespace"
	"github.com/marmos91/dittodrive/pkg/upload"
)

type sessionRequest struct {
	UID string `json:"uid" binding:"required"`
}

func (s *Server) handleSignIn(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.auth.SetCurrent(req.UID)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSignOut(c *gin.Context) {
	s.auth.SetCurrent("")
	c.Status(http.StatusNoContent)
}

// sortEntries orders a listing for presentation: folders before files,
// case-insensitive name order within each group. The resolver preserves
// store order; the API owns display determinism.
func sortEntries(entries []namespace.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsFolder() != entries[j].IsFolder() {
			return entries[i].IsFolder()
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

func (s *Server) handleList(c *gin.Context) {
	path := c.Query("path")

	entries, err := s.drive.List(c.Request.Context(), path)
	if err != nil {
		fail(c, err)
		return
	}

	sortEntries(entries)
	c.JSON(http.StatusOK, gin.H{"path": path, "entries": entries})
}

func (s *Server) handleDownloadURL(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	url, err := s.drive.DownloadURL(c.Request.Context(), path)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

type createFolderRequest struct {
	Parent string `json:"parent"`
	Name   string `json:"name" binding:"required"`
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.drive.CreateFolder(c.Request.Context(), req.Parent, req.Name); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) handleDeleteFile(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	if err := s.drive.DeleteFile(c.Request.Context(), path); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteFolder(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	if err := s.drive.DeleteFolder(c.Request.Context(), path); err != nil {
		var partial *mutation.PartialError
		if errors.As(err, &partial) {
			c.JSON(http.StatusMultiStatus, gin.H{
				"error":     partial.Error(),
				"surviving": partial.FailedPaths(),
			})
			return
		}
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type moveRequest struct {
	Path     string `json:"path" binding:"required"`
	IsFolder bool   `json:"isFolder"`
	Target   string `json:"target"`
}

func (s *Server) handleMove(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := mutation.Item{Path: req.Path, IsFolder: req.IsFolder}
	conflict, err := s.drive.Move(c.Request.Context(), item, req.Target)
	if err != nil {
		fail(c, err)
		return
	}
	if conflict != nil {
		c.JSON(http.StatusConflict, gin.H{"conflict": conflict})
		return
	}
	c.Status(http.StatusNoContent)
}

type renameRequest struct {
	Path     string `json:"path" binding:"required"`
	IsFolder bool   `json:"isFolder"`
	NewName  string `json:"newName" binding:"required"`
}

func (s *Server) handleRename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := mutation.Item{Path: req.Path, IsFolder: req.IsFolder}
	conflict, err := s.drive.Rename(c.Request.Context(), item, req.NewName)
	if err != nil {
		fail(c, err)
		return
	}
	if conflict != nil {
		c.JSON(http.StatusConflict, gin.H{"conflict": conflict})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleUpload accepts a multipart form with a "path" field and one or more
// "files" parts. File contents are buffered before submission: the
// coordinator outlives the request, multipart temp files do not.
func (s *Server) handleUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	targetPath := c.PostForm("path")
	parts := form.File["files"]
	if len(parts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	files := make([]upload.File, 0, len(parts))
	for _, part := range parts {
		src, err := part.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files = append(files, upload.File{
			Name:    filepath.Base(part.Filename),
			Content: bytes.NewReader(data),
			Size:    int64(len(data)),
		})
	}

	batch, conflict, err := s.drive.Upload(c.Request.Context(), files, targetPath)
	if err != nil {
		fail(c, err)
		return
	}
	if conflict != nil {
		c.JSON(http.StatusConflict, gin.H{"conflict": conflict})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"batchId": batch.ID})
}

func (s *Server) handleTasks(c *gin.Context) {
	if err := s.auth.Authorize(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": s.drive.Tasks()})
}

func (s *Server) handleClearTasks(c *gin.Context) {
	if err := s.auth.Authorize(); err != nil {
		fail(c, err)
		return
	}
	s.drive.ClearTasks()
	c.Status(http.StatusNoContent)
}

// handleCancelTask aborts one upload. Cancellation deletes the partial
// object behind it, so it is gated like every other mutation.
func (s *Server) handleCancelTask(c *gin.Context) {
	if err := s.auth.Authorize(); err != nil {
		fail(c, err)
		return
	}
	s.drive.CancelUpload(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePendingConflict(c *gin.Context) {
	if err := s.auth.Authorize(); err != nil {
		fail(c, err)
		return
	}
	conflict := s.drive.Pending()
	if conflict == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflict": conflict})
}

type resolveRequest struct {
	Token  string           `json:"token" binding:"required"`
	Choice drive.Resolution `json:"choice" binding:"required,oneof=replace keep_both cancel"`
}

func (s *Server) handleResolveConflict(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, err := s.drive.Resolve(c.Request.Context(), req.Token, req.Choice)
	if err != nil {
		fail(c, err)
		return
	}
	if batch != nil {
		c.JSON(http.StatusAccepted, gin.H{"batchId": batch.ID})
		return
	}
	c.Status(http.StatusNoContent)
}
