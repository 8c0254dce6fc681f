package server

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// Video upload boundary
// -----------------------------------------------------------------------------

// uploadVideo accepts multipart form data (matchId field + file) and hands the
// whole payload to the object store under <matchId>/<unixms><ext>. The payload
// is read fully into memory before the single blocking store call.
func (s *APIServer) uploadVideo(c *gin.Context) {
	matchID := c.PostForm("matchId")
	if matchID == "" {
		c.JSON(400, gin.H{"error": "matchId is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(400, gin.H{"error": "file is required"})
		return
	}

	maxBytes := int64(s.Config.Upload.MaxUploadMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		c.JSON(400, gin.H{"error": fmt.Sprintf("file exceeds %d MB limit", s.Config.Upload.MaxUploadMB)})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid form data"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.Logger.Error("POST /api/uploadVideo read: %v", err)
		c.JSON(500, gin.H{"error": "Upload failed"})
		return
	}

	ext := path.Ext(fileHeader.Filename)
	if ext == "" {
		ext = ".mp4"
	}
	key := fmt.Sprintf("%s/%d%s", matchID, time.Now().UnixMilli(), ext)
	contentType := fileHeader.Header.Get("Content-Type")

	if err := s.Videos.Put(key, data, contentType); err != nil {
		s.Logger.Error("POST /api/uploadVideo store: %v", err)
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{
		"bucket": filepath.Base(s.Config.Upload.Dir),
		"key":    key,
	})
}
