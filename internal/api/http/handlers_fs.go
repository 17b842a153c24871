package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
)

// maxWriteSize caps PUT bodies. The file system itself has no limit;
// this protects the API from unbounded uploads.
const maxWriteSize = 16 << 20

// fsStatus maps a file system wire code to an HTTP status.
func fsStatus(code string) int {
	switch code {
	case "ENOENT":
		return http.StatusNotFound
	case "EEXIST", "ENOTEMPTY":
		return http.StatusConflict
	case "EINVAL", "ENOTDIR", "EISDIR":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fsError renders a file system failure with its wire code.
func fsError(c *gin.Context, err error) {
	code := vfs.Errno(err)
	c.JSON(fsStatus(code), gin.H{"error": err.Error(), "code": code})
}

// pathParam extracts the wildcard path segment. Gin keeps the leading
// slash on wildcard matches, which is exactly the absolute form the
// file system expects.
func pathParam(c *gin.Context) string {
	return c.Param("path")
}

// StatNode returns one node's metadata.
func (h *Handlers) StatNode(c *gin.Context) {
	node, err := h.fs.Stat(c.Request.Context(), pathParam(c))
	if err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// ListDir returns a directory's entries sorted by name.
func (h *Handlers) ListDir(c *gin.Context) {
	p := pathParam(c)
	entries, err := h.fs.ReadDir(c.Request.Context(), p)
	if err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"path":    p,
		"entries": entries,
		"count":   len(entries),
	})
}

// Mkdir creates a directory and any missing parents.
func (h *Handlers) Mkdir(c *gin.Context) {
	p := pathParam(c)
	if err := h.fs.Mkdir(c.Request.Context(), p); err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": p})
}

// Rmdir removes an empty directory.
func (h *Handlers) Rmdir(c *gin.Context) {
	p := pathParam(c)
	if err := h.fs.Rmdir(c.Request.Context(), p); err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": p})
}

// ReadFile streams a file's content with its sniffed MIME type.
func (h *Handlers) ReadFile(c *gin.Context) {
	p := pathParam(c)
	data, err := h.fs.ReadFile(c.Request.Context(), p)
	if err != nil {
		fsError(c, err)
		return
	}

	contentType := "application/octet-stream"
	if node, err := h.fs.Stat(c.Request.Context(), p); err == nil && node.MimeType != "" {
		contentType = node.MimeType
	}
	c.Data(http.StatusOK, contentType, data)
}

// WriteFile creates or replaces a file with the raw request body.
func (h *Handlers) WriteFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWriteSize)
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds write limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.fs.WriteFile(c.Request.Context(), pathParam(c), data)
	if err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// DeleteFile removes a file.
func (h *Handlers) DeleteFile(c *gin.Context) {
	p := pathParam(c)
	if err := h.fs.DeleteFile(c.Request.Context(), p); err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": p})
}

// movePayload names a source and destination for rename and copy.
type movePayload struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

// Rename moves a node, directories and their subtrees included.
func (h *Handlers) Rename(c *gin.Context) {
	var req movePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fs.Rename(c.Request.Context(), req.From, req.To); err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "from": req.From, "to": req.To})
}

// Copy duplicates a node under a new path and returns the new root.
func (h *Handlers) Copy(c *gin.Context) {
	var req movePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.fs.Copy(c.Request.Context(), req.From, req.To)
	if err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// Glob matches nodes against a ** pattern.
func (h *Handlers) Glob(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pattern is required"})
		return
	}

	matches, err := h.fs.Glob(c.Request.Context(), pattern)
	if err != nil {
		fsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pattern": pattern,
		"matches": matches,
		"count":   len(matches),
	})
}
