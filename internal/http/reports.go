package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-manager/internal/repository"
	"library-manager/internal/storage"
)

const exportPageSize = 100

// exportBorrows walks the full borrow history and archives it as a JSON
// report in object storage.
func (h *Handler) exportBorrows(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "storage service not configured"})
		return
	}
	principal, ok2 := principalFrom(c)
	if !ok2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
		return
	}

	var records []BorrowResponse
	for page := 0; ; page++ {
		result, err := h.lending.History(c.Request.Context(), principal, repository.PageRequest{Page: page, Size: exportPageSize})
		if err != nil {
			writeError(c, err)
			return
		}
		records = append(records, borrowsToResponse(result.Items)...)
		if !result.HasNext() {
			break
		}
	}

	body, err := json.MarshalIndent(gin.H{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"record_count": len(records),
		"records":      records,
	}, "", "  ")
	if err != nil {
		writeError(c, err)
		return
	}

	key := fmt.Sprintf("%s/borrows/borrows-%s.json", h.prefix, time.Now().UTC().Format("20060102T150405"))
	location, err := h.storage.UploadReport(c.Request.Context(), h.bucket, key, "application/json", body)
	if err != nil {
		writeError(c, err)
		return
	}

	ok(c, gin.H{"location": location, "record_count": len(records)})
}

func (h *Handler) listReportObjects(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "storage service not configured"})
		return
	}

	prefix := c.DefaultQuery("prefix", h.prefix)
	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, prefix)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	ok(c, resp)
}

// getReportObjectURL issues a short-lived presigned download link for an
// archived report.
func (h *Handler) getReportObjectURL(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "storage service not configured"})
		return
	}

	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "key query parameter is required"})
		return
	}

	url, err := h.storage.GetObjectURL(c.Request.Context(), h.bucket, key, 15*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"key": key, "url": url})
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
