package library

import (
	"errors"
	"net/http"

	"github.com/edstack/storacct/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts library operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/library/files", handler.registerFile)
	group.GET("/library/files", handler.listFiles)
	group.GET("/library/files/:fileID/download", handler.downloadFile)
	group.DELETE("/library/files/:fileID", handler.deleteFile)
	group.DELETE("/library/files", handler.deleteAllFiles)
}

type httpHandler struct {
	service *Service
}

type registerFileRequest struct {
	Name         string  `json:"name" binding:"required"`
	ObjectKey    string  `json:"object_key" binding:"required"`
	ThumbnailKey *string `json:"thumbnail_key"`
	ContentType  string  `json:"content_type"`
	SizeBytes    int64   `json:"size_bytes" binding:"min=0"`
}

func (h *httpHandler) registerFile(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req registerFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	file, err := h.service.Register(c.Request.Context(), userID, req.Name, req.ObjectKey, req.ThumbnailKey, req.ContentType, req.SizeBytes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register file"})
		return
	}

	c.JSON(http.StatusCreated, file)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	files, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list files"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	file, url, err := h.service.Download(c.Request.Context(), userID, fileID)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign download"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"file": file, "download_url": url})
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, fileID); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete file"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) deleteAllFiles(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	deleted, err := h.service.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete files"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
