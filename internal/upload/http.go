package upload

import (
	"errors"
	"net/http"
	"time"

	"github.com/edstack/storacct/internal/auth"
	"github.com/edstack/storacct/internal/ledger"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts upload operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/uploads/url", handler.issueUploadURL)
	group.POST("/uploads/confirm", handler.confirmUpload)
}

type httpHandler struct {
	service *Service
}

type issueURLRequest struct {
	ObjectKey        string `json:"object_key" binding:"required"`
	ContentType      string `json:"content_type"`
	SizeBytes        int64  `json:"size_bytes" binding:"min=0"`
	BucketClass      string `json:"bucket_class"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

func (h *httpHandler) issueUploadURL(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req issueURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	class, ok := parseClass(req.BucketClass)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket class"})
		return
	}

	grant, err := h.service.IssuePresignedUpload(c.Request.Context(), IssueRequest{
		UserID:      userID,
		ObjectKey:   req.ObjectKey,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Class:       class,
		ExpiresIn:   time.Duration(req.ExpiresInSeconds) * time.Second,
	})
	if err != nil {
		if errors.Is(err, ErrPolicyViolation) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue upload url"})
		return
	}

	c.JSON(http.StatusCreated, grant)
}

type confirmRequest struct {
	ObjectKey   string `json:"object_key" binding:"required"`
	BucketClass string `json:"bucket_class"`
}

func (h *httpHandler) confirmUpload(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	class, ok := parseClass(req.BucketClass)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bucket class"})
		return
	}

	confirmation, err := h.service.ConfirmUpload(c.Request.Context(), ConfirmRequest{
		UserID:    userID,
		ObjectKey: req.ObjectKey,
		Class:     class,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrObjectMissing):
			c.JSON(http.StatusNotFound, gin.H{"error": "object has not been uploaded"})
		case errors.Is(err, ledger.ErrObjectNotTracked):
			c.JSON(http.StatusNotFound, gin.H{"error": "object not tracked"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to confirm upload"})
		}
		return
	}

	c.JSON(http.StatusOK, confirmation)
}

func parseClass(raw string) (ledger.BucketClass, bool) {
	if raw == "" {
		return ledger.ClassPersistent, true
	}
	class := ledger.BucketClass(raw)
	if !class.Valid() {
		return "", false
	}
	return class, true
}
