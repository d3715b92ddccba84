package account

import (
	"errors"
	"io"
	"net/http"

	"github.com/edstack/storacct/internal/auth"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts account usage operations under the provided group.
func RegisterRoutes(group *gin.RouterGroup, repo *Repository) {
	handler := &httpHandler{repo: repo}
	group.GET("/account/usage", handler.getUsage)
	group.POST("/account/provision", handler.provisionAccount)
}

type httpHandler struct {
	repo *Repository
}

func (h *httpHandler) getUsage(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	usage, err := h.repo.GetUsage(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":     usage.UserID,
		"used_bytes":  usage.UsedBytes,
		"tier":        usage.Tier,
		"limit_bytes": usage.Tier.Limit(),
	})
}

type provisionRequest struct {
	Tier string `json:"tier"`
}

// provisionAccount seeds a usage row for the authenticated user. Idempotent:
// an existing account keeps its tier and usage.
func (h *httpHandler) provisionAccount(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req provisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tier := Tier(req.Tier)
	switch tier {
	case TierFree, TierPro, TierPremium:
	case "":
		tier = TierFree
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		return
	}

	if err := h.repo.EnsureAccount(c.Request.Context(), userID, tier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to provision account"})
		return
	}

	c.Status(http.StatusNoContent)
}
