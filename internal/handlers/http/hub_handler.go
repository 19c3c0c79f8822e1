package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"neurohub/internal/core/domain"
	"neurohub/internal/core/services"

	"github.com/gin-gonic/gin"
)

// HubHandler exposes the coordinator's read side over HTTP for dashboards
// and diagnostics. All reads go through the same serialized coordinator
// entry points as the WebSocket path.
type HubHandler struct {
	coordinator *services.Coordinator
	startedAt   time.Time
}

func NewHubHandler(coordinator *services.Coordinator) *HubHandler {
	return &HubHandler{
		coordinator: coordinator,
		startedAt:   time.Now(),
	}
}

func (h *HubHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/devices", h.ListDevices)
		api.GET("/sessions", h.ListSessions)
		api.GET("/sessions/:id/snapshot", h.SessionSnapshot)
	}
}

func (h *HubHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"uptime_s":    int64(time.Since(h.startedAt).Seconds()),
		"connections": h.coordinator.ConnectionCount(),
	})
}

func (h *HubHandler) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"devices": h.coordinator.Devices(),
	})
}

func (h *HubHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.coordinator.Sessions(),
	})
}

func (h *HubHandler) SessionSnapshot(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	lastN := 0
	if raw := c.Query("last_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "last_n must be a non-negative integer"})
			return
		}
		lastN = n
	}

	snapshot, err := h.coordinator.SnapshotInfo(sessionID, lastN)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
