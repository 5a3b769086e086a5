package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SyncConfig advertises the polling contract so intervals stay server owned.
func (h *Handlers) SyncConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"commentsPollMs":     h.sync.CommentsPoll.Milliseconds(),
		"participantsPollMs": h.sync.ParticipantsPoll.Milliseconds(),
	})
}

// MetricsJSON returns the counters behind the dashboard.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	body := gin.H{"timestamp": time.Now()}
	if h.metrics != nil {
		body["backend"] = h.metrics.Snapshot()
	}
	if h.hub != nil {
		body["rooms"] = h.hub.RoomCount()
	}
	c.JSON(http.StatusOK, body)
}
