package http

import (
	"net/http"
	"strings"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/blob"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/capture"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/comment"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/project"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/review"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/overlay"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/proxy"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/realtime"
	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Deps groups everything the handlers serve.
type Deps struct {
	Proxy    *proxy.Service
	Script   *overlay.Script
	Comments *comment.Manager
	Reviews  *review.Manager
	Projects *project.Manager
	Blobs    *blob.LocalStore
	Capture  *capture.Service
	Hub      *realtime.Hub

	CaptureSettings capture.Settings
	Sync            config.SyncConfig
	// PublicURL overrides the request-derived backend base.
	PublicURL string

	Metrics *monitoring.Metrics
	Logger  *logging.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	proxy    *proxy.Service
	script   *overlay.Script
	comments *comment.Manager
	reviews  *review.Manager
	projects *project.Manager
	blobs    *blob.LocalStore
	capture  *capture.Service
	hub      *realtime.Hub

	captureSettings capture.Settings
	sync            config.SyncConfig
	publicURL       string

	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(d Deps) *Handlers {
	log := d.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{
		proxy:           d.Proxy,
		script:          d.Script,
		comments:        d.Comments,
		reviews:         d.Reviews,
		projects:        d.Projects,
		blobs:           d.Blobs,
		capture:         d.Capture,
		hub:             d.Hub,
		captureSettings: d.CaptureSettings,
		sync:            d.Sync,
		publicURL:       strings.TrimRight(d.PublicURL, "/"),
		metrics:         d.Metrics,
		log:             log.Component("api"),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ReviewCanvas backend",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"capture": gin.H{"enabled": h.capture != nil && h.capture.Enabled()},
	}
	if h.hub != nil {
		body["realtime"] = gin.H{"rooms": h.hub.RoomCount()}
	}
	if h.blobs != nil {
		body["uploads"] = gin.H{"saved": h.blobs.Saved()}
	}
	c.JSON(http.StatusOK, body)
}

// backendURL is the base baked into overlay bootstrap values.
func (h *Handlers) backendURL(c *gin.Context) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + c.Request.Host
}
