package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/overlay"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/proxy"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Proxy fetches ?url= with the ?browser= profile and serves it rewritten
// for embedding. ?breakpoint= binds the injected overlay to one frame.
func (h *Handlers) Proxy(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	res, err := h.proxy.FetchAndRewrite(c.Request.Context(), proxy.Request{
		Target:     target,
		Profile:    c.Query("browser"),
		BackendURL: h.backendURL(c),
		Breakpoint: c.Query("breakpoint"),
	})
	if err != nil {
		switch {
		case errors.Is(err, proxy.ErrBlockedHost):
			c.JSON(http.StatusForbidden, gin.H{"error": "Target host is blocked"})
		case errors.Is(err, proxy.ErrInvalidTarget):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid url parameter", "message": err.Error()})
		default:
			h.log.Warn("proxy failed", zap.String("url", target), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to proxy URL", "message": err.Error()})
		}
		return
	}

	for k, vs := range res.Header {
		for _, v := range vs {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	c.Data(res.Status, res.ContentType, res.Body)
}

// OverlayScript serves the embedded overlay with a content ETag.
func (h *Handlers) OverlayScript(c *gin.Context) {
	etag := h.script.ETag()
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	c.Header("Access-Control-Allow-Origin", "*")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, overlay.ContentType, h.script.Body())
}

// Markers returns RENDER_MARKERS for the comments matching the filter, so a
// parent controller can forward them to an overlay without reshaping.
func (h *Handlers) Markers(c *gin.Context) {
	breakpoint := c.DefaultQuery("breakpoint", "desktop")
	comments, err := h.comments.List(c.Request.Context(), types.CommentFilter{
		URL:        c.Query("url"),
		Breakpoint: breakpoint,
		ProjectID:  c.Query("projectId"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overlay.RenderMarkers(breakpoint, overlay.MarkersFor(comments)))
}
