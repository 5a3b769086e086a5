package http

import (
	"net/http"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// ListComments returns comments newest first, filtered by url, breakpoint
// and projectId.
func (h *Handlers) ListComments(c *gin.Context) {
	comments, err := h.comments.List(c.Request.Context(), types.CommentFilter{
		URL:        c.Query("url"),
		Breakpoint: c.Query("breakpoint"),
		ProjectID:  c.Query("projectId"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if comments == nil {
		comments = []*types.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateComment stores a positioned comment.
func (h *Handlers) CreateComment(c *gin.Context) {
	var req types.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.comments.Create(c.Request.Context(), middleware.IdentityFrom(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": created})
}

// UpdateComment edits text or the resolved flag; the last write wins.
func (h *Handlers) UpdateComment(c *gin.Context) {
	var req types.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.comments.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": updated})
}

// AttachScreenshot records a stored screenshot on the comment.
func (h *Handlers) AttachScreenshot(c *gin.Context) {
	var req types.ScreenshotRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Screenshot == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Screenshot URL required"})
		return
	}
	updated, err := h.comments.AttachScreenshot(c.Request.Context(), c.Param("id"), req.Screenshot)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comment": updated})
}

// DeleteComment removes one comment thread.
func (h *Handlers) DeleteComment(c *gin.Context) {
	if err := h.comments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddReply appends to a comment thread.
func (h *Handlers) AddReply(c *gin.Context) {
	var req types.ReplyRequest
	if !bindJSON(c, &req) {
		return
	}
	reply, updated, err := h.comments.AddReply(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reply": reply, "comment": updated})
}

// DeleteCommentsByURL removes every comment on a page. The path segment is
// the URI-component encoded page URL; the router matches on the raw path and
// unescapes the value.
func (h *Handlers) DeleteCommentsByURL(c *gin.Context) {
	page := c.Param("encodedUrl")
	if page == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}
	n, err := h.comments.DeleteByURL(c.Request.Context(), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deletedCount": n})
}
