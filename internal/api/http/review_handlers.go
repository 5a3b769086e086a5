package http

import (
	"net/http"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// ListReviews returns a project's canvas annotations.
func (h *Handlers) ListReviews(c *gin.Context) {
	reviews, err := h.reviews.ListByProject(c.Request.Context(), middleware.MustIdentity(c), c.Param("projectId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if reviews == nil {
		reviews = []*types.Review{}
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// CreateReview places a point, area or drawing annotation.
func (h *Handlers) CreateReview(c *gin.Context) {
	var req types.CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.reviews.Create(c.Request.Context(), middleware.MustIdentity(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": created})
}

// AddReviewComment appends to a review's discussion.
func (h *Handlers) AddReviewComment(c *gin.Context) {
	var req types.ReviewCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.reviews.AddComment(c.Request.Context(), middleware.MustIdentity(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": updated})
}

// ToggleReviewResolved flips the resolved flag.
func (h *Handlers) ToggleReviewResolved(c *gin.Context) {
	updated, err := h.reviews.ToggleResolve(c.Request.Context(), middleware.MustIdentity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": updated})
}

// DeleteReview is allowed for the creator and the project owner.
func (h *Handlers) DeleteReview(c *gin.Context) {
	if err := h.reviews.Delete(c.Request.Context(), middleware.MustIdentity(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted"})
}
