package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// ListProjects returns the projects the caller owns or collaborates on.
func (h *Handlers) ListProjects(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context(), middleware.MustIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	views := make([]types.ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, p.View())
	}
	c.JSON(http.StatusOK, gin.H{"projects": views})
}

func (h *Handlers) CreateProject(c *gin.Context) {
	var req types.ProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.projects.Create(c.Request.Context(), middleware.MustIdentity(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p.View()})
}

func (h *Handlers) GetProject(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p.View()})
}

func (h *Handlers) UpdateProject(c *gin.Context) {
	var req types.ProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.projects.Update(c.Request.Context(), middleware.MustIdentity(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p.View()})
}

func (h *Handlers) DeleteProject(c *gin.Context) {
	if err := h.projects.Delete(c.Request.Context(), middleware.MustIdentity(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// Participants lists owner, collaborators and share-link guests.
func (h *Handlers) Participants(c *gin.Context) {
	members, err := h.projects.Participants(c.Request.Context(), middleware.IdentityFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": members})
}

// EnableShare (re)issues the share link.
func (h *Handlers) EnableShare(c *gin.Context) {
	var req types.ShareRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.projects.EnableShare(c.Request.Context(), middleware.MustIdentity(c), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shareBody(p))
}

func (h *Handlers) GetShare(c *gin.Context) {
	p, err := h.projects.ShareSettings(c.Request.Context(), middleware.MustIdentity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shareBody(p))
}

func (h *Handlers) DisableShare(c *gin.Context) {
	p, err := h.projects.DisableShare(c.Request.Context(), middleware.MustIdentity(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shareBody(p))
}

func shareBody(p *types.Project) gin.H {
	v := p.View()
	return gin.H{"shareSettings": v.Share, "hasPassword": v.HasPassword}
}

// sharedProject is what a share-link visitor sees.
type sharedProject struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	URL         string             `json:"url"`
	Breakpoints []types.Breakpoint `json:"breakpoints"`
	Canvas      coords.Transform   `json:"canvasState"`
	Owner       gin.H              `json:"owner"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// OpenShare loads a project through its share link. The password comes from
// X-Share-Password or ?password=, an anonymous guest's name from ?name=.
func (h *Handlers) OpenShare(c *gin.Context) {
	password := c.GetHeader("X-Share-Password")
	if password == "" {
		password = c.Query("password")
	}
	who := middleware.IdentityFrom(c)

	p, err := h.projects.OpenShare(c.Request.Context(), c.Param("token"), password, who, c.Query("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	ownerName := ""
	if u, err := h.projects.User(c.Request.Context(), p.Owner); err == nil {
		ownerName = u.Name
	}
	var user gin.H
	if who != nil {
		user = gin.H{"id": who.ID, "name": who.Name}
	}
	c.JSON(http.StatusOK, gin.H{
		"project": sharedProject{
			ID:          p.ID,
			Name:        p.Name,
			URL:         p.URL,
			Breakpoints: p.Breakpoints,
			Canvas:      p.Canvas,
			Owner:       gin.H{"name": ownerName},
			CreatedAt:   p.CreatedAt,
		},
		"permissions": gin.H{
			"allowGuestComments": p.Share.AllowGuestComments,
			"allowGuestDrawing":  p.Share.AllowGuestDrawing,
			"requireName":        p.Share.RequireName,
		},
		"isAuthenticated": who != nil,
		"user":            user,
	})
}

// VerifyShare checks a share password without recording a visit.
func (h *Handlers) VerifyShare(c *gin.Context) {
	var req types.VerifyShareRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.projects.VerifyShare(c.Request.Context(), c.Param("token"), req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true, "requiresPassword": p.Share.PasswordHash != ""})
	case errors.Is(err, types.ErrPasswordRequired), errors.Is(err, types.ErrPasswordInvalid):
		c.JSON(http.StatusOK, gin.H{"valid": false, "requiresPassword": true})
	case errors.Is(err, types.ErrShareExpired):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid share link"})
	default:
		h.respondError(c, err)
	}
}

// CurrentUser returns the caller's directory entry.
func (h *Handlers) CurrentUser(c *gin.Context) {
	who := middleware.MustIdentity(c)
	u, err := h.projects.User(c.Request.Context(), who.ID)
	if errors.Is(err, types.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"user": types.User{ID: who.ID, Name: who.Name, Email: who.Email}})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// UpsertCurrentUser registers the caller in the mention directory.
func (h *Handlers) UpsertCurrentUser(c *gin.Context) {
	var req types.UpsertUserRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	u, err := h.projects.UpsertUser(c.Request.Context(), middleware.MustIdentity(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
