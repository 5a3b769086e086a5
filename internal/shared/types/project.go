package types

import (
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
)

// Browser engines a breakpoint can hint at.
const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebkit   = "webkit"
	BrowserEdge     = "edge"
)

// Breakpoint is a named simulated viewport placed on the canvas.
type Breakpoint struct {
	Name    string  `json:"name"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Browser string  `json:"browser,omitempty"`
}

// DefaultBreakpoints seeds new projects.
func DefaultBreakpoints() []Breakpoint {
	return []Breakpoint{
		{Name: "Desktop", Width: 1440, Height: 900, X: 0, Y: 0, Browser: BrowserChromium},
		{Name: "Tablet", Width: 768, Height: 1024, X: 1540, Y: 0, Browser: BrowserChromium},
		{Name: "Mobile", Width: 375, Height: 812, X: 2408, Y: 0, Browser: BrowserChromium},
	}
}

// DefaultCanvas is the pan/zoom a new project opens with.
func DefaultCanvas() coords.Transform {
	return coords.Transform{Pan: coords.Point{}, Zoom: 0.5}
}

// ShareSettings controls guest access through a share link.
type ShareSettings struct {
	Enabled            bool       `json:"enabled"`
	Token              string     `json:"token,omitempty"`
	PasswordHash       string     `json:"passwordHash,omitempty"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	AllowGuestComments bool       `json:"allowGuestComments"`
	AllowGuestDrawing  bool       `json:"allowGuestDrawing"`
	RequireName        bool       `json:"requireName"`
}

// Valid reports whether the link is enabled, has a token and has not expired.
func (s ShareSettings) Valid(now time.Time) bool {
	if !s.Enabled || s.Token == "" {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// Participant records a best-effort visit through a share link.
type Participant struct {
	UserID     string    `json:"userId,omitempty"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email,omitempty"`
	AccessedAt time.Time `json:"accessedAt"`
}

// Project groups breakpoints, reviews and (by URL) comments.
type Project struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	URL           string           `json:"url"`
	Owner         string           `json:"owner"`
	Collaborators []string         `json:"collaborators"`
	Participants  []Participant    `json:"participants"`
	Breakpoints   []Breakpoint     `json:"breakpoints"`
	Canvas        coords.Transform `json:"canvasState"`
	IsPublic      bool             `json:"isPublic"`
	Share         ShareSettings    `json:"shareSettings"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// IsOwner reports whether userID owns the project.
func (p *Project) IsOwner(userID string) bool {
	return userID != "" && p.Owner == userID
}

// IsMember reports whether userID is the owner or a collaborator.
func (p *Project) IsMember(userID string) bool {
	if p.IsOwner(userID) {
		return true
	}
	for _, c := range p.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

// ProjectView is the client-facing projection of a project; it never carries
// the share password hash.
type ProjectView struct {
	Project
	HasPassword bool `json:"hasPassword"`
}

// View strips secrets for API responses.
func (p *Project) View() ProjectView {
	v := ProjectView{Project: *p, HasPassword: p.Share.PasswordHash != ""}
	v.Share.PasswordHash = ""
	return v
}
