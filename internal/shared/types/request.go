package types

import "github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"

// CreateCommentRequest is the body of POST /api/comments. Pointer fields
// distinguish "absent" from zero.
type CreateCommentRequest struct {
	URL        string           `json:"url"`
	X          *float64         `json:"x"`
	Y          *float64         `json:"y"`
	Breakpoint string           `json:"breakpoint"`
	Text       string           `json:"text"`
	Author     string           `json:"author"`
	ProjectID  string           `json:"projectId"`
	Metadata   *CaptureMetadata `json:"metadata"`
}

// UpdateCommentRequest is the body of PATCH /api/comments/:id.
type UpdateCommentRequest struct {
	Text     *string `json:"text"`
	Resolved *bool   `json:"resolved"`
}

// ScreenshotRequest attaches a stored screenshot reference to a comment.
type ScreenshotRequest struct {
	Screenshot string `json:"screenshot"`
}

// ReplyRequest is the body of POST /api/comments/:id/replies.
type ReplyRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
	Image  string `json:"image"`
}

// CreateReviewRequest is the body of POST /api/reviews.
type CreateReviewRequest struct {
	ProjectID       string      `json:"projectId"`
	BreakpointIndex *int        `json:"breakpointIndex"`
	Type            ReviewType  `json:"type"`
	Position        coords.Rect `json:"position"`
	Drawing         string      `json:"drawing"`
	Color           string      `json:"color"`
}

// ReviewCommentRequest is the body of POST /api/reviews/:id/comments.
type ReviewCommentRequest struct {
	Text string `json:"text"`
}

// ProjectRequest is the body of project create and update calls.
type ProjectRequest struct {
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	Breakpoints   []Breakpoint      `json:"breakpoints"`
	Canvas        *coords.Transform `json:"canvasState"`
	Collaborators []string          `json:"collaborators"`
	IsPublic      *bool             `json:"isPublic"`
}

// ShareRequest enables or reconfigures a share link. ExpiresIn is in days.
type ShareRequest struct {
	Password           string `json:"password"`
	ExpiresIn          int    `json:"expiresIn"`
	AllowGuestComments *bool  `json:"allowGuestComments"`
	AllowGuestDrawing  *bool  `json:"allowGuestDrawing"`
	RequireName        *bool  `json:"requireName"`
}

// VerifyShareRequest checks a share password without loading the project.
type VerifyShareRequest struct {
	Password string `json:"password"`
}

// CaptureRequest asks for a point-of-interest screenshot. The document
// size is optional; overlays report it with every ADD_COMMENT_REQUEST.
type CaptureRequest struct {
	URL            string   `json:"url"`
	X              *float64 `json:"x"`
	Y              *float64 `json:"y"`
	ViewportWidth  int      `json:"viewportWidth"`
	ViewportHeight int      `json:"viewportHeight"`
	DocumentWidth  float64  `json:"docWidth"`
	DocumentHeight float64  `json:"docHeight"`
}

// Base64UploadRequest uploads an image encoded as (optionally) a data URL.
type Base64UploadRequest struct {
	ImageData string `json:"imageData"`
	Filename  string `json:"filename"`
}

// UpsertUserRequest registers the caller in the mention directory.
type UpsertUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
