package realtime

import "strings"

// Server events.
const (
	EventConnected      = "connected"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventCommentAdded   = "comment-added"
	EventCommentUpdated = "comment-updated"
	EventCommentDeleted = "comment-deleted"
	EventReviewAdded    = "review-added"
	EventReviewUpdated  = "review-updated"
	EventReviewDeleted  = "review-deleted"
	EventCursorUpdate   = "cursor-update"
	EventDrawingStart   = "drawing-start"
	EventDrawingUpdate  = "drawing-update"
	EventDrawingEnd     = "drawing-end"
	EventPong           = "pong"
	EventError          = "error"
)

const projectRoomPrefix = "project:"

// ProjectRoom names the room shared by every viewer of a project.
func ProjectRoom(projectID string) string {
	return projectRoomPrefix + projectID
}

// IsProjectRoom reports whether room is project scoped.
func IsProjectRoom(room string) bool {
	return strings.HasPrefix(room, projectRoomPrefix)
}

// RoomFor picks the project room when a project is known, else the URL room.
func RoomFor(projectID, url string) string {
	if projectID != "" {
		return ProjectRoom(projectID)
	}
	return url
}

// Envelope is the JSON frame exchanged in both directions.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
