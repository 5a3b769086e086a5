// Package types provides the shared data structures for the ReviewCanvas backend.
//
// Core Types:
//   - Comment, Reply, CaptureMetadata: positioned page comments
//   - Review, ReviewComment: freeform canvas annotations
//   - Project, Breakpoint, ShareSettings, Participant: review projects
//   - User, Identity: directory entries and authenticated callers
//
// Request Types:
//   - CreateCommentRequest, ReplyRequest, CreateReviewRequest, ...: REST bodies
//
// Errors:
//   - ErrNotFound, ErrForbidden, ErrInvalidInput, ...: sentinel errors mapped
//     to HTTP status codes by the api/http package
//
// Example Usage:
//
//	comment := &types.Comment{
//	    ID:         string(id.NewCommentID()),
//	    URL:        "https://example.com/",
//	    X:          50,
//	    Y:          12.5,
//	    Breakpoint: types.DefaultBreakpoint,
//	}
package types
