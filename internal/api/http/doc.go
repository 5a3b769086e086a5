// Package http provides HTTP handlers and routing for the review REST API.
//
// This package implements every endpoint using the Gin framework: the
// rewriting proxy, the overlay script, comments, canvas reviews, projects
// and share links, screenshot uploads and capture, and client log ingestion.
//
// Endpoints:
//   - Health: / and /health
//   - Proxy: /proxy?url=&browser=&breakpoint=, /overlay-script.js
//   - Comments: /api/comments, /api/comments/:id, /api/comments/url/:encodedUrl
//   - Reviews: /api/reviews/project/:projectId, /api/reviews/:id
//   - Projects: /api/projects, /api/projects/:id/share, /api/share/:token
//   - Uploads: /api/uploads/screenshot, /api/uploads/capture-screenshot
//
// Domain errors are mapped to status codes in one place (respondError); a
// handler never formats a 500 body itself.
//
// Example Usage:
//
//	h := http.NewHandlers(http.Deps{Proxy: svc, Comments: comments, ...})
//	h.Register(router, verifier, captureLimit)
package http
