package http

import (
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/paths"
	"github.com/gin-gonic/gin"
)

// Register mounts every REST route. captureLimit guards the screenshot
// renderer and may be nil.
func (h *Handlers) Register(router *gin.Engine, verifier *middleware.Verifier, captureLimit gin.HandlerFunc) {
	// Comment routes carry URI-component encoded page URLs in the path.
	router.UseRawPath = true
	router.UnescapePathValues = true

	authed := middleware.Authenticate(verifier)
	optional := middleware.OptionalAuth(verifier)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics/json", h.MetricsJSON)

	router.GET(paths.ProxyRoute, h.Proxy)
	router.GET(paths.OverlayScript, h.OverlayScript)
	router.GET(paths.ScreenshotsRoute+"/:name", h.ServeScreenshot)

	api := router.Group("/api")
	api.GET("/sync/config", h.SyncConfig)
	api.GET("/overlay/markers", h.Markers)
	api.POST("/logs", h.StreamLogs)

	comments := api.Group("/comments", optional)
	comments.GET("", h.ListComments)
	comments.POST("", h.CreateComment)
	comments.PATCH("/:id", h.UpdateComment)
	comments.PATCH("/:id/screenshot", h.AttachScreenshot)
	comments.DELETE("/:id", h.DeleteComment)
	comments.POST("/:id/replies", h.AddReply)
	comments.DELETE("/url/:encodedUrl", h.DeleteCommentsByURL)

	reviews := api.Group("/reviews", authed)
	reviews.GET("/project/:projectId", h.ListReviews)
	reviews.POST("", h.CreateReview)
	reviews.POST("/:id/comments", h.AddReviewComment)
	reviews.PATCH("/:id/resolve", h.ToggleReviewResolved)
	reviews.DELETE("/:id", h.DeleteReview)

	projects := api.Group("/projects")
	projects.GET("", authed, h.ListProjects)
	projects.POST("", authed, h.CreateProject)
	projects.GET("/:id", optional, h.GetProject)
	projects.PUT("/:id", authed, h.UpdateProject)
	projects.DELETE("/:id", authed, h.DeleteProject)
	projects.GET("/:id/participants", optional, h.Participants)
	projects.POST("/:id/share", authed, h.EnableShare)
	projects.GET("/:id/share", authed, h.GetShare)
	projects.DELETE("/:id/share", authed, h.DisableShare)

	api.GET("/share/:token", optional, h.OpenShare)
	api.POST("/share/:token/verify", h.VerifyShare)

	api.GET("/users/me", authed, h.CurrentUser)
	api.PUT("/users/me", authed, h.UpsertCurrentUser)

	uploads := api.Group("/uploads")
	uploads.POST("/screenshot", h.UploadScreenshot)
	uploads.POST("/screenshot-base64", h.UploadScreenshotBase64)
	capture := []gin.HandlerFunc{h.CaptureScreenshot}
	if captureLimit != nil {
		capture = append([]gin.HandlerFunc{captureLimit}, capture...)
	}
	uploads.POST("/capture-screenshot", capture...)
}
