// Package notify delivers mention notifications to the outbound notification
// service. Formatting and transport (email) belong to that service; this
// package only hands it structured events.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/providers/http/client"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"go.uber.org/zap"
)

// KindMention is the only notification kind today.
const KindMention = "mention"

// Notification tells one user they were mentioned.
type Notification struct {
	Kind      string     `json:"kind"`
	Recipient types.User `json:"recipient"`
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	URL       string     `json:"url"`
	ProjectID string     `json:"projectId,omitempty"`
	CommentID string     `json:"commentId"`
	IsReply   bool       `json:"isReply"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Dispatcher delivers a notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// LogDispatcher records notifications in the log. Used when no webhook is configured.
type LogDispatcher struct {
	log *logging.Logger
}

func NewLogDispatcher(log *logging.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.Component("notify")}
}

func (d *LogDispatcher) Dispatch(_ context.Context, n Notification) error {
	d.log.Info("mention",
		zap.String("recipient", n.Recipient.ID),
		zap.String("author", n.Author),
		zap.String("comment_id", n.CommentID),
		zap.Bool("is_reply", n.IsReply))
	return nil
}

// Poster is the subset of the HTTP client the webhook needs.
type Poster interface {
	PostJSON(ctx context.Context, target string, body any, header http.Header) (*client.Response, error)
}

// WebhookDispatcher posts each notification as JSON.
type WebhookDispatcher struct {
	poster Poster
	url    string
}

func NewWebhookDispatcher(poster Poster, url string) *WebhookDispatcher {
	return &WebhookDispatcher{poster: poster, url: url}
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, n Notification) error {
	resp, err := d.poster.PostJSON(ctx, d.url, n, nil)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	if resp.Status >= http.StatusBadRequest {
		return fmt.Errorf("notify webhook returned %d", resp.Status)
	}
	return nil
}
