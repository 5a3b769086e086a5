package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/providers/http/client"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/coords"
	"github.com/gabriel-vasile/mimetype"
)

// Poster is the subset of the HTTP client the remote renderer needs. The
// client guards each host with a circuit breaker.
type Poster interface {
	PostJSON(ctx context.Context, target string, body any, header http.Header) (*client.Response, error)
}

// remoteBody is the JSON the screenshot API receives.
type remoteBody struct {
	URL     string  `json:"url"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
	Format  string  `json:"format"`
	Quality int     `json:"quality"`
}

// RemoteRenderer calls an external screenshot API.
type RemoteRenderer struct {
	poster  Poster
	url     string
	key     string
	quality int
	timeout time.Duration
}

// NewRemoteRenderer creates a renderer posting to endpoint. An empty
// endpoint leaves it unavailable.
func NewRemoteRenderer(poster Poster, endpoint, key string, quality int, timeout time.Duration) *RemoteRenderer {
	return &RemoteRenderer{poster: poster, url: strings.TrimSpace(endpoint), key: key, quality: quality, timeout: timeout}
}

func (r *RemoteRenderer) Name() string { return "remote" }

func (r *RemoteRenderer) Available() bool { return r.url != "" }

// Render makes one bounded call. The scroll offset is filled in only when
// the client reported the document size; otherwise the API centers x/y itself.
func (r *RemoteRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	body := remoteBody{
		URL:     req.URL,
		Width:   int(req.Viewport.Width),
		Height:  int(req.Viewport.Height),
		Format:  Format,
		Quality: r.quality,
	}
	if req.Position != nil {
		body.X, body.Y = req.Position.X, req.Position.Y
		if !req.Document.Empty() {
			scroll := coords.ScrollTarget(*req.Position, req.Document, req.Viewport)
			body.ScrollX, body.ScrollY = scroll.X, scroll.Y
		}
	}

	header := http.Header{}
	header.Set("Accept", "image/*")
	if r.key != "" {
		header.Set("Authorization", "Bearer "+r.key)
	}

	resp, err := r.poster.PostJSON(ctx, r.url, body, header)
	if err != nil {
		return nil, fmt.Errorf("screenshot api: %w", err)
	}
	if resp.Status >= http.StatusBadRequest {
		return nil, fmt.Errorf("screenshot api returned %d", resp.Status)
	}
	if len(resp.Body) == 0 {
		return nil, errors.New("screenshot api returned an empty body")
	}
	if mt := mimetype.Detect(resp.Body); !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("screenshot api returned %s, not an image", mt.String())
	}
	return resp.Body, nil
}
