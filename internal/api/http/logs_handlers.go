package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Client log ingestion limits.
const (
	maxLogEntries    = 100
	maxLogMessageLen = 2000
)

// clientSources are the frontends allowed to ship logs.
var clientSources = map[string]bool{"overlay": true, "review-ui": true}

// ClientLogEntry is one log line from a browser frontend.
type ClientLogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
}

// ClientLogRequest is a batch of client log lines.
type ClientLogRequest struct {
	Source  string           `json:"source"`
	Page    string           `json:"page"`
	Entries []ClientLogEntry `json:"entries"`
}

// StreamLogs relays overlay and review UI logs into the server log, so
// failures inside proxied pages are visible without a devtools session.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req ClientLogRequest
	if !bindJSON(c, &req) {
		return
	}
	if !clientSources[req.Source] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	}

	entries := req.Entries
	if len(entries) > maxLogEntries {
		entries = entries[:maxLogEntries]
	}
	logger := h.log.Component("client").With(zap.String("source", req.Source), zap.String("page", req.Page))
	for _, e := range entries {
		logClientEntry(logger.Logger, e)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_received":  len(req.Entries),
		"entries_processed": len(entries),
		"timestamp":         time.Now().Unix(),
	})
}

func logClientEntry(logger *zap.Logger, e ClientLogEntry) {
	msg := e.Message
	if len(msg) > maxLogMessageLen {
		msg = msg[:maxLogMessageLen]
	}

	fields := make([]zap.Field, 0, len(e.Context)+1)
	fields = append(fields, zap.String("client_timestamp", e.Timestamp))
	for key, value := range e.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch e.Level {
	case "error":
		logger.Error(msg, fields...)
	case "warn":
		logger.Warn(msg, fields...)
	case "debug", "verbose":
		logger.Debug(msg, fields...)
	default:
		logger.Info(msg, fields...)
	}
}
