package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/realtime"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/utils"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client events.
const (
	eventJoinSession   = "join-session"
	eventLeaveSession  = "leave-session"
	eventJoinProject   = "join-project"
	eventLeaveProject  = "leave-project"
	eventAddComment    = "add-comment"
	eventUpdateComment = "update-comment"
	eventDeleteComment = "delete-comment"
	eventCursorMove    = "cursor-move"
	eventPing          = "ping"
)

// Projects gates project room membership. A nil Projects admits everyone.
type Projects interface {
	Get(ctx context.Context, who *types.Identity, projectID string) (*types.Project, error)
}

// Options tunes the connection lifecycle.
type Options struct {
	SendQueue      int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	// CheckOrigin overrides the upgrader's origin check; nil allows any origin.
	CheckOrigin func(r *http.Request) bool
}

// DefaultOptions returns the production connection settings.
func DefaultOptions() Options {
	return Options{
		SendQueue:      64,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 64 << 10,
	}
}

// Handler manages WebSocket connections
type Handler struct {
	hub      *realtime.Hub
	projects Projects
	opts     Options
	upgrader websocket.Upgrader
	metrics  *monitoring.Metrics
	log      *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *realtime.Hub, projects Projects, opts Options, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	def := DefaultOptions()
	if opts.WriteWait <= 0 {
		opts.WriteWait = def.WriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = def.PongWait
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.PongWait {
		opts.PingInterval = opts.PongWait * 9 / 10
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = def.MaxMessageSize
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		// Proxied pages connect from the backend origin, the review UI from its own.
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		hub:      hub,
		projects: projects,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		metrics:  metrics,
		log:      log.Component("ws"),
	}
}

// inbound is a client frame whose payload is decoded per event.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomRef struct {
	URL       string `json:"url"`
	ProjectID string `json:"projectId"`
}

func (r roomRef) room() string {
	return realtime.RoomFor(r.ProjectID, r.URL)
}

type commentRelay struct {
	roomRef
	Comment   json.RawMessage `json:"comment"`
	CommentID string          `json:"commentId"`
}

type cursorMove struct {
	roomRef
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Author string  `json:"author"`
}

type cursorUpdate struct {
	SocketID string  `json:"socketId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Author   string  `json:"author"`
}

type socketRef struct {
	SocketID string `json:"socketId"`
}

type errorFrame struct {
	Message string `json:"message"`
}

// conn is one accepted socket.
type conn struct {
	ws     *websocket.Conn
	client *realtime.Client
	who    *types.Identity
	ctx    context.Context
}

// HandleConnection upgrades the request and serves the socket until either
// side closes it.
func (h *Handler) HandleConnection(c *gin.Context) {
	wsConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cn := &conn{
		ws:     wsConn,
		client: realtime.NewClient(uuid.NewString(), h.opts.SendQueue),
		who:    middleware.IdentityFrom(c),
		ctx:    context.WithoutCancel(c.Request.Context()),
	}
	h.hub.Register(cn.client)
	h.metrics.IncWSConnections()
	h.log.Debug("socket connected", zap.String("socket_id", cn.client.ID))

	go h.writePump(cn)
	h.hub.Emit(cn.client, realtime.EventConnected, socketRef{SocketID: cn.client.ID})
	h.readPump(cn)

	for _, room := range h.hub.Unregister(cn.client) {
		h.hub.Broadcast(room, realtime.EventUserLeft, socketRef{SocketID: cn.client.ID})
	}
	h.metrics.DecWSConnections()
	h.log.Debug("socket disconnected", zap.String("socket_id", cn.client.ID))
}

// readPump dispatches client frames until the connection fails or the
// read deadline passes without a pong.
func (h *Handler) readPump(cn *conn) {
	defer cn.ws.Close()

	cn.ws.SetReadLimit(h.opts.MaxMessageSize)
	_ = cn.ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	cn.ws.SetPongHandler(func(string) error {
		return cn.ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	for {
		_, frame, err := cn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.String("socket_id", cn.client.ID), zap.Error(err))
			}
			return
		}
		if cn.client.Closed() {
			return
		}

		var msg inbound
		if err := sonic.Unmarshal(frame, &msg); err != nil || msg.Event == "" {
			h.sendError(cn, "malformed frame")
			continue
		}
		h.metrics.RecordWSMessage("in", msg.Event)
		h.dispatch(cn, msg)
	}
}

// writePump drains the client queue onto the socket and keeps it alive
// with pings. It exits when the hub closes the queue.
func (h *Handler) writePump(cn *conn) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		cn.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-cn.client.Send():
			_ = cn.ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if !ok {
				_ = cn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cn.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = cn.ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := cn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) dispatch(cn *conn, msg inbound) {
	switch msg.Event {
	case eventJoinSession, eventLeaveSession:
		var ref roomRef
		if !h.decode(cn, msg, &ref) || !h.require(cn, ref.URL != "", "url required") {
			return
		}
		// URL rooms share a namespace with project rooms, so only page URLs qualify
		if _, err := utils.ParseHTTPURL(ref.URL); err != nil {
			h.sendError(cn, "url must be an absolute http(s) url")
			return
		}
		h.membership(cn, ref.URL, msg.Event == eventJoinSession)

	case eventJoinProject, eventLeaveProject:
		var ref roomRef
		if !h.decode(cn, msg, &ref) || !h.require(cn, ref.ProjectID != "", "projectId required") {
			return
		}
		join := msg.Event == eventJoinProject
		if join && !h.canJoin(cn, ref.ProjectID) {
			h.sendError(cn, "project not accessible")
			return
		}
		h.membership(cn, realtime.ProjectRoom(ref.ProjectID), join)

	case eventAddComment, eventUpdateComment:
		var rel commentRelay
		if !h.decode(cn, msg, &rel) || !h.require(cn, rel.room() != "" && len(rel.Comment) > 0, "room and comment required") {
			return
		}
		event := realtime.EventCommentAdded
		if msg.Event == eventUpdateComment {
			event = realtime.EventCommentUpdated
		}
		h.relay(cn, rel.room(), event, rel.Comment)

	case eventDeleteComment:
		var rel commentRelay
		if !h.decode(cn, msg, &rel) || !h.require(cn, rel.room() != "" && rel.CommentID != "", "room and commentId required") {
			return
		}
		h.relay(cn, rel.room(), realtime.EventCommentDeleted, map[string]string{"id": rel.CommentID})

	case eventCursorMove:
		var mv cursorMove
		if !h.decode(cn, msg, &mv) || !h.require(cn, mv.room() != "", "room required") {
			return
		}
		h.relay(cn, mv.room(), realtime.EventCursorUpdate, cursorUpdate{
			SocketID: cn.client.ID,
			X:        mv.X,
			Y:        mv.Y,
			Author:   mv.Author,
		})

	case realtime.EventDrawingStart, realtime.EventDrawingUpdate, realtime.EventDrawingEnd:
		var payload map[string]any
		if !h.decode(cn, msg, &payload) {
			return
		}
		url, _ := payload["url"].(string)
		projectID, _ := payload["projectId"].(string)
		room := realtime.RoomFor(projectID, url)
		if !h.require(cn, room != "", "room required") {
			return
		}
		payload["socketId"] = cn.client.ID
		h.relay(cn, room, msg.Event, payload)

	case eventPing:
		h.hub.Emit(cn.client, realtime.EventPong, nil)

	default:
		h.sendError(cn, "unknown event: "+msg.Event)
	}
}

func (h *Handler) membership(cn *conn, room string, join bool) {
	if join {
		if h.hub.Join(cn.client, room) {
			h.hub.BroadcastExcept(room, cn.client, realtime.EventUserJoined, socketRef{SocketID: cn.client.ID})
		}
		return
	}
	if h.hub.Leave(cn.client, room) {
		h.hub.Broadcast(room, realtime.EventUserLeft, socketRef{SocketID: cn.client.ID})
	}
}

// relay forwards a client event to the other members of room. Senders must
// have joined the room first.
func (h *Handler) relay(cn *conn, room, event string, data any) {
	if !h.hub.InRoom(cn.client, room) {
		h.sendError(cn, "not a member of "+room)
		return
	}
	h.hub.BroadcastExcept(room, cn.client, event, data)
}

func (h *Handler) canJoin(cn *conn, projectID string) bool {
	if h.projects == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(cn.ctx, 5*time.Second)
	defer cancel()
	_, err := h.projects.Get(ctx, cn.who, projectID)
	return err == nil
}

func (h *Handler) decode(cn *conn, msg inbound, v any) bool {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		h.sendError(cn, msg.Event+": data required")
		return false
	}
	if err := sonic.Unmarshal(msg.Data, v); err != nil {
		h.sendError(cn, msg.Event+": malformed data")
		return false
	}
	return true
}

func (h *Handler) require(cn *conn, ok bool, message string) bool {
	if !ok {
		h.sendError(cn, message)
	}
	return ok
}

func (h *Handler) sendError(cn *conn, message string) {
	h.hub.Emit(cn.client, realtime.EventError, errorFrame{Message: message})
}
