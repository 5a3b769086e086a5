package realtime

import (
	"sync"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// Hub tracks room membership. All methods are safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]map[string]struct{}

	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHub creates an empty hub.
func NewHub(metrics *monitoring.Metrics, log *logging.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]map[string]struct{}),
		metrics: metrics,
		log:     log.Component("realtime"),
	}
}

// Register adds a connected client with no rooms.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		h.clients[c] = make(map[string]struct{})
	}
}

// Unregister removes the client from every room and closes its queue. It
// returns the rooms the client was in.
func (h *Hub) Unregister(c *Client) []string {
	h.mu.Lock()
	rooms := h.leaveAllLocked(c)
	delete(h.clients, c)
	h.metrics.SetRooms(len(h.rooms))
	h.mu.Unlock()

	c.close()
	return rooms
}

// Join adds c to room. It reports false when c was already a member.
func (h *Hub) Join(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	memberships, ok := h.clients[c]
	if !ok {
		memberships = make(map[string]struct{})
		h.clients[c] = memberships
	}
	if _, ok := memberships[room]; ok {
		return false
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	memberships[room] = struct{}{}
	h.metrics.SetRooms(len(h.rooms))
	return true
}

// Leave removes c from room. It reports false when c was not a member.
func (h *Hub) Leave(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.leaveLocked(c, room) {
		return false
	}
	h.metrics.SetRooms(len(h.rooms))
	return true
}

// LeaveMatching removes c from every room accepted by match and returns them.
func (h *Hub) LeaveMatching(c *Client, match func(room string) bool) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var left []string
	for room := range h.clients[c] {
		if match(room) && h.leaveLocked(c, room) {
			left = append(left, room)
		}
	}
	h.metrics.SetRooms(len(h.rooms))
	return left
}

func (h *Hub) leaveLocked(c *Client, room string) bool {
	members, ok := h.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[c]; !ok {
		return false
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	delete(h.clients[c], room)
	return true
}

func (h *Hub) leaveAllLocked(c *Client) []string {
	rooms := make([]string, 0, len(h.clients[c]))
	for room := range h.clients[c] {
		if h.leaveLocked(c, room) {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// Rooms returns the rooms c belongs to.
func (h *Hub) Rooms(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.clients[c]))
	for room := range h.clients[c] {
		out = append(out, room)
	}
	return out
}

// InRoom reports whether c is a member of room.
func (h *Hub) InRoom(c *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[c][room]
	return ok
}

// Members counts the clients in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RoomCount counts non-empty rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Broadcast delivers event to every member of room.
func (h *Hub) Broadcast(room, event string, data any) {
	h.BroadcastExcept(room, nil, event, data)
}

// BroadcastExcept delivers event to every member of room other than except.
// Members whose queue is full are disconnected.
func (h *Hub) BroadcastExcept(room string, except *Client, event string, data any) {
	if room == "" {
		return
	}
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.log.Error("encode broadcast", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != except {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()

	h.metrics.RecordBroadcast(event)

	for _, c := range recipients {
		if c.enqueue(frame) {
			h.metrics.RecordWSMessage("out", event)
			continue
		}
		h.drop(c, room, event)
	}
}

// Emit sends event to one client.
func (h *Hub) Emit(c *Client, event string, data any) bool {
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.log.Error("encode frame", zap.String("event", event), zap.Error(err))
		return false
	}
	if !c.enqueue(frame) {
		h.drop(c, "", event)
		return false
	}
	h.metrics.RecordWSMessage("out", event)
	return true
}

func (h *Hub) drop(c *Client, room, event string) {
	if c.Closed() {
		return
	}
	h.metrics.IncWSDropped()
	h.log.Warn("dropping slow client",
		zap.String("socket_id", c.ID),
		zap.String("room", room),
		zap.String("event", event))
	h.Unregister(c)
}

func encodeFrame(event string, data any) ([]byte, error) {
	return sonic.Marshal(Envelope{Event: event, Data: data})
}
