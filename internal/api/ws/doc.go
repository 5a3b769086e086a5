// Package ws is the WebSocket transport for the realtime hub.
//
// Every frame is a JSON envelope {"event": "...", "data": {...}} in both
// directions.
//
// Client events:
//   - join-session{url}, leave-session{url}: URL room membership
//   - join-project{projectId}, leave-project{projectId}: project room membership
//   - add-comment, update-comment, delete-comment: relayed to the room
//   - cursor-move{url|projectId,x,y,author}: relayed as cursor-update
//   - drawing-start, drawing-update, drawing-end: relayed as-is
//   - ping: answered with pong
//
// Server events:
//   - connected{socketId} on accept
//   - user-joined / user-left{socketId} to the other members of a room
//   - comment-*, review-*, cursor-update, drawing-* fan-out
//   - error{message} for malformed or unknown frames
//
// Relays never reach the sender. Persistence happens over REST; the socket
// only shortens the delay before other viewers see a change.
//
// Example Usage:
//
//	handler := ws.NewHandler(hub, projects, ws.DefaultOptions(), metrics, logger)
//	router.GET("/ws", middleware.OptionalAuth(verifier), handler.HandleConnection)
package ws
