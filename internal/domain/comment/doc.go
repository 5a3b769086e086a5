// Package comment implements the page comment lifecycle: positioned
// creation, edits and resolution, keyed screenshot attach, append-only
// replies and bulk removal by URL.
//
// Every mutation is persisted first; on success it is mirrored to the URL
// room and, when the comment belongs to a project, to the project room.
// Broadcast delivery is best effort. Clients poll the list endpoint as the
// correctness backstop, so a lost event heals within one poll interval.
//
// Concurrent edits are last-write-wins.
package comment
