// Package realtime fans mutation events out to connected viewers.
//
// Clients join rooms keyed by page URL or by "project:<id>". Delivery is
// best effort: each client has a bounded queue and a client that cannot keep
// up is disconnected rather than slowing the sender. Viewers poll the REST
// read endpoints on a fixed interval, so anything lost here is recovered
// within one poll.
package realtime
