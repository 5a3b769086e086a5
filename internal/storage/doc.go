// Package storage is the durable document store for comments, reviews,
// projects and the user directory, backed by BadgerDB.
//
// Documents are sonic-encoded JSON under "<kind>/<id>". Ids are prefixed
// ULIDs, so a reverse prefix scan lists newest first. Secondary indexes live
// under "idx/<name>/<value>\x00<id>" with empty values.
//
// Updates are read-modify-write inside one transaction and retried on
// conflict; the last committed write wins.
package storage
