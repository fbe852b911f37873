// Package status defines the reported state of a monitored application.
//
// This package is internal to heartbeat and holds the leaf of the domain
// model: [AppStatus], an immutable record of what an application last
// reported and when, together with the ISO-8601 codecs used to move
// timestamps and expiry periods across the wire and into snapshots.
//
// Expiry is always computed lazily from the stored timestamp and expiry
// period; nothing in this package runs in the background.
package status
