// Package store provides storage and pub/sub functionality for application
// statuses.
//
// This package is internal to heartbeat and owns the last-write-wins index
// of reported statuses and its durability. The main components are:
//
//   - [Store]: Interface defining lookup, update and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [PersistentStore]: Store that writes a full snapshot to a [Backend]
//     before acknowledging every accepted update
//   - [Backend]: Snapshot load/save capability with file, Redis, object
//     storage, Postgres and in-memory implementations
//
// For a given application name the stored status always carries the
// greatest timestamp ever submitted. A report whose timestamp is not
// strictly newer than the stored one is discarded without any I/O.
//
// Subscribers receive accepted updates via channels with non-blocking sends
// (slow subscribers will miss updates rather than block the system).
package store
