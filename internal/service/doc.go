// Package service implements the decision logic behind reporting and
// checking heartbeats, independent of the transport that invokes it.
//
// A [Service] is constructed around exactly one injected store.Store. It
// fills in omitted report fields from the application's previous status or
// from process defaults, validates input before any state changes, and
// classifies checks as available, offline, expired or not found.
package service
