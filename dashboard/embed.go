// Package dashboard provides the embedded status page for the heartbeat server.
//
// The page lists every application with its latest status and expiry, and
// updates live from the server's Server-Sent Events stream. Embedding keeps
// the server a single binary with no asset files to deploy.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the status page.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Status page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
