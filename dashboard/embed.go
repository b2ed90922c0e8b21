// Package dashboard embeds the live posture view served at "/".
//
// The page subscribes to /api/sse and renders one card per device with the
// latest reading and any active alerts. The server substitutes {{.Title}}
// before serving it.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - single page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
