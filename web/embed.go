package web

import "embed"

// Static embeds the built single page application.
//
//go:embed static
var Static embed.FS
