// Package web contains the embedded browser client served when no document
// root is configured.
package web

import "embed"

// Assets holds the default page and its static assets.
//
//go:embed index.html app.js app.css
var Assets embed.FS
