// Package ui embeds the static dashboard and serves it from the binary, so
// deployment is a single artifact.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Handler serves the embedded dashboard rooted at /.
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The embed is fixed at compile time; this cannot fail at runtime.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
