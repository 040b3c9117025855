// Package ui embeds the browser canvas shell served at the relay root.
// The page opens the /ws endpoint, registers itself with browserConnect,
// and answers forwarded drawing commands.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed dist
var dist embed.FS

// Handler serves the embedded canvas bundle.
func Handler() http.Handler {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		// The embedded tree is fixed at build time.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
