// Package web holds the browser client served at /.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed static
var content embed.FS

// StaticFS returns the embedded static file system.
func StaticFS() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// Only fails if the embed pattern and the sub path disagree.
		panic(err)
	}
	return sub
}

// Handler serves the client from dir, or from the embedded copy when dir is
// empty.
func Handler(dir string) http.Handler {
	if dir != "" {
		return http.FileServerFS(os.DirFS(dir))
	}
	return http.FileServerFS(StaticFS())
}
