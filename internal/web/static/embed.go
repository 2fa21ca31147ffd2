// Package static embeds the landing page served at /.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed dist
var distFS embed.FS

// dist is distFS rooted at the dist directory. The embed pattern guarantees it exists.
var dist = func() fs.FS {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}()

// FileSystem serves the embedded assets.
func FileSystem() http.FileSystem {
	return http.FS(dist)
}

// Index returns index.html.
func Index() []byte {
	data, err := fs.ReadFile(dist, "index.html")
	if err != nil {
		panic(err)
	}
	return data
}
