// Package webui embeds the run dashboard served by copyconf serve.
package webui

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v5"
)

//go:embed static/*
var staticFS embed.FS

// FS returns the dashboard files rooted at static/.
func FS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// the embed path is fixed at compile time
		panic(err)
	}
	return sub
}

// Register serves the dashboard at the root of e.
func Register(e *echo.Echo) {
	files := echo.WrapHandler(http.FileServerFS(FS()))
	e.GET("/", files)
	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static", http.FileServerFS(FS()))))
}
