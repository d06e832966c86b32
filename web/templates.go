package web

import (
	"embed"
	"html/template"
	"io/fs"
	"sync"
)

//go:embed report.html tracking.js
var content embed.FS

var (
	tmpl *template.Template
	once sync.Once
)

// Templates returns the parsed HTML templates, embedded at build time.
// report.html defines the "report" template wrapping a rendered report.
func Templates() *template.Template {
	once.Do(func() {
		tmpl = template.Must(template.ParseFS(content, "*.html"))
	})
	return tmpl
}

// StaticFS exposes embedded static assets such as the tracking script.
func StaticFS() fs.FS {
	return content
}
