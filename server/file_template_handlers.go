package server

import (
	"embed"
	"html/template"
	"path"
)

//go:embed templates/*.html
var templateFiles embed.FS

// parseTemplate parses one page from the embedded templates directory.
func parseTemplate(name string) (*template.Template, error) {
	return template.ParseFS(templateFiles, path.Join("templates", name))
}
