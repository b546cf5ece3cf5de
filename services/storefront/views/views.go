// Package views embeds the storefront's HTML templates and static assets.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/dailykart/dailykart/services/storefront/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Funcs are available to every template.
var Funcs = template.FuncMap{
	"rupees": func(v int64) string { return fmt.Sprintf("₹%d", v) },
	"categoryLabel": func(c models.Category) string {
		return c.Label()
	},
	"categories": func() []models.Category { return models.Categories },
}

// Templates parses every page template.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.html")
}

// Static is the asset tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
