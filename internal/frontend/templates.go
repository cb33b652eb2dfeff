package frontend

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/jo-hoe/healthdash/internal/core"
	"github.com/labstack/echo/v4"
)

//go:embed views/*.html
var templateFS embed.FS

const (
	viewsPattern = "views/*.html"
	layoutFile   = "views/layout.html"
	layoutName   = "layout"
)

var templateFuncs = template.FuncMap{
	"formatCount":   core.FormatCount,
	"formatPercent": core.FormatPercent,
	"join":          strings.Join,
	"formatTotal": func(v int64) string {
		return core.FormatCount(float64(v))
	},
	// chartData marks encoding/json output as safe for a script block.
	"chartData": func(s string) template.JS {
		return template.JS(s)
	},
	"rank": func(i int) int {
		return i + 1
	},
	"selected": func(current, option string) bool {
		return current == option
	},
}

// Template renders one page into the shared layout. Each page is parsed into its own set so
// that every page can define the same "title" and "content" blocks.
type Template struct {
	templates map[string]*template.Template
}

func newTemplate() (*Template, error) {
	files, err := fs.Glob(templateFS, viewsPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	templates := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		tmpl, err := template.New(path.Base(file)).Funcs(templateFuncs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		templates[path.Base(file)] = tmpl
	}
	return &Template{templates: templates}, nil
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	if err := tmpl.ExecuteTemplate(w, layoutName, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}
