// Package render renders the site's HTML pages from embedded templates.
//
// Every page template defines a "title" and a "content" block and is
// executed through the shared "base" layout. Files under includes/ are
// available to every page.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"maps"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates
var files embed.FS

// Globals returns values merged into every page's data, such as the
// signed-in user. Page data wins on key collisions.
type Globals func(c echo.Context) map[string]any

// Renderer implements echo.Renderer.
type Renderer struct {
	pages   map[string]*template.Template
	globals Globals
}

// New parses every page template. globals may be nil.
func New(globals Globals) (*Renderer, error) {
	root, err := fs.Sub(files, "templates")
	if err != nil {
		return nil, err
	}
	base, err := template.New("base.html").Funcs(Funcs()).ParseFS(root, "base.html", "includes/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template)
	err = fs.WalkDir(root, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ".html" {
			return err
		}
		if p == "base.html" || strings.HasPrefix(p, "includes/") {
			return nil
		}
		t, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(root, p); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		pages[p] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages, globals: globals}, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	ctx := map[string]any{}
	if r.globals != nil && c != nil {
		maps.Copy(ctx, r.globals(c))
	}
	switch d := data.(type) {
	case map[string]any:
		maps.Copy(ctx, d)
	case echo.Map:
		maps.Copy(ctx, d)
	case nil:
	default:
		ctx["data"] = d
	}
	return t.ExecuteTemplate(w, "base", ctx)
}

// Funcs are the helpers available to templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
		"linebreaksbr": func(s string) template.HTML {
			escaped := template.HTMLEscapeString(s)
			return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
		},
		"truncatewords": truncateWords,
		"media": func(key string) string {
			return "/media/" + key
		},
	}
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}
