package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
)

const LAYOUT_TEMPLATE = "templates/layout.html"

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"inc": func(n int64) int64 { return n + 1 },
	"dec": func(n int64) int64 { return n - 1 },
}

type views struct {
	templates map[string]*template.Template
}

// newViews parses every page in templates/ together with the shared layout.
func newViews() (*views, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	v := &views{templates: make(map[string]*template.Template)}
	for _, page := range pages {
		if page == LAYOUT_TEMPLATE {
			continue
		}

		t, err := template.New(path.Base(page)).Funcs(templateFuncs).ParseFS(templateFS, LAYOUT_TEMPLATE, page)
		if err != nil {
			return nil, fmt.Errorf("parse %v: %v", page, err)
		}
		v.templates[path.Base(page)] = t
	}

	return v, nil
}

// render executes the page into a buffer first so a failing template never
// leaves a half written response.
func (v *views) render(rw http.ResponseWriter, name string, status int, data map[string]interface{}) error {
	t, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %v: %v", name, err)
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.WriteHeader(status)
	_, err := buf.WriteTo(rw)
	return err
}
