package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"valles-rodes/internal/booking"
)

// TemplateCache holds parsed page templates keyed by file name.
type TemplateCache struct {
	cache  map[string]*template.Template
	mu     sync.RWMutex
	funcs  template.FuncMap
	logger *zap.Logger
}

func NewTemplateCache(logger *zap.Logger) *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: template.FuncMap{
			"tierLabel": booking.TierLabel,
			"stars": func(n int) string {
				s := ""
				for i := 0; i < n; i++ {
					s += "⭐"
				}
				return s
			},
			"inc": func(i int) int { return i + 1 },
		},
		logger: logger,
	}
}

// Load parses every *.html in dir. Files named _*.html are partials shared
// by all pages.
func (tc *TemplateCache) Load(dir string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	partials, err := filepath.Glob(filepath.Join(dir, "_*.html"))
	if err != nil {
		return err
	}
	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return err
	}

	for _, file := range pages {
		name := filepath.Base(file)
		if name[0] == '_' {
			continue
		}
		files := append([]string{file}, partials...)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFiles(files...)
		if err != nil {
			tc.logger.Error("failed to parse template", zap.String("file", file), zap.Error(err))
			return err
		}
		tc.cache[name] = tmpl
		tc.logger.Debug("cached template", zap.String("name", name))
	}
	if len(tc.cache) == 0 {
		return fmt.Errorf("no templates found in %s", dir)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}

// Render executes into a buffer first so a template error never leaves a
// half-written page.
func (tc *TemplateCache) Render(w http.ResponseWriter, status int, name string, data interface{}) {
	tmpl := tc.Get(name)
	if tmpl == nil {
		tc.logger.Error("template not found", zap.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		tc.logger.Error("failed to render template", zap.String("name", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
