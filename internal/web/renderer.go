// Package web serves the server-rendered pages of the session strategy and the
// todo pages shared by both strategies.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/bissquit/account-garden/internal/session"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page names.
const (
	PageHome   = "home"
	PageSignup = "signup"
	PageLogin  = "login"
	PageUsers  = "users"
	PageUser   = "user"
	PageTodos  = "todos"
	PageError  = "error"
)

var pageNames = []string{PageHome, PageSignup, PageLogin, PageUsers, PageUser, PageTodos, PageError}

// Page is the data passed to every template.
type Page struct {
	Title string
	// User is the logged-in user; filled by Render.
	User *domain.Identity
	// Flash is consumed by Render from the FlashSource.
	Flash   session.Flash
	Error   string
	Details string
	Form    map[string]string
	Data    interface{}
}

// FlashSource hands out the pending flash of a request exactly once.
type FlashSource interface {
	TakeFlash(r *http.Request) (session.Flash, error)
}

// Renderer renders HTML pages from embedded templates.
type Renderer struct {
	templates map[string]*template.Template
	flashes   FlashSource
}

// NewRenderer parses all page templates. flashes may be nil when sessions are disabled.
func NewRenderer(flashes FlashSource) (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":      titleCase,
		"formatTime": formatTime,
	}

	r := &Renderer{
		templates: make(map[string]*template.Template, len(pageNames)),
		flashes:   flashes,
	}

	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(templatesFS,
			"templates/layout.html",
			fmt.Sprintf("templates/%s.html", name),
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}

	return r, nil
}

// Render writes page name with status. The pending flash is taken only here, so
// a redirect never swallows it.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	logger := ctxlog.FromContext(r.Context())

	tmpl, ok := rd.templates[name]
	if !ok {
		logger.Error("template not found", "template", name)
		httputil.Text(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if identity, ok := httputil.IdentityFromContext(r.Context()); ok {
		page.User = &identity
	}
	if rd.flashes != nil {
		flash, err := rd.flashes.TakeFlash(r)
		if err != nil {
			logger.Warn("failed to take flash", "error", err)
		}
		page.Flash = flash
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		logger.Error("failed to execute template", "template", name, "error", err)
		httputil.Text(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debug("failed to write page", "error", err)
	}
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}
