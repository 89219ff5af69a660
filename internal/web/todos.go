package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/validation"
	"github.com/bissquit/account-garden/internal/session"
	"github.com/bissquit/account-garden/internal/todos"
	"github.com/go-chi/chi/v5"
)

// Flasher queues a flash for the next rendered page.
type Flasher interface {
	Flash(w http.ResponseWriter, r *http.Request, flash session.Flash) error
}

// TodoPages serves the task list page.
type TodoPages struct {
	todos    *todos.Service
	renderer *Renderer
	flashes  Flasher
}

// NewTodoPages creates the todo page handler. flashes may be nil.
func NewTodoPages(service *todos.Service, renderer *Renderer, flashes Flasher) *TodoPages {
	return &TodoPages{todos: service, renderer: renderer, flashes: flashes}
}

// RegisterRoutes registers GET and POST /todos.
func (p *TodoPages) RegisterRoutes(r chi.Router) {
	r.Get("/todos", p.List)
	r.Post("/todos", p.Add)
}

// List handles GET /todos.
func (p *TodoPages) List(w http.ResponseWriter, r *http.Request) {
	list, err := p.todos.List(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to list todos", "error", err)
		p.renderer.Render(w, r, http.StatusInternalServerError, PageError, Page{
			Title: http.StatusText(http.StatusInternalServerError),
			Error: "Error fetching todos",
		})
		return
	}

	p.renderer.Render(w, r, http.StatusOK, PageTodos, Page{Title: "Task Manager", Data: list})
}

// Add handles POST /todos. A blank task redirects back without inserting.
func (p *TodoPages) Add(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/todos", http.StatusSeeOther)
		return
	}

	task := strings.TrimSpace(r.PostForm.Get("task"))
	if task == "" {
		http.Redirect(w, r, "/todos", http.StatusSeeOther)
		return
	}

	if _, err := p.todos.Create(r.Context(), todos.CreateTodoRequest{Task: task}); err != nil {
		if !errors.Is(err, validation.ErrInvalid) {
			ctxlog.FromContext(r.Context()).Error("failed to add todo", "error", err)
			p.renderer.Render(w, r, http.StatusInternalServerError, PageError, Page{
				Title: http.StatusText(http.StatusInternalServerError),
				Error: "Error adding todo",
			})
			return
		}
		p.flash(w, r, session.Flash{Error: err.Error()})
	}

	http.Redirect(w, r, "/todos", http.StatusSeeOther)
}

func (p *TodoPages) flash(w http.ResponseWriter, r *http.Request, flash session.Flash) {
	if p.flashes == nil {
		return
	}
	if err := p.flashes.Flash(w, r, flash); err != nil {
		ctxlog.FromContext(r.Context()).Warn("failed to queue flash", "error", err)
	}
}
