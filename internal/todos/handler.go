package todos

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrTodoNotFound, Status: http.StatusNotFound, Message: "Todo not found"},
}

// Handler handles JSON API requests for todos.
type Handler struct {
	service *Service
}

// NewHandler creates a new todos handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the /api/todos routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles GET /api/todos.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "Todos retrieved successfully", list)
}

// Create handles POST /api/todos.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	todo, err := h.service.Create(r.Context(), req)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusCreated, "Todo created successfully", todo)
}

// Get handles GET /api/todos/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}

	todo, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "Todo retrieved successfully", todo)
}

// Update handles PATCH /api/todos/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}

	var req UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	todo, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "Todo updated successfully", todo)
}

// Delete handles DELETE /api/todos/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "Todo deleted successfully", nil)
}

// ErrorMappings exposes the todo error table for other transports.
func ErrorMappings() []httputil.ErrorMapping {
	return errorMappings
}

func parseTodoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid todo id")
		return 0, false
	}
	return id, true
}
