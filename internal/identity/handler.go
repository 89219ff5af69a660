package identity

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound, Message: "User not found"},
	{Error: ErrEmailExists, Status: http.StatusConflict, Message: "User already exists"},
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid email or password"},
	{Error: ErrTokenMissing, Status: http.StatusUnauthorized, Message: "No token provided"},
	{Error: ErrTokenExpired, Status: http.StatusUnauthorized, Message: "Token expired"},
	{Error: ErrInvalidToken, Status: http.StatusUnauthorized, Message: "Invalid token"},
	{Error: ErrForbidden, Status: http.StatusForbidden},
}

// Handler handles JSON API requests for the identity module.
type Handler struct {
	service *Service
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers public authentication routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/signin", h.Signin)
}

// RegisterProtectedRoutes registers routes that require a bearer token.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/dashboard", h.Dashboard)

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.With(httputil.RequireRole(domain.RoleAdmin)).Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token *Token       `json:"token"`
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.service.Signup(r.Context(), req)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	token, err := h.service.IssueToken(r.Context(), user)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusCreated, "User created successfully", AuthResponse{
		User:  user,
		Token: token,
	})
}

// Signin handles POST /auth/signin.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	token, err := h.service.IssueToken(r.Context(), user)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "Login successful", AuthResponse{
		User:  user,
		Token: token,
	})
}

// Dashboard handles GET /auth/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := httputil.IdentityFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	httputil.Respond(w, http.StatusOK, "Welcome "+identity.Email, identity)
}

// ListUsers handles GET /api/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "Users retrieved successfully", users)
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusCreated, "User created successfully", user)
}

// GetUser handles GET /api/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "User retrieved successfully", user)
}

// UpdateUser handles PUT /api/users/{id}.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	actor, _ := httputil.IdentityFromContext(r.Context())
	user, err := h.service.UpdateUser(r.Context(), actor, id, req)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "User updated successfully", user)
}

// DeleteUser handles DELETE /api/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserID(w, r)
	if !ok {
		return
	}

	actor, _ := httputil.IdentityFromContext(r.Context())
	summary, err := h.service.DeleteUser(r.Context(), actor, id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Respond(w, http.StatusOK, "User deleted successfully", summary)
}

// ErrorMappings exposes the identity error table for other transports.
func ErrorMappings() []httputil.ErrorMapping {
	return errorMappings
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}
