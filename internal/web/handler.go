package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/identity"
	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/bissquit/account-garden/internal/pkg/validation"
	"github.com/bissquit/account-garden/internal/session"
	"github.com/go-chi/chi/v5"
)

// Flash messages.
const (
	msgSignedUp     = "User created successfully. Please login."
	msgLoggedIn     = "Login successful. Welcome!"
	msgLoginFirst   = "Please login to continue"
	msgUserUpdated  = "User updated successfully"
	msgUserDeleted  = "User deleted successfully"
	msgInvalidLogin = "Invalid email or password"
	msgUserExists   = "User already exists"
)

// Handler serves the account pages of the session strategy.
type Handler struct {
	users      *identity.Service
	sessions   *session.Manager
	renderer   *Renderer
	production bool
}

// NewHandler creates a page handler. production hides internal error details.
func NewHandler(users *identity.Service, sessions *session.Manager, renderer *Renderer, production bool) *Handler {
	return &Handler{
		users:      users,
		sessions:   sessions,
		renderer:   renderer,
		production: production,
	}
}

// RegisterRoutes registers public and session-guarded pages.
// sessions.LoadUser must wrap the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/signup", h.ShowSignup)
	r.Post("/signup", h.Signup)
	r.Get("/login", h.ShowLogin)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)

	r.Route("/users", func(r chi.Router) {
		r.Use(session.RequireUser(h.unauthorized))
		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.ShowUser)
		r.Post("/{id}/update", h.UpdateUserForm)
		r.Post("/{id}/delete", h.DeleteUserForm)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, PageHome, Page{Title: "Home"})
}

// ShowSignup handles GET /signup.
func (h *Handler) ShowSignup(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, PageSignup, Page{Title: "Sign up"})
}

// Signup handles POST /signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req identity.SignupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.Signup(r.Context(), req)
	if httputil.WantsJSON(r) {
		if err != nil {
			httputil.HandleError(r.Context(), w, err, identity.ErrorMappings())
			return
		}
		httputil.Respond(w, http.StatusCreated, "User created successfully", user)
		return
	}

	if err != nil {
		status, msg := classify(err)
		if status == http.StatusInternalServerError {
			h.renderError(w, r, err)
			return
		}
		if errors.Is(err, identity.ErrEmailExists) {
			msg = msgUserExists
		}
		h.renderer.Render(w, r, status, PageSignup, Page{
			Title: "Sign up",
			Error: msg,
			Form:  map[string]string{"name": req.Name, "email": req.Email},
		})
		return
	}

	h.flash(w, r, session.Flash{Success: msgSignedUp})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin handles GET /login.
func (h *Handler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, PageLogin, Page{Title: "Log in"})
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req identity.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.Login(r.Context(), req)
	if err != nil {
		if httputil.WantsJSON(r) {
			httputil.HandleError(r.Context(), w, err, identity.ErrorMappings())
			return
		}
		status, msg := classify(err)
		if status == http.StatusInternalServerError {
			h.renderError(w, r, err)
			return
		}
		if errors.Is(err, identity.ErrInvalidCredentials) {
			msg = msgInvalidLogin
		}
		h.renderer.Render(w, r, status, PageLogin, Page{
			Title: "Log in",
			Error: msg,
			Form:  map[string]string{"email": req.Email},
		})
		return
	}

	if err := h.sessions.Login(w, r, user.Identity(), session.Flash{Success: msgLoggedIn}); err != nil {
		if httputil.WantsJSON(r) {
			httputil.HandleError(r.Context(), w, err, nil)
			return
		}
		h.renderError(w, r, err)
		return
	}

	if httputil.WantsJSON(r) {
		httputil.Respond(w, http.StatusOK, "Login successful", user)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles GET /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		ctxlog.FromContext(r.Context()).Error("logout failed", "error", err)
		h.renderer.Render(w, r, http.StatusInternalServerError, PageError, Page{
			Title: http.StatusText(http.StatusInternalServerError),
			Error: "Logout failed",
		})
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if httputil.WantsJSON(r) {
		if err != nil {
			httputil.HandleError(r.Context(), w, err, identity.ErrorMappings())
			return
		}
		httputil.Respond(w, http.StatusOK, "Users retrieved successfully", users)
		return
	}

	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, PageUsers, Page{Title: "Users", Data: users})
}

type userView struct {
	User      *domain.User
	CanManage bool
	Name      string
	Email     string
}

// ShowUser handles GET /users/{id}.
func (h *Handler) ShowUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if httputil.WantsJSON(r) {
		if err != nil {
			httputil.HandleError(r.Context(), w, err, identity.ErrorMappings())
			return
		}
		httputil.Respond(w, http.StatusOK, "User retrieved successfully", user)
		return
	}

	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderUser(w, r, http.StatusOK, user, "", user.Name, user.Email)
}

// UpdateUserForm handles POST /users/{id}/update.
func (h *Handler) UpdateUserForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	var req identity.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	actor, _ := httputil.IdentityFromContext(r.Context())
	user, err := h.users.UpdateUser(r.Context(), actor, id, req)
	if err != nil {
		if !errors.Is(err, validation.ErrInvalid) && !errors.Is(err, identity.ErrEmailExists) {
			h.renderError(w, r, err)
			return
		}

		status, msg := classify(err)
		current, getErr := h.users.GetUser(r.Context(), id)
		if getErr != nil {
			h.renderError(w, r, getErr)
			return
		}
		h.renderUser(w, r, status, current, msg, req.Name, req.Email)
		return
	}

	h.refreshSelf(r, actor, user)
	h.flash(w, r, session.Flash{Success: msgUserUpdated})
	http.Redirect(w, r, "/users/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

// DeleteUserForm handles POST /users/{id}/delete.
func (h *Handler) DeleteUserForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	actor, _ := httputil.IdentityFromContext(r.Context())
	if _, err := h.users.DeleteUser(r.Context(), actor, id); err != nil {
		h.renderError(w, r, err)
		return
	}

	if actor.UserID == id {
		if err := h.sessions.Logout(w, r); err != nil {
			ctxlog.FromContext(r.Context()).Warn("failed to end session of deleted user", "error", err)
		}
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	h.flash(w, r, session.Flash{Success: msgUserDeleted})
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// UpdateUser handles PUT /users/{id}. It always answers with an envelope.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserIDJSON(w, r)
	if !ok {
		return
	}

	var req identity.UpdateUserRequest
	if !decodeBodyJSON(w, r, &req) {
		return
	}

	actor, _ := httputil.IdentityFromContext(r.Context())
	user, err := h.users.UpdateUser(r.Context(), actor, id, req)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, identity.ErrorMappings())
		return
	}

	h.refreshSelf(r, actor, user)
	httputil.Respond(w, http.StatusOK, msgUserUpdated, user)
}

// DeleteUser handles DELETE /users/{id}. It always answers with an envelope.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUserIDJSON(w, r)
	if !ok {
		return
	}

	actor, _ := httputil.IdentityFromContext(r.Context())
	summary, err := h.users.DeleteUser(r.Context(), actor, id)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, identity.ErrorMappings())
		return
	}

	if actor.UserID == id {
		if err := h.sessions.Logout(w, r); err != nil {
			ctxlog.FromContext(r.Context()).Warn("failed to end session of deleted user", "error", err)
		}
	}
	httputil.Respond(w, http.StatusOK, msgUserDeleted, summary)
}

// unauthorized answers requests rejected by the session guard.
func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	if httputil.WantsJSON(r) || r.Method == http.MethodPut || r.Method == http.MethodDelete {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.flash(w, r, session.Flash{Error: msgLoginFirst})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) renderUser(w http.ResponseWriter, r *http.Request, status int, user *domain.User, errMsg, name, email string) {
	actor, _ := httputil.IdentityFromContext(r.Context())
	h.renderer.Render(w, r, status, PageUser, Page{
		Title: user.Name,
		Error: errMsg,
		Data: userView{
			User:      user,
			CanManage: actor.CanManage(user.ID),
			Name:      name,
			Email:     email,
		},
	})
}

// refreshSelf keeps the session identity in sync after a self-edit.
func (h *Handler) refreshSelf(r *http.Request, actor domain.Identity, user *domain.User) {
	if actor.UserID != user.ID {
		return
	}
	updated := actor
	updated.Name = user.Name
	updated.Email = user.Email
	if err := h.sessions.Refresh(r, updated); err != nil {
		ctxlog.FromContext(r.Context()).Warn("failed to refresh session", "error", err)
	}
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request, flash session.Flash) {
	if err := h.sessions.Flash(w, r, flash); err != nil {
		ctxlog.FromContext(r.Context()).Warn("failed to queue flash", "error", err)
	}
}

func (h *Handler) parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if httputil.WantsJSON(r) {
		return parseUserIDJSON(w, r)
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.renderer.Render(w, r, http.StatusBadRequest, PageError, Page{
			Title: http.StatusText(http.StatusBadRequest),
			Error: "Invalid user id",
		})
		return 0, false
	}
	return id, true
}

func parseUserIDJSON(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}

// decodeBody fills dst from a JSON body or an urlencoded form.
// On failure it has already written the response.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if isJSONBody(r) {
		return decodeBodyJSON(w, r, dst)
	}

	if err := r.ParseForm(); err != nil {
		httputil.Text(w, http.StatusBadRequest, "invalid form")
		return false
	}
	fillFromForm(r, dst)
	return true
}

func decodeBodyJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if !isJSONBody(r) {
		if err := r.ParseForm(); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid form")
			return false
		}
		fillFromForm(r, dst)
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func fillFromForm(r *http.Request, dst interface{}) {
	switch req := dst.(type) {
	case *identity.SignupRequest:
		req.Name = r.PostForm.Get("name")
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
	case *identity.LoginRequest:
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
	case *identity.UpdateUserRequest:
		req.Name = r.PostForm.Get("name")
		req.Email = r.PostForm.Get("email")
	}
}
