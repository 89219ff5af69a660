package web

import (
	"net/http"

	"github.com/bissquit/account-garden/internal/identity"
	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/bissquit/account-garden/internal/todos"
)

// pageErrorMappings reuse the JSON API tables so both transports agree on statuses.
var pageErrorMappings = append(append([]httputil.ErrorMapping{
	{Error: identity.ErrForbidden, Status: http.StatusForbidden, Message: "You are not allowed to manage this user"},
}, identity.ErrorMappings()...), todos.ErrorMappings()...)

// classify returns the status and user-facing message for err.
func classify(err error) (int, string) {
	status, msg, ok := httputil.MapError(err, pageErrorMappings)
	if !ok {
		return status, http.StatusText(status)
	}
	return status, msg
}

// renderError renders the error page. Internal details are shown outside production.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)

	page := Page{Title: http.StatusText(status), Error: msg}
	if status == http.StatusInternalServerError {
		ctxlog.FromContext(r.Context()).Error("page request failed", "error", err)
		if !h.production {
			page.Details = err.Error()
		}
	}

	h.renderer.Render(w, r, status, PageError, page)
}
