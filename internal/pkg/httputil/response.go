// Package httputil provides HTTP response helper functions.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bissquit/account-garden/internal/pkg/validation"
)

// Envelope is the body shape of every JSON API response.
type Envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// JSON writes a raw JSON response without envelope.
// Use Respond for enveloped responses.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Respond writes a {"status", "message", "data"} envelope.
func Respond(w http.ResponseWriter, status int, message string, data interface{}) {
	JSON(w, status, Envelope{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// Error writes an envelope with null data.
func Error(w http.ResponseWriter, status int, message string) {
	Respond(w, status, message, nil)
}

// ValidationError writes a 400 envelope.
// If err is a *validation.Error, data lists the rejected fields.
// Otherwise, data is err.Error().
func ValidationError(w http.ResponseWriter, err error) {
	var details interface{}
	if fields := validation.Fields(err); fields != nil {
		details = fields
	} else {
		details = err.Error()
	}

	Respond(w, http.StatusBadRequest, "validation error", details)
}

// WantsJSON reports whether the client negotiated a JSON response
// through Accept or sent a JSON body.
func WantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
