// Package session implements server-side sessions keyed by an opaque cookie,
// with a one-shot flash message channel.
package session

import (
	"context"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
)

// Record is the server-side state of a logged-in session.
type Record struct {
	User      domain.Identity `json:"user"`
	CreatedAt time.Time       `json:"created_at"`
}

// Flash is a one-shot status message shown by the next rendered page.
type Flash struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsEmpty reports whether the flash carries no message.
func (f Flash) IsEmpty() bool {
	return f.Success == "" && f.Error == ""
}

// Store persists session records and flash messages.
type Store interface {
	// Get returns ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, id string, rec *Record, ttl time.Duration) error
	// Delete removes the record and any pending flash.
	Delete(ctx context.Context, id string) error
	PutFlash(ctx context.Context, id string, flash Flash, ttl time.Duration) error
	// TakeFlash returns the pending flash and removes it; an empty Flash if none.
	TakeFlash(ctx context.Context, id string) (Flash, error)
}
