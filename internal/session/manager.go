package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/pkg/ctxlog"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/google/uuid"
)

// Defaults applied by NewManager for zero Config fields.
const (
	DefaultCookieName = "account_garden_session"
	DefaultTTL        = 24 * time.Hour
	DefaultFlashTTL   = 5 * time.Minute
)

// Config controls the session cookie and lifetime.
type Config struct {
	CookieName string
	TTL        time.Duration
	FlashTTL   time.Duration
	Secure     bool
	Domain     string
}

// Manager binds Store records to HTTP requests through a cookie.
type Manager struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewManager creates a session manager.
func NewManager(store Store, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.FlashTTL <= 0 {
		cfg.FlashTTL = DefaultFlashTTL
	}
	return &Manager{store: store, cfg: cfg, now: time.Now}
}

// Login starts a fresh session for identity and queues flash, if any, under the
// new id. Any previous session id carried by the request is discarded so a
// pre-login id never becomes authenticated.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, identity domain.Identity, flash Flash) error {
	if oldID, ok := m.sessionID(r); ok {
		if err := m.store.Delete(r.Context(), oldID); err != nil {
			ctxlog.FromContext(r.Context()).Warn("failed to drop previous session", "error", err)
		}
	}

	id := uuid.NewString()
	rec := &Record{User: identity, CreatedAt: m.now().UTC()}
	if err := m.store.Save(r.Context(), id, rec, m.cfg.TTL); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if !flash.IsEmpty() {
		if err := m.store.PutFlash(r.Context(), id, flash, m.cfg.FlashTTL); err != nil {
			return fmt.Errorf("queue flash: %w", err)
		}
	}

	m.setCookie(w, r, id)
	return nil
}

// Logout destroys the current session and expires the cookie. It is a no-op
// for requests without a session.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	id, ok := m.sessionID(r)
	if !ok {
		return nil
	}

	m.clearCookie(w)
	if err := m.store.Delete(r.Context(), id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Current returns the identity of the logged-in user.
func (m *Manager) Current(r *http.Request) (domain.Identity, error) {
	id, ok := m.sessionID(r)
	if !ok {
		return domain.Identity{}, ErrNoSession
	}

	rec, err := m.store.Get(r.Context(), id)
	if err != nil {
		return domain.Identity{}, err
	}
	return rec.User, nil
}

// Refresh rewrites the stored identity of the current session, e.g. after the
// user edited their own profile.
func (m *Manager) Refresh(r *http.Request, identity domain.Identity) error {
	id, ok := m.sessionID(r)
	if !ok {
		return ErrNoSession
	}

	rec, err := m.store.Get(r.Context(), id)
	if err != nil {
		return err
	}
	rec.User = identity
	return m.store.Save(r.Context(), id, rec, m.cfg.TTL)
}

// Flash queues a message for the next page rendered for this client. A cookie
// is issued if the client has none yet.
func (m *Manager) Flash(w http.ResponseWriter, r *http.Request, flash Flash) error {
	id, ok := m.sessionID(r)
	if !ok {
		id = uuid.NewString()
		m.setCookie(w, r, id)
	}

	if err := m.store.PutFlash(r.Context(), id, flash, m.cfg.FlashTTL); err != nil {
		return fmt.Errorf("queue flash: %w", err)
	}
	return nil
}

// TakeFlash returns the pending flash and consumes it.
func (m *Manager) TakeFlash(r *http.Request) (Flash, error) {
	id, ok := m.sessionID(r)
	if !ok {
		return Flash{}, nil
	}
	return m.store.TakeFlash(r.Context(), id)
}

// LoadUser attaches the session identity to the request context when present.
// Requests without a valid session pass through unchanged.
func (m *Manager) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.Current(r)
		switch {
		case err == nil:
			r = r.WithContext(httputil.WithIdentity(r.Context(), identity))
		case errors.Is(err, ErrNoSession), errors.Is(err, ErrSessionNotFound):
		default:
			ctxlog.FromContext(r.Context()).Warn("failed to load session", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests without a session identity in context.
// LoadUser must run first.
func RequireUser(onUnauthorized func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := httputil.IdentityFromContext(r.Context()); !ok {
				onUnauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cfg.CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func (m *Manager) setCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    id,
		Path:     "/",
		Domain:   m.cfg.Domain,
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.Secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
