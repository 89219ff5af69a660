package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = domain.Identity{UserID: 7, Name: "Alice", Email: "alice@x.com", Role: domain.RoleUser}

func newTestManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManager(store, Config{CookieName: "sid", TTL: time.Hour}), store
}

// withCookies copies Set-Cookie values from rec into a new request.
func withCookies(method, target string, rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return req
}

func TestManager_LoginCurrentLogout(t *testing.T) {
	m, _ := newTestManager()

	_, err := m.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoSession)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), alice, Flash{}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	req := withCookies(http.MethodGet, "/", rec)
	identity, err := m.Current(req)
	require.NoError(t, err)
	assert.Equal(t, alice, identity)

	out := httptest.NewRecorder()
	require.NoError(t, m.Logout(out, req))
	expired := out.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Negative(t, expired[0].MaxAge)

	_, err = m.Current(req)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_LoginRotatesSessionID(t *testing.T) {
	m, store := newTestManager()

	first := httptest.NewRecorder()
	require.NoError(t, m.Flash(first, httptest.NewRequest(http.MethodPost, "/signup", nil), Flash{Success: "created"}))
	oldID := first.Result().Cookies()[0].Value

	second := httptest.NewRecorder()
	require.NoError(t, m.Login(second, withCookies(http.MethodPost, "/login", first), alice, Flash{Success: "welcome"}))
	newID := second.Result().Cookies()[0].Value

	assert.NotEqual(t, oldID, newID)
	_, err := store.Get(t.Context(), oldID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	flash, err := m.TakeFlash(withCookies(http.MethodGet, "/", second))
	require.NoError(t, err)
	assert.Equal(t, "welcome", flash.Success)
}

func TestManager_FlashConsumedOnce(t *testing.T) {
	m, _ := newTestManager()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Flash(rec, httptest.NewRequest(http.MethodPost, "/signup", nil), Flash{Success: "User created"}))

	req := withCookies(http.MethodGet, "/login", rec)
	flash, err := m.TakeFlash(req)
	require.NoError(t, err)
	assert.Equal(t, "User created", flash.Success)

	flash, err = m.TakeFlash(req)
	require.NoError(t, err)
	assert.True(t, flash.IsEmpty())

	_, err = m.Current(req)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_IgnoresForeignCookieValues(t *testing.T) {
	m, _ := newTestManager()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "../../etc/passwd"})

	_, err := m.Current(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_Refresh(t *testing.T) {
	m, _ := newTestManager()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(rec, httptest.NewRequest(http.MethodPost, "/login", nil), alice, Flash{}))
	req := withCookies(http.MethodGet, "/", rec)

	renamed := alice
	renamed.Name = "Alice Smith"
	require.NoError(t, m.Refresh(req, renamed))

	identity, err := m.Current(req)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", identity.Name)
}

func TestMiddleware_LoadAndRequireUser(t *testing.T) {
	m, _ := newTestManager()

	protected := m.LoadUser(RequireUser(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := httputil.IdentityFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(identity.Email))
	})))

	anon := httptest.NewRecorder()
	protected.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusSeeOther, anon.Code)
	assert.Equal(t, "/login", anon.Header().Get("Location"))

	login := httptest.NewRecorder()
	require.NoError(t, m.Login(login, httptest.NewRequest(http.MethodPost, "/login", nil), alice, Flash{}))

	authed := httptest.NewRecorder()
	protected.ServeHTTP(authed, withCookies(http.MethodGet, "/users", login))
	assert.Equal(t, http.StatusOK, authed.Code)
	assert.Equal(t, "alice@x.com", authed.Body.String())
}
