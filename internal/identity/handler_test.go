package identity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/account-garden/internal/domain"
	"github.com/bissquit/account-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenTable is an Authenticator that hands out opaque tokens backed by a map.
type tokenTable struct {
	tokens map[string]domain.Identity
}

func (tt *tokenTable) IssueToken(user *domain.User) (*Token, error) {
	token := fmt.Sprintf("tok-%d", user.ID)
	tt.tokens[token] = user.Identity()
	return &Token{AccessToken: token, TokenType: "Bearer"}, nil
}

func (tt *tokenTable) ValidateToken(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrTokenMissing
	}
	identity, ok := tt.tokens[token]
	if !ok {
		return domain.Identity{}, ErrInvalidToken
	}
	return identity, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiFixture struct {
	router http.Handler
	repo   *mockRepository
	tokens *tokenTable
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo := newMockRepository()
	tokens := &tokenTable{tokens: make(map[string]domain.Identity)}
	service := NewService(repo, tokens)
	handler := NewHandler(service)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(service))
		handler.RegisterProtectedRoutes(r)
	})

	return &apiFixture{router: r, repo: repo, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.Equal(t, rec.Code, env.Status)
	return rec, env
}

func (f *apiFixture) signup(t *testing.T, name, email, password string) (int64, string) {
	t.Helper()

	rec, env := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.User.ID, data.Token.AccessToken
}

func TestAPI_SignupSigninDashboard(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Alice", "email": "alice@x.com", "password": "Secret1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User created successfully", env.Message)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, env = f.do(t, http.MethodPost, "/auth/signin", "", map[string]string{
		"email": "alice@x.com", "password": "Secret1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var auth AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	require.NotNil(t, auth.Token)
	assert.Equal(t, "alice@x.com", auth.User.Email)

	rec, _ = f.do(t, http.MethodPost, "/auth/signin", "", map[string]string{
		"email": "alice@x.com", "password": "Wrong1!!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/auth/dashboard", auth.Token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, env.Message, "alice@x.com")

	rec, env = f.do(t, http.MethodGet, "/auth/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no token provided", env.Message)

	rec, _ = f.do(t, http.MethodGet, "/auth/dashboard", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_SignupDuplicateAndValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t, "Alice", "alice@x.com", "Secret1!")

	rec, env := f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Alice Again", "email": "alice@x.com", "password": "Secret2!",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists", env.Message)

	callsBefore := f.repo.calls
	rec, env = f.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Al", "email": "not-an-email", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation error", env.Message)
	assert.Equal(t, callsBefore, f.repo.calls)

	var fields []map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Len(t, fields, 3)
}

func TestAPI_SignupInvalidJSON(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_UserCRUD(t *testing.T) {
	f := newAPIFixture(t)
	aliceID, aliceToken := f.signup(t, "Alice", "alice@x.com", "Secret1!")
	bobID, bobToken := f.signup(t, "Bob", "bob@x.com", "Secret1!")

	rec, env := f.do(t, http.MethodGet, "/api/users", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []domain.User
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 2)

	rec, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", aliceID), bobToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/users/9999", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/users/abc", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d", aliceID), bobToken, map[string]string{
		"name": "Hacked", "email": "hacked@x.com",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = f.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d", aliceID), aliceToken, map[string]string{
		"name": "Alice", "email": "bob@x.com",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, env.Message)

	rec, _ = f.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d", aliceID), aliceToken, map[string]string{
		"name": "Alice Smith", "email": "alice@x.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/users", aliceToken, map[string]string{
		"name": "Carol", "email": "carol@x.com", "password": "Secret1!",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = f.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", bobID), bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary domain.UserSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, bobID, summary.ID)

	rec, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", bobID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPI_AdminCreatesAndDeletes(t *testing.T) {
	f := newAPIFixture(t)

	admin := &domain.User{Name: "Root", Email: "root@x.com", Role: domain.RoleAdmin, PasswordHash: "x"}
	require.NoError(t, f.repo.CreateUser(t.Context(), admin))
	token, err := f.tokens.IssueToken(admin)
	require.NoError(t, err)

	rec, env := f.do(t, http.MethodPost, "/api/users", token.AccessToken, map[string]string{
		"name": "Carol", "email": "carol@x.com", "password": "Secret1!", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)

	var carol domain.User
	require.NoError(t, json.Unmarshal(env.Data, &carol))
	assert.Equal(t, domain.RoleAdmin, carol.Role)

	rec, _ = f.do(t, http.MethodDelete, "/api/users/9999", token.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d", carol.ID), token.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/users/%d", carol.ID), token.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
