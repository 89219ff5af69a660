//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/account-garden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_ListAndGet(t *testing.T) {
	alice, aliceID, _ := newUser(t, "Alice")
	defer deleteUserAsAdmin(t, aliceID)
	_, bobID, bobEmail := newUser(t, "Bob")
	defer deleteUserAsAdmin(t, bobID)

	resp, err := alice.GET("/api/users")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []apiUser
	decodeData(t, resp, &users)
	require.GreaterOrEqual(t, len(users), 2)
	assert.Equal(t, bobID, users[0].ID, "newest user first")

	resp, err = alice.GET(userPath(bobID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bob apiUser
	decodeData(t, resp, &bob)
	assert.Equal(t, bobEmail, bob.Email)

	resp, err = alice.GET(userPath(1 << 40))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUsers_RequireToken(t *testing.T) {
	resp, err := newTestClient(t).GET("/api/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUsers_UpdateSelf(t *testing.T) {
	alice, aliceID, _ := newUser(t, "Alice")
	defer deleteUserAsAdmin(t, aliceID)

	newEmail := testutil.RandomEmail("renamed")
	resp, err := alice.PUT(userPath(aliceID), map[string]string{
		"name":  "Alice Smith",
		"email": newEmail,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated apiUser
	env := decodeData(t, resp, &updated)
	assert.Equal(t, "User updated successfully", env.Message)
	assert.Equal(t, "Alice Smith", updated.Name)
	assert.Equal(t, newEmail, updated.Email)
	assert.Equal(t, "user", updated.Role)
	assert.NotEmpty(t, updated.CreatedAt)

	alice.LoginAs(t, newEmail, testPassword)
}

func TestUsers_UpdateEmailConflict(t *testing.T) {
	alice, aliceID, aliceEmail := newUser(t, "Alice")
	defer deleteUserAsAdmin(t, aliceID)
	_, bobID, bobEmail := newUser(t, "Bob")
	defer deleteUserAsAdmin(t, bobID)

	resp, err := alice.PUT(userPath(aliceID), map[string]string{
		"name":  "Alice",
		"email": bobEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	env := decodeData(t, resp, nil)
	assert.Equal(t, "User already exists", env.Message)

	resp, err = alice.GET(userPath(aliceID))
	require.NoError(t, err)
	var current apiUser
	decodeData(t, resp, &current)
	assert.Equal(t, aliceEmail, current.Email)
}

func TestUsers_CannotManageOthers(t *testing.T) {
	alice, aliceID, _ := newUser(t, "Alice")
	defer deleteUserAsAdmin(t, aliceID)
	_, bobID, _ := newUser(t, "Bob")
	defer deleteUserAsAdmin(t, bobID)

	resp, err := alice.PUT(userPath(bobID), map[string]string{"name": "Hacked", "email": testutil.RandomEmail("h")})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = alice.DELETE(userPath(bobID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = alice.POST("/api/users", map[string]string{
		"name": "Carol", "email": testutil.RandomEmail("carol"), "password": testPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUsers_AdminLifecycle(t *testing.T) {
	admin := newAdmin(t)
	email := testutil.RandomEmail("carol")

	resp, err := admin.POST("/api/users", map[string]string{
		"name": "Carol", "email": email, "password": testPassword, "role": "admin",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var carol apiUser
	decodeData(t, resp, &carol)
	assert.Equal(t, "admin", carol.Role)

	resp, err = admin.PUT(userPath(carol.ID), map[string]string{"name": "Carol King", "email": email})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = admin.DELETE(userPath(carol.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	env := decodeData(t, resp, &summary)
	assert.Equal(t, "User deleted successfully", env.Message)
	assert.Equal(t, carol.ID, summary.ID)

	resp, err = admin.DELETE(userPath(carol.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	env = decodeData(t, resp, nil)
	assert.Equal(t, "User not found", env.Message)
}

func TestUsers_DeleteSelf(t *testing.T) {
	alice, aliceID, email := newUser(t, "Alice")

	resp, err := alice.DELETE(userPath(aliceID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = newTestClient(t).POST("/auth/signin", map[string]string{"email": email, "password": testPassword})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}
