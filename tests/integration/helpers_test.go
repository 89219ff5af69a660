//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/bissquit/account-garden/internal/testutil"
	"github.com/stretchr/testify/require"
)

const testPassword = "Secret1!"

type apiUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type apiTodo struct {
	ID        int64  `json:"id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
}

// newUser signs up a fresh account and returns a client holding its token.
func newUser(t *testing.T, name string) (*testutil.Client, int64, string) {
	t.Helper()
	client := newTestClient(t)
	email := testutil.RandomEmail("user")
	id := client.Signup(t, name, email, testPassword)
	return client, id, email
}

// newAdmin returns a client logged in as the bootstrapped administrator.
func newAdmin(t *testing.T) *testutil.Client {
	t.Helper()
	client := newTestClient(t)
	client.LoginAs(t, adminEmail, adminPassword)
	return client
}

func userPath(id int64) string {
	return fmt.Sprintf("/api/users/%d", id)
}

func todoPath(id int64) string {
	return fmt.Sprintf("/api/todos/%d", id)
}

// deleteUserAsAdmin removes an account created by a test.
func deleteUserAsAdmin(t *testing.T, id int64) {
	t.Helper()
	resp, err := newAdmin(t).DELETE(userPath(id))
	require.NoError(t, err)
	_ = resp.Body.Close()
}

func decodeData(t *testing.T, resp *http.Response, v interface{}) testutil.Envelope {
	t.Helper()
	env := testutil.DecodeEnvelope(t, resp, nil)
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env
}
