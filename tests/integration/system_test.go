//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/account-garden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_Probes(t *testing.T) {
	for _, base := range []string{testServer.URL, sessionServer.URL} {
		client := testutil.NewClient(base)
		for _, path := range []string{"/healthz", "/readyz"} {
			resp, err := client.GET(path)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode, base+path)
			assert.Equal(t, "OK", testutil.ReadBody(t, resp))
		}
	}
}

func TestSystem_Version(t *testing.T) {
	resp, err := newTestClient(t).GET("/version")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info map[string]string
	testutil.DecodeJSON(t, resp, &info)
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "commit")
}

func TestSystem_OpenAPIDocument(t *testing.T) {
	resp, err := newTestClientWithoutValidation().GET("/api/openapi.yaml")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "openapi: 3.0.3")
}
