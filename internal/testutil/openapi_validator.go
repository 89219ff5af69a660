package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

const maxReportedBody = 200

// OpenAPIValidator checks JSON API traffic against the embedded OpenAPI document.
type OpenAPIValidator struct {
	doc    *openapi3.T
	router routers.Router
}

// NewOpenAPIValidator loads spec or fails the test.
func NewOpenAPIValidator(t *testing.T, spec []byte) *OpenAPIValidator {
	t.Helper()

	v, err := LoadOpenAPIValidator(spec)
	if err != nil {
		t.Fatalf("load OpenAPI validator: %v", err)
	}
	return v
}

// LoadOpenAPIValidator parses and validates spec. Use it from TestMain.
func LoadOpenAPIValidator(spec []byte) (*OpenAPIValidator, error) {
	doc, err := openapi3.NewLoader().LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate OpenAPI spec: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("create OpenAPI router: %w", err)
	}

	return &OpenAPIValidator{doc: doc, router: router}, nil
}

// Documents reports whether path belongs to the JSON API described by the document.
// Probes, the document itself and HTML pages are not described.
func (v *OpenAPIValidator) Documents(path string) bool {
	switch {
	case path == "/api/openapi.yaml":
		return false
	case strings.HasPrefix(path, "/auth/"), strings.HasPrefix(path, "/api/"), path == "/version":
		return true
	default:
		return false
	}
}

// Check validates an exchange: the request body (when sent), the response against
// the operation's declared responses, and that an enveloped body repeats the HTTP
// status. The response body is restored for the caller.
func (v *OpenAPIValidator) Check(t *testing.T, req *http.Request, reqBody []byte, resp *http.Response) {
	t.Helper()

	if !v.Documents(req.URL.Path) {
		return
	}

	// The document's server is "/", so routes are matched on the path alone.
	routeReq, err := http.NewRequest(req.Method, req.URL.Path, nil)
	if err != nil {
		t.Errorf("create route request: %v", err)
		return
	}
	route, pathParams, err := v.router.FindRoute(routeReq)
	if err != nil {
		t.Errorf("OpenAPI: no route for %s %s: %v", req.Method, req.URL.Path, err)
		return
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    cloneWithBody(req, reqBody),
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if reqBody != nil {
		if err := openapi3filter.ValidateRequest(context.Background(), input); err != nil {
			t.Errorf("OpenAPI request validation failed for %s %s: %v", req.Method, req.URL.Path, err)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("read response body: %v", err)
		return
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	})
	if err != nil {
		msg := err.Error()
		if len(msg) > 500 {
			msg = msg[:500] + "..."
		}
		t.Errorf("OpenAPI response validation failed for %s %s (status %d):\n%s\nResponse body: %s",
			req.Method, req.URL.Path, resp.StatusCode, msg, truncate(body))
	}

	v.checkEnvelope(t, req, resp.StatusCode, body)
}

func (v *OpenAPIValidator) checkEnvelope(t *testing.T, req *http.Request, status int, body []byte) {
	t.Helper()

	if req.URL.Path == "/version" {
		return
	}

	var env struct {
		Status *int `json:"status"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Status == nil {
		t.Errorf("%s %s: response is not an envelope: %s", req.Method, req.URL.Path, truncate(body))
		return
	}
	if *env.Status != status {
		t.Errorf("%s %s: envelope status %d differs from HTTP status %d", req.Method, req.URL.Path, *env.Status, status)
	}
}

func cloneWithBody(req *http.Request, body []byte) *http.Request {
	clone := req.Clone(context.Background())
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
	} else {
		clone.Body = http.NoBody
	}
	return clone
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxReportedBody {
		return s[:maxReportedBody] + "..."
	}
	return s
}
