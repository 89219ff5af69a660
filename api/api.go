// Package api embeds the OpenAPI description of the JSON API.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document served at /api/openapi.yaml.
//
//go:embed openapi/openapi.yaml
var OpenAPI []byte
