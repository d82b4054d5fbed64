package api

import _ "embed"

// OpenAPISpec is the OpenAPI 3.1 description of the gateway, served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

// DocsMarkdown is the operator guide rendered at /docs.
//
//go:embed docs.md
var DocsMarkdown []byte
