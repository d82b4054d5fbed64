package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/iabot/core-gateway/api"
	"github.com/iabot/core-gateway/internal/config"
)

const serviceDescription = "Core gateway: chat, speech and voice endpoints in front of a local model runtime"

// handleHome handles GET /.
func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "online",
		"version":     config.Version,
		"description": serviceDescription,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOpenAPISpec serves the embedded openapi.yaml.
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.OpenAPISpec)
}

var (
	specJSONOnce sync.Once
	specJSON     []byte
	specJSONErr  error
)

// openAPIJSON converts the embedded YAML document to JSON once.
func openAPIJSON() ([]byte, error) {
	specJSONOnce.Do(func() {
		var doc map[string]any
		if specJSONErr = yaml.Unmarshal(api.OpenAPISpec, &doc); specJSONErr != nil {
			return
		}
		specJSON, specJSONErr = json.Marshal(doc)
	})
	return specJSON, specJSONErr
}

// handleOpenAPIJSON serves the same document as JSON at /openapi.json.
func (s *Server) handleOpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	data, err := openAPIJSON()
	if err != nil {
		s.log.Error("convert openapi spec failed", "err", err)
		writeDetail(w, http.StatusInternalServerError, "openapi document unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Core gateway</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
code, pre { background: #f4f4f4; border-radius: 4px; }
pre { padding: .75rem; overflow-x: auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ddd; padding: .3rem .6rem; text-align: left; }
</style>
</head>
<body>
{{.Body}}
<p><small>version {{.Version}}</small></p>
</body>
</html>
`))

var (
	docsOnce sync.Once
	docsHTML template.HTML
	docsErr  error
)

// renderDocs converts the embedded guide once.
func renderDocs() (template.HTML, error) {
	docsOnce.Do(func() {
		gm := goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // route tables
			),
		)
		var buf bytes.Buffer
		if docsErr = gm.Convert(api.DocsMarkdown, &buf); docsErr == nil {
			docsHTML = template.HTML(buf.String()) //nolint:gosec
		}
	})
	return docsHTML, docsErr
}

// handleDocs handles GET /docs.
func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	body, err := renderDocs()
	if err != nil {
		s.log.Error("render docs failed", "err", err)
		http.Error(w, "docs unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := docsPage.Execute(w, map[string]any{"Body": body, "Version": config.Version}); err != nil {
		s.log.Error("docs template error", "err", err)
	}
}
