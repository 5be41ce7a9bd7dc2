package mcp

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Codebase Embeddings MCP Server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #0f172a; color: #e2e8f0; display: flex; justify-content: center; padding: 3rem 1rem; }
  .card { max-width: 640px; width: 100%; background: #1e293b; border-radius: 12px; padding: 2rem; }
  h1 { font-size: 1.5rem; margin: 0 0 0.5rem; }
  .subtitle { color: #94a3b8; }
  h2 { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-top: 1.5rem; }
  code { font-family: "SF Mono", Menlo, monospace; color: #a5b4fc; }
  a { color: #38bdf8; }
</style>
</head>
<body>
<div class="card">
  <h1>Codebase Embeddings MCP Server</h1>
  <p class="subtitle">Semantic search over Python codebases indexed into Qdrant.</p>

  <h2>Default collection</h2>
  <p><code>{{.Collection}}</code></p>

  <h2>Tools</h2>
  <p><code>search_code</code>, <code>index_codebase</code>, <code>collection_status</code></p>

  <h2>Endpoints</h2>
  <p><a href="/mcp"><code>/mcp</code></a> MCP Streamable HTTP</p>
  <p><a href="/health"><code>/health</code></a> Health check</p>
</div>
</body>
</html>`))

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingTemplate.Execute(w, struct{ Collection string }{collection})
	}
}
