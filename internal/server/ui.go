package server

import (
	"html/template"
	"net/http"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Voyage</title>
    <style>
        body { font-family: sans-serif; max-width: 800px; margin: 50px auto; background: #1a1a1a; color: #e5e5e5; }
        h1, a { color: #60a5fa; }
        td { padding: 4px 12px 4px 0; }
        code { color: #fbbf24; }
    </style>
</head>
<body>
    <h1>Voyage API Server</h1>
    <p>Active project: <strong>{{.Active}}</strong></p>
    <table>
    {{- range .Routes}}
        <tr>
            <td>{{if .Example}}<a href="{{.Example}}"><code>{{.Pattern}}</code></a>{{else}}<code>{{.Pattern}}</code>{{end}}</td>
            <td>{{.Summary}}</td>
        </tr>
    {{- end}}
        <tr><td><a href="/metrics"><code>/metrics</code></a></td><td>Prometheus metrics</td></tr>
    </table>
</body>
</html>
`))

// indexHandler renders the route table at "/" and 404s everything else.
func (s *Server) indexHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		active, _, _ := s.projects.Active()
		data := struct {
			Active string
			Routes []apiRoute
		}{
			Active: active.ID,
			Routes: s.routes,
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTemplate.Execute(w, data); err != nil {
			s.logger.Error("rendering index", "error", err)
		}
	})
}
