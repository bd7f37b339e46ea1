package httpx

import (
	"fmt"
	"io"
	"net/http"
)

// Page shells for the session-gated frontend. The SPA fetches its data from
// /api; these exist so the gate has concrete routes to protect and redirect
// between.

const pageTemplate = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>quill</title></head>
<body><div id="app" data-page=%q></div><script src="/static/app.js"></script></body>
</html>
`

func servePage(name string) http.HandlerFunc {
	page := fmt.Sprintf(pageTemplate, name)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, page); err != nil {
			return
		}
	}
}
