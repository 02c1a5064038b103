// Package swaggerkit mounts the Swagger UI and its backing document
package swaggerkit

import (
	"net/http"

	phttp "bestsellers/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Mount wires the UI and doc.json under /api/docs when enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON())
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
