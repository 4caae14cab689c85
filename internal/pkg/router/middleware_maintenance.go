package router

import (
	"net/http"
	"slices"

	"github.com/shandysiswandi/gootp/internal/pkg/config"
)

// middlewareMaintenance blocks the route patterns listed in
// app.maintenance.endpoints. The list is read per request so a config reload
// takes effect immediately; "*" blocks everything except /health.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil {
				next.ServeHTTP(w, r)
				return
			}

			route := matchedRoutePath(r)
			blocked := cfg.GetArray("app.maintenance.endpoints")
			if route != "/health" && (slices.Contains(blocked, "*") || slices.Contains(blocked, route)) {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
