package news

import (
	"net/http"
)

// Register mounts the news routes. wrap is applied to every route and may
// be nil; the API passes the bearer auth middleware here when enabled.
func Register(mux *http.ServeMux, svc Reconciler, wrap func(http.Handler) http.Handler) {
	var h http.Handler = GetHandler{Svc: svc}
	if wrap != nil {
		h = wrap(h)
	}
	mux.Handle("GET /news", h)
}
