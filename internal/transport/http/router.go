package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ipormac/internal/app"
	"ipormac/internal/monitoring"
)

// NewRouter wires the websocket, REST and operational endpoints.
func NewRouter(service *app.DrillService, metrics *monitoring.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", NewWSHandler(service, metrics).ServeWS)

	api := NewAPI(service)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		api.Routes(r)
	})
	return r
}
