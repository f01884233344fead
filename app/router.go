package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the read-only HTTP surface.
func (app *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", app.healthz)
	if app.Config.Observability.MetricsAddress == "" {
		r.Method(http.MethodGet, "/metrics", app.Observability.MetricsHandler())
	}
	app.Contest.Handlers.Routes(r)
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (app *App) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]func(context.Context) error{}
	if app.bunDB != nil {
		checks["postgres"] = app.bunDB.PingContext
	}
	if app.mongo != nil {
		checks["mongo"] = func(ctx context.Context) error { return app.mongo.Ping(ctx, nil) }
	}
	if app.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}
	if app.Contest.Queue != nil {
		checks["queue"] = app.Contest.Queue.HealthCheck
	}

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK
	for name, check := range checks {
		if err := check(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
