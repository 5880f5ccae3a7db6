package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/voxworks/studio-api/internal/api"
	"github.com/voxworks/studio-api/internal/api/middleware"
	"github.com/voxworks/studio-api/internal/dispatch"
	"github.com/voxworks/studio-api/internal/gateway"
	"github.com/voxworks/studio-api/internal/service/auth"
	"github.com/voxworks/studio-api/internal/store"
	"github.com/voxworks/studio-api/internal/telemetry"
)

// routerDeps bundles everything the router wires together.
type routerDeps struct {
	jobStore   store.JobStore
	userStore  store.UserStore
	dispatcher dispatch.Dispatcher
	controller api.JobController
	jwtService auth.JWTService
	gateway    *gateway.Gateway
}

// buildRouter assembles the full HTTP surface: health, metrics, auth, the job
// API, and the WebSocket gateway.
func buildRouter(deps routerDeps) http.Handler {
	authHandler := api.NewAuthHandler(deps.userStore, deps.jwtService, auth.NewBcryptVerifier())
	jobHandler := api.NewJobHandler(deps.jobStore, deps.dispatcher, deps.controller)
	authMiddleware := middleware.NewAuthMiddleware(deps.jwtService)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/", jobHandler.Create)
			r.Get("/{jobID}", jobHandler.Get)
			r.Get("/{jobID}/result", jobHandler.GetResult)
			r.Post("/{jobID}/cancel", jobHandler.Cancel)
			r.Post("/{jobID}/progress", jobHandler.UpdateProgress)
		})
	})

	// The gateway authenticates from the token query parameter or the
	// Authorization header itself; browsers cannot attach headers on
	// WebSocket dials, so the auth middleware does not apply here.
	r.Get("/ws/jobs", deps.gateway.HandleUser)
	r.Get("/ws/jobs/{jobID}", deps.gateway.HandleJob)

	return r
}
