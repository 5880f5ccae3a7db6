// Package gateway terminates WebSocket connections for real-time job
// notifications. Each connection authenticates a principal, holds exactly one
// topic subscription at a time, and relays bus events as typed JSON envelopes.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxworks/studio-api/internal/bus"
	"github.com/voxworks/studio-api/internal/service/auth"
	"github.com/voxworks/studio-api/internal/telemetry"
)

// TokenValidator is the slice of the authentication service the gateway
// consumes: bearer token in, principal claims out.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error)
}

// Config holds gateway tuning knobs.
type Config struct {
	// SubscriberBuffer bounds the per-connection event queue; events beyond
	// it are dropped by the bus rather than stalling other subscribers.
	SubscriberBuffer int

	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration
}

// DefaultConfig returns the gateway defaults.
func DefaultConfig() Config {
	return Config{
		SubscriberBuffer: bus.DefaultSubscriberBuffer,
		WriteTimeout:     10 * time.Second,
	}
}

// Gateway upgrades HTTP requests to WebSocket connections and manages their
// subscriptions for the lifetime of each connection.
type Gateway struct {
	bus       bus.Bus
	validator TokenValidator
	upgrader  websocket.Upgrader
	cfg       Config
	logger    *slog.Logger
}

// New creates a Gateway.
func New(notifyBus bus.Bus, validator TokenValidator, cfg Config, logger *slog.Logger) *Gateway {
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultConfig().SubscriberBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	return &Gateway{
		bus:       notifyBus,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers cannot set Authorization headers on WebSocket dials,
			// so cross-origin dashboards are expected callers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cfg:    cfg,
		logger: logger.With("component", "gateway"),
	}
}

// HandleJob serves /ws/jobs/{jobID}: updates for one specific job.
func (g *Gateway) HandleJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	g.serve(w, r, &jobID)
}

// HandleUser serves /ws/jobs: updates for every job the principal created.
func (g *Gateway) HandleUser(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, nil)
}

// serve authenticates the request, upgrades it, performs the default
// subscription, and runs the connection pumps until disconnect.
func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, jobID *uuid.UUID) {
	token := extractToken(r)
	if token == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}

	claims, err := g.validator.ValidateToken(r.Context(), token)
	if err != nil {
		// Reject before the upgrade: the client never sees a frame.
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	telemetry.ActiveConnections.Inc()

	log := g.logger.With("user_id", claims.UserID)
	conn := newConnection(ws, g.bus, claims.UserID, g.cfg.SubscriberBuffer, g.cfg.WriteTimeout, log)

	confirm := connectionEstablishedMessage{Type: msgTypeConnectionEstablished}
	if jobID != nil {
		confirm.Group = bus.JobTopic(*jobID)
		confirm.JobID = jobID.String()
	} else {
		confirm.Group = bus.UserTopic(claims.UserID)
	}

	conn.subscribe(confirm.Group)
	conn.send(confirm)
	log.Info("connection established", "group", confirm.Group)

	go conn.writePump()
	conn.readPump()

	log.Debug("connection closed", "group", conn.currentTopic())
}

// extractToken pulls the bearer credential from the token query parameter or
// the Authorization header.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
