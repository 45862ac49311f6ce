// Package httpserver exposes the Universal API over HTTP.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/universal-api/internal/convert"
	"github.com/and161185/universal-api/internal/errs"
	"github.com/and161185/universal-api/internal/limiter"
	"github.com/and161185/universal-api/internal/metrics"
	"github.com/and161185/universal-api/internal/model"
	"github.com/and161185/universal-api/internal/service"
)

// Resource path prefixes.
const (
	MessagesPath  = "/api/messages"
	MapStatesPath = "/api/map-states"
)

// Deps wires services into the router.
type Deps struct {
	Log        *zap.Logger
	ServiceTag string // X-Service header value, project@version

	Messages  service.MessageService
	MapStates service.MapStateService
	Health    service.HealthService

	Auth    Authenticator
	Lockout limiter.Limiter // nil disables the lockout
	Metrics *metrics.Metrics

	RateLimitRPS   float64 // 0 disables per-caller rate limiting
	RateLimitBurst int
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Lockout == nil {
		d.Lockout = limiter.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	r := chi.NewRouter()
	r.Use(requestContext(d.Log))
	r.Use(serviceHeader(d.ServiceTag))
	r.Use(recoverer)
	r.Use(accessLog)
	r.Use(instrument(d.Metrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errs.ErrNotFound)
	})

	r.Get("/health", healthHandler(d.Health, d.Metrics))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authenticate(d.Auth, d.Lockout, d.Metrics))
		if d.RateLimitRPS > 0 {
			r.Use(rateLimit(newCallerLimits(d.RateLimitRPS, d.RateLimitBurst)))
		}

		r.Get("/me", profile)

		messages := &resource[model.Message, model.MessageInput, convert.MessageView]{
			name:    "messages",
			prefix:  MessagesPath,
			svc:     d.Messages,
			owner:   func(m model.Message) string { return m.UserID },
			id:      func(m model.Message) int64 { return m.ID },
			view:    convert.FromMessage,
			metrics: d.Metrics,
		}
		r.Route(MessagesPath, messages.routes)

		mapStates := &resource[model.MapState, model.MapStateInput, convert.MapStateView]{
			name:    "map_states",
			prefix:  MapStatesPath,
			svc:     d.MapStates,
			owner:   func(m model.MapState) string { return m.UserID },
			id:      func(m model.MapState) int64 { return m.ID },
			view:    convert.FromMapState,
			metrics: d.Metrics,
		}
		r.Route(MapStatesPath, mapStates.routes)
	})

	return r
}

// profile returns the resolved identity of the caller.
func profile(w http.ResponseWriter, r *http.Request) {
	caller, ok := IdentityFromCtx(r.Context())
	if !ok {
		writeError(w, r, errs.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, caller)
}

func healthHandler(h service.HealthService, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hc := h.Check(r.Context())
		m.SetHealthy(hc.Status != model.HealthUnhealthy)

		status := http.StatusOK
		if hc.Status == model.HealthUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, hc)
	}
}
