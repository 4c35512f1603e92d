// Package api exposes the support bot over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
)

const (
	SessionCookieName = "session_id"
	sessionCookieAge  = 7 * 24 * time.Hour
	maxBodyBytes      = 64 << 10
)

// TurnProcessor runs conversation turns.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error)
	EndSession(ctx context.Context, sessionID string) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Turns    TurnProcessor
	Coupons  model.CouponService
	Registry *prometheus.Registry
	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]Pinger
	// SecureCookies sets the Secure flag on the session cookie.
	SecureCookies bool
}

// Handler serves the bot endpoints.
type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// NewRouter builds the HTTP router with global middleware and all routes.
func NewRouter(deps Deps) http.Handler {
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", h.Health)
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the bot routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1/bot", func(r chi.Router) {
		r.Post("/message", h.Message)
		r.Post("/request-coupon", h.RequestCoupon)
		r.Delete("/session", h.EndSession)
	})
}

// Health checks every registered dependency.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for name, p := range h.deps.Checks {
		if err := p.Ping(ctx); err != nil {
			logx.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}
	JSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}

// JSON writes a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// sessionID resolves the session from the body, then the cookie, and
// mints a new one otherwise. The cookie is always refreshed.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request, fromBody string) string {
	id := strings.TrimSpace(fromBody)
	if id == "" {
		if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	h.setSessionCookie(w, id)
	return id
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieAge),
		HttpOnly: true,
		Secure:   h.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func isValidSessionID(v string) bool {
	if v == "" || v == "null" {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logx.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chiMiddleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
