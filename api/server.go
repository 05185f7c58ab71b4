/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. zap logger: Structured request logging
  4. CORS:       Cross-origin requests for a frontend

ROUTE GROUPS:
  /api/teller/*  Terminal operations (session-token protected,
                 except login)
  /api/admin/*   Provisioning and unlock (admin-token protected when a
                 token is configured)
  /metrics       Prometheus

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type contextKey string

const (
	ctxClientIdentity contextKey = "client_identity"
	ctxLoginAccount   contextKey = "login_account"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/teller", func(r chi.Router) {
			r.Post("/login", h.Login)

			// Session-protected terminal operations
			r.Group(func(r chi.Router) {
				r.Use(h.requireSession)
				r.Post("/logout", h.Logout)
				r.Get("/accounts", h.ListAccounts)
				r.Get("/accounts/{number}/movements", h.GetMovements)
				r.Post("/withdraw", h.Withdraw)
				r.Post("/deposit", h.Deposit)
				r.Post("/transfer", h.Transfer)
				r.Post("/change-pin", h.ChangePIN)
				r.Get("/holder", h.GetHolder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/clients", h.CreateClient)
			r.Post("/accounts", h.CreateAccount)
			r.Post("/unlock", h.Unlock)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requireSession resolves the bearer token to a client identity and
// rejects requests without a live session.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		identity, account, ok := h.Sessions.Lookup(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or expired session", nil)
			return
		}
		ctx := context.WithValue(r.Context(), ctxClientIdentity, identity)
		ctx = context.WithValue(ctx, ctxLoginAccount, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin checks the configured admin token. With no token
// configured the check is disabled, for local development.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.AdminToken != "" && r.Header.Get("X-Admin-Token") != h.AdminToken {
			writeError(w, http.StatusUnauthorized, "invalid admin token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}

func clientIdentity(r *http.Request) string {
	identity, _ := r.Context().Value(ctxClientIdentity).(string)
	return identity
}

// requestLogger logs each request with method, path, status and timing.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
