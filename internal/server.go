package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/sprintdeck/sprintdeck/internal/config"
	"github.com/sprintdeck/sprintdeck/internal/deployment"
	"github.com/sprintdeck/sprintdeck/internal/sprint"
	"github.com/sprintdeck/sprintdeck/internal/stream"
	"github.com/sprintdeck/sprintdeck/internal/task"
	"github.com/sprintdeck/sprintdeck/internal/user"
	"github.com/sprintdeck/sprintdeck/internal/webhook"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
	"github.com/sprintdeck/sprintdeck/pkg/clog"
)

type Server struct {
	server           *http.Server
	env              *config.Env
	sprintServer     *sprint.Server
	taskServer       *task.Server
	deploymentServer *deployment.Server
	userServer       *user.Server
	webhookServer    *webhook.Server
	streamServer     *stream.Server
}

func NewServer(
	env *config.Env,
	sprintServer *sprint.Server,
	taskServer *task.Server,
	deploymentServer *deployment.Server,
	userServer *user.Server,
	webhookServer *webhook.Server,
	streamServer *stream.Server,
) *Server {
	return &Server{
		env:              env,
		sprintServer:     sprintServer,
		taskServer:       taskServer,
		deploymentServer: deploymentServer,
		userServer:       userServer,
		webhookServer:    webhookServer,
		streamServer:     streamServer,
	}
}

// ListenAndServe starts the HTTP server. The provided context is used as the
// base context for all incoming requests via http.Server.BaseContext, so
// cancelling it (e.g. on shutdown signal) also ends open push connections.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
		s.sprintServer.RegisterRoutes(r)
		s.taskServer.RegisterRoutes(r)
		s.deploymentServer.RegisterRoutes(r)
		s.userServer.RegisterRoutes(r)
		s.webhookServer.RegisterRoutes(r)
	})

	// The push endpoint hijacks the connection, so it stays outside the JSON
	// response middleware.
	s.streamServer.RegisterRoutes(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(r)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// apiKeyMiddleware guards mutating API requests. Reads, the push channel and
// inbound webhooks stay open; webhook authenticity is the sender's concern
// (signature verification lives at the ingress proxy).
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions ||
			!strings.HasPrefix(r.URL.Path, "/api/") ||
			strings.HasPrefix(r.URL.Path, "/api/webhooks/") {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"Unauthenticated","message":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
