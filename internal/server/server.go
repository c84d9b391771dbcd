// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"fitcoach/internal/auth"
	"fitcoach/internal/fitness"
	"fitcoach/internal/payment"
	"fitcoach/pkg/logger"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// WebhookParser verifies Stripe webhooks. *payment.StripeClient satisfies it.
type WebhookParser interface {
	ParseWebhook(payload []byte, sig string) (*payment.Session, error)
}

type Server struct {
	server *http.Server
	logger *logger.Logger
}

func NewServer(cfg Config, handler http.Handler, logger *logger.Logger) *Server {
	readTimeout, writeTimeout := cfg.ReadTimeout, cfg.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	// Plan generation holds the connection for the whole provider call.
	if writeTimeout <= 0 {
		writeTimeout = 120 * time.Second
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server: httpServer,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Infow("Starting HTTP server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Infow("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// NewHandler builds the full REST surface: routing, auth, CORS and access logs.
// webhooks may be nil when billing is not configured.
func NewHandler(svc *fitness.Service, webhooks WebhookParser, authCfg auth.Config, allowedOrigins []string, l *logger.Logger) http.Handler {
	h := &Handler{service: svc, webhooks: webhooks, logger: l}

	r := mux.NewRouter()
	r.HandleFunc("/health", healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	h.RegisterRoutes(r)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})

	authed := auth.NewMiddleware(authCfg,
		auth.PathPrefixSkipper("/health", "/metrics", "/auth/", "/webhook/"),
	).Wrap(r)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	return c.Handler(loggingMiddleware(l, authed))
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func loggingMiddleware(l *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		l.Infow("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start))
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
