// Package gateway implements the Conversation Gateway: the HTTP/SSE
// entry point that authenticates a request, rate-limits it, invokes the
// Native Agent Runtime, and pipes its event stream to the wire.
//
// Server owns graceful shutdown and signal handling, and wraps routes
// with a middleware chain (observability -> logging -> cors -> auth ->
// rate limit -> routes) keyed on teacher identity for auth and per-teacher
// throttling.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classroomai/gateway/pkg/agentruntime"
	"github.com/classroomai/gateway/pkg/auth"
	"github.com/classroomai/gateway/pkg/observability"
	"github.com/classroomai/gateway/pkg/ratelimit"
)

// Options configures a Server.
type Options struct {
	Addr          string
	Runtime       *agentruntime.Runtime
	Auth          *auth.JWTValidator // nil disables authentication (local dev only)
	RateLimiter   ratelimit.RateLimiter
	Observability *observability.Manager // nil disables tracing/metrics middleware
	CORSOrigins   []string
}

// Server is the gateway's HTTP front end.
type Server struct {
	opts   Options
	server *http.Server

	mu                 sync.Mutex
	activeConversation map[string]bool
}

// New builds a Server from opts. It does not start listening until Start
// is called.
func New(opts Options) *Server {
	return &Server{
		opts:               opts,
		activeConversation: make(map[string]bool),
	}
}

// Start builds the route table, applies the middleware chain, and begins
// serving in the background. It blocks until ctx is cancelled or an OS
// termination signal (SIGINT/SIGTERM) arrives, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	router := chi.NewRouter()
	router.Get("/api/health", s.handleHealth)
	router.Post("/api/conversation/stream", s.handleConversationStream)
	router.Post("/api/conversation", s.handleConversation)

	excluded := map[string]bool{"/api/health": true}

	if s.opts.Observability != nil && s.opts.Observability.MetricsEnabled() {
		metricsPath := s.opts.Observability.MetricsEndpoint()
		router.Get(metricsPath, s.opts.Observability.MetricsHandler().ServeHTTP)
		excluded[metricsPath] = true
	}

	var handler http.Handler = router

	if s.opts.RateLimiter != nil {
		handler = ratelimit.Middleware(ratelimit.MiddlewareConfig{
			Limiter:        s.opts.RateLimiter,
			IdentifierFunc: teacherIdentifierFunc,
			ExcludedPaths:  excludedPaths(excluded),
		})(handler)
	}

	if s.opts.Auth != nil {
		handler = s.authExcluding(excluded, handler)
	}

	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)

	if s.opts.Observability != nil {
		handler = observability.HTTPMiddleware(s.opts.Observability.Tracer(), s.opts.Observability.Metrics())(handler)
	}

	s.server = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE responses can run for the full MaxTurnDuration
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway: HTTP server starting", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("gateway: received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("gateway: context cancelled, shutting down")
	}

	return s.Stop(context.Background())
}

// Stop gracefully shuts down the HTTP server, giving in-flight SSE turns
// up to 10s (beyond that the client sees a reset, not a clean finish
// event).
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway: shutdown: %w", err)
	}
	return nil
}

// authExcluding wraps next with bearer-token validation, passing excluded
// paths straight through.
func (s *Server) authExcluding(excluded map[string]bool, next http.Handler) http.Handler {
	wrapped := s.opts.Auth.HTTPMiddleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if excluded[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}

// corsMiddleware allows every origin when no origins are configured or the
// list contains "*", and applies the list as an explicit allowlist otherwise.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if len(s.opts.CORSOrigins) == 0 || containsOrigin(s.opts.CORSOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func excludedPaths(excluded map[string]bool) []string {
	paths := make([]string, 0, len(excluded))
	for p := range excluded {
		paths = append(paths, p)
	}
	return paths
}

func containsOrigin(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// loggingMiddleware logs the request line. It deliberately does not wrap
// http.ResponseWriter, so the SSE handler downstream still sees a real
// http.Flusher (the same constraint pkg/stream.SSEWriter is built around).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("gateway: request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func teacherIdentifierFunc(r *http.Request) (string, ratelimit.Scope) {
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil && claims.TeacherID != "" {
		return claims.TeacherID, ratelimit.ScopeUser
	}
	return "", ratelimit.ScopeUser
}

// lockConversation reports whether conversationID was successfully
// claimed for an exclusive in-flight turn; the caller must call
// unlockConversation when the turn ends.
func (s *Server) lockConversation(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeConversation[conversationID] {
		return false
	}
	s.activeConversation[conversationID] = true
	return true
}

func (s *Server) unlockConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeConversation, conversationID)
}
