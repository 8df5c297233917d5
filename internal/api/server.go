// Package api exposes the chat service over HTTP: chat turns (synchronous
// and NDJSON streaming), conversation management, and health probes, behind
// a middleware chain for recovery, request correlation, logging, CORS,
// identity resolution, and per-IP rate limiting.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/pasabayan/chatd/internal/convo"
	"github.com/pasabayan/chatd/internal/gateway"
	"github.com/pasabayan/chatd/internal/identity"
	"github.com/pasabayan/chatd/internal/log"
)

// defaultRateBurst is the per-minute allowance for regular callers when
// none is configured.
const defaultRateBurst = 30

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    log.Logger
	Assistant Responder          // Required
	Store     convo.Store        // Required
	Gateway   *gateway.Client    // Required: backs the health probe
	Resolver  *identity.Resolver // Required

	// StorePing is polled by /ready. Nil means the store is always ready
	// (in-memory backend).
	StorePing func(context.Context) error

	CORSOrigins []string // Allowed origins for CORS
	TrustProxy  bool     // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst   int      // Per-minute allowance per IP (0 = default 30)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("conversation store is required")
	}
	if cfg.Gateway == nil {
		return nil, errors.New("gateway client is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("identity resolver is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{
		assistant: cfg.Assistant,
		store:     cfg.Store,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("POST /api/chat/stream", ch.stream)
	mux.HandleFunc("POST /api/chat/new", ch.newConversation)
	mux.HandleFunc("GET /api/chat/{id}", ch.getConversation)
	mux.HandleFunc("DELETE /api/chat/{id}", ch.deleteConversation)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	userLimiter := newRateLimiter(burst)
	privilegedLimiter := newRateLimiter(privilegedRateBurst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → Identity → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before Identity so preflight OPTIONS succeeds
	// without credentials. Identity must be before RateLimit so privileged
	// callers get their larger allowance.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(userLimiter, privilegedLimiter, cfg.TrustProxy, logger)(handler)
	handler = identityMiddleware(cfg.Resolver, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates health probes from the middleware stack.
	topMux := http.NewServeMux()
	topMux.Handle("GET /health", health(cfg.Gateway, logger))
	topMux.Handle("GET /ready", readiness(cfg.StorePing, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
