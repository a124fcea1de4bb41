// Package server exposes the rule administration and statement
// processing HTTP API. All routes except the health check require the
// X-API-Key header.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tvabook-dev/tvabook/internal/admin"
	"github.com/tvabook-dev/tvabook/internal/archive"
	"github.com/tvabook-dev/tvabook/internal/pipeline"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "X-API-Key"

// Server holds the API dependencies.
type Server struct {
	admin    *admin.Service
	archive  *archive.Store
	pipeline *pipeline.Pipeline
	accounts []string
	basePath string
	apiKey   string
	limiter  *rate.Limiter
	log      *slog.Logger
}

// Options configures a Server.
type Options struct {
	Admin    *admin.Service
	Archive  *archive.Store
	Pipeline *pipeline.Pipeline
	Accounts []string // configured bank account numbers
	BasePath string
	APIKey   string
	Log      *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		admin:    opts.Admin,
		archive:  opts.Archive,
		pipeline: opts.Pipeline,
		accounts: opts.Accounts,
		basePath: opts.BasePath,
		apiKey:   opts.APIKey,
		// Rule administration is low-traffic by nature; a small burst is
		// plenty.
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 20),
		log:     log,
	}
}

// Handler builds the routed and middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /tva-rules", s.handleListRules)
	api.HandleFunc("POST /tva-rules", s.handleReplaceRules)
	api.HandleFunc("GET /tva-rules/{category}", s.handleGetRule)
	api.HandleFunc("POST /tva-rules/{category}", s.handleCreateRule)
	api.HandleFunc("PUT /tva-rules/{category}", s.handleUpdateRule)
	api.HandleFunc("DELETE /tva-rules/{category}", s.handleDeleteRule)
	api.HandleFunc("POST /validate-request", s.handleValidate)
	api.HandleFunc("GET /accounts", s.handleListAccounts)
	api.HandleFunc("POST /process", s.handleProcess)
	api.HandleFunc("GET /reports", s.handleListReports)
	api.HandleFunc("POST /reports/{id}/declare", s.handleDeclareReport)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", s.handleHealth)
	root.Handle("/", s.requireAPIKey(api))

	return s.logRequests(s.rateLimit(root))
}
