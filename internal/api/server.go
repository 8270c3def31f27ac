// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/id-scanner/internal/circuitbreaker"
	"github.com/id-scanner/internal/entitlement"
	"github.com/id-scanner/internal/idparser"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/lookup"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/service"
	"github.com/id-scanner/internal/types"
)

// Service interfaces for dependency injection and testing

// ScanServiceInterface defines the scan operations
type ScanServiceInterface interface {
	Scan(ctx context.Context, userID, raw string, source types.ScanSource) (*service.ScanOutcome, error)
	Parse(raw string, source types.ScanSource) (*models.ParsedIDRecord, idparser.Validation)
	Verify(ctx context.Context, userID, raw string, source types.ScanSource) (*lookup.Verification, error)
	LookupStats() service.LookupStats
}

// EntitlementServiceInterface defines the subscription state operations
type EntitlementServiceInterface interface {
	GetSubscription(ctx context.Context, userID string) (*service.SubscriptionView, error)
}

// SubscriptionServiceInterface defines the plan purchase operations
type SubscriptionServiceInterface interface {
	Plans() []entitlement.PlanDetails
	Upgrade(ctx context.Context, userID string, req service.UpgradeRequest) (*service.UpgradeResult, error)
	Confirm(ctx context.Context, userID, paymentID string) (*service.UpgradeResult, error)
	PaymentHistory(ctx context.Context, userID string) ([]*models.Payment, error)
}

// HistoryServiceInterface defines the record history operations
type HistoryServiceInterface interface {
	Recent(ctx context.Context, userID string, limit int) ([]service.HistoryEntry, error)
	Search(ctx context.Context, userID, term string) ([]service.HistoryEntry, error)
	AllForIDNumber(ctx context.Context, userID, idNumber string) ([]service.HistoryEntry, error)
	Statistics(ctx context.Context, userID string) (*models.ScanStatistics, error)
	DailyCounts(ctx context.Context, days int) ([]models.DailyScanCount, error)
	Export(ctx context.Context, userID string, format service.ExportFormat) ([]byte, error)
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Services bundles the collaborators of the server
type Services struct {
	Scans         ScanServiceInterface
	Entitlements  EntitlementServiceInterface
	Subscriptions SubscriptionServiceInterface
	History       HistoryServiceInterface
	// PaymentBreaker is reported by /health when set
	PaymentBreaker *circuitbreaker.CircuitBreaker
	// Checks are run by /health, keyed by dependency name
	Checks map[string]HealthCheck
}

// Server represents the HTTP API server.
type Server struct {
	router      *mux.Router
	handler     http.Handler
	httpServer  *http.Server
	services    Services
	rateLimiter *RateLimiter
	config      *ServerConfig
	logger      *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FreeRPS         int // requests per second for the free plan
	ProRPS          int // requests per second for paid plans
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, services Services) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		config:   config,
		logger:   logging.GetGlobalLogger().WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.rateLimiter = NewRateLimiter(s.config.FreeRPS, s.config.ProRPS, s.planOf)

	s.setupRoutes()

	// wrapped outside the router so unmatched routes and preflights are covered
	s.handler = LoggingMiddleware(RecoveryMiddleware(CORSMiddleware(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/plans", s.handlePlans).Methods("GET")

	// everything below needs a caller identity
	user := api.NewRoute().Subrouter()
	user.Use(RequireUser)
	user.Use(RateLimitMiddleware(s.rateLimiter))

	// Scan endpoints
	user.HandleFunc("/parse", s.handleParse).Methods("POST")
	user.HandleFunc("/scans", s.handleScan).Methods("POST")
	user.HandleFunc("/verify", s.handleVerify).Methods("POST")

	// Record history endpoints
	user.HandleFunc("/records", s.handleRecentRecords).Methods("GET")
	user.HandleFunc("/records/search", s.handleSearchRecords).Methods("GET")
	user.HandleFunc("/records/{idNumber}", s.handleRecordsForID).Methods("GET")
	user.HandleFunc("/statistics", s.handleStatistics).Methods("GET")
	user.HandleFunc("/statistics/daily", s.handleDailyCounts).Methods("GET")
	user.Handle("/export", CompressionMiddleware(http.HandlerFunc(s.handleExport))).Methods("GET")

	// Subscription endpoints
	user.HandleFunc("/subscription", s.handleGetSubscription).Methods("GET")
	user.HandleFunc("/subscription/upgrade", s.handleUpgrade).Methods("POST")
	user.HandleFunc("/payments", s.handlePaymentHistory).Methods("GET")
	user.HandleFunc("/payments/{id}/confirm", s.handleConfirmPayment).Methods("POST")
}

// planOf resolves the plan used to size the rate limit of userID
func (s *Server) planOf(ctx context.Context, userID string) types.Plan {
	if s.services.Entitlements == nil {
		return types.PlanFree
	}
	view, err := s.services.Entitlements.GetSubscription(ctx, userID)
	if err != nil {
		return types.PlanFree
	}
	return view.State.Plan
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := make(map[string]string, len(s.services.Checks))
	for name, check := range s.services.Checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]interface{}{
		"status":       status,
		"service":      "id-scanner",
		"dependencies": deps,
	}
	if s.services.Scans != nil {
		body["lookups"] = s.services.Scans.LookupStats()
	}
	if s.services.PaymentBreaker != nil {
		body["paymentGateway"] = s.services.PaymentBreaker.GetStats()
	}
	respondJSON(w, code, body)
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
