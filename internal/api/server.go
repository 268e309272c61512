package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidashi/garment-order-tracker/internal/config"
	"github.com/vaidashi/garment-order-tracker/internal/outbox"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/internal/service"
	"github.com/vaidashi/garment-order-tracker/pkg/circuitbreaker"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/middleware"
)

// Deps are the collaborators the HTTP handlers call
type Deps struct {
	Users       *service.UserService
	Products    *service.ProductService
	Orders      *service.OrderService
	DeadLetters *outbox.DeadLetterProcessor
	DLQStore    repository.DeadLetterStore
	Outbox      repository.OutboxStore
	// Breakers are exposed on the admin circuit breaker endpoints by name
	Breakers []*circuitbreaker.CircuitBreaker
}

type Server struct {
	config              *config.Config
	logger              logger.Logger
	router              *mux.Router
	httpServer          *http.Server
	users               *service.UserService
	products            *service.ProductService
	orders              *service.OrderService
	deadLetters         *outbox.DeadLetterProcessor
	dlqStore            repository.DeadLetterStore
	outbox              repository.OutboxStore
	breakers            map[string]*circuitbreaker.CircuitBreaker
	rateLimiter         *middleware.RateLimiterMiddleware
	endpointRateLimiter *middleware.EndpointRateLimiterMiddleware
	gracefulDegradation *middleware.GracefulDegradation
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, deps Deps, logger logger.Logger) *Server {
	r := mux.NewRouter()

	breakers := make(map[string]*circuitbreaker.CircuitBreaker, len(deps.Breakers))
	for _, b := range deps.Breakers {
		breakers[b.Name()] = b
	}

	rl := cfg.RateLimit
	server := &Server{
		config: cfg,
		logger: logger,
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		users:       deps.Users,
		products:    deps.Products,
		orders:      deps.Orders,
		deadLetters: deps.DeadLetters,
		dlqStore:    deps.DLQStore,
		outbox:      deps.Outbox,
		breakers:    breakers,
		rateLimiter: middleware.NewRateLimiterMiddleware(&middleware.RateLimiterConfig{
			GlobalMaxTokens:   rl.GlobalMaxTokens,
			GlobalMaxRate:     rl.GlobalMaxRate,
			GlobalMinRate:     rl.GlobalMinRate,
			GlobalThreshold:   rl.LoadThreshold,
			IPMaxTokens:       rl.IPMaxTokens,
			IPRefillRate:      rl.IPRefillRate,
			TrustForwardedFor: rl.TrustForwardedFor,
		}, logger),
		endpointRateLimiter: middleware.NewEndpointRateLimiterMiddleware(rl.EndpointMaxTokens, rl.EndpointRate, logger),
		gracefulDegradation: middleware.NewGracefulDegradation(logger, "/api/v1/health", "/api/v1/admin"),
	}

	// Login and registration are the usual brute force targets.
	server.endpointRateLimiter.SetLimit("POST:/api/v1/auth/login", rl.IPMaxTokens/5+1, rl.IPRefillRate/5+0.1)
	server.endpointRateLimiter.SetLimit("POST:/api/v1/auth/register", rl.IPMaxTokens/5+1, rl.IPRefillRate/5+0.1)

	server.setupRoutes()
	return server
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimiter.Middleware)
	s.router.Use(s.endpointRateLimiter.Middleware)
	s.router.Use(s.gracefulDegradation.Middleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	// Accounts
	api.HandleFunc("/auth/register", s.registerHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.loginHandler).Methods(http.MethodPost)
	api.HandleFunc("/users/me", s.authed(s.getProfileHandler)).Methods(http.MethodGet)
	api.HandleFunc("/users/me", s.authed(s.updateProfileHandler)).Methods(http.MethodPut)

	// Products
	api.HandleFunc("/products", s.listProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products", s.authed(s.createProductHandler)).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", s.getProductHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", s.authed(s.updateProductHandler)).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", s.authed(s.deleteProductHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id}/inventory", s.authed(s.adjustInventoryHandler)).Methods(http.MethodPut)

	// Orders. Listings are registered before /orders/{id}.
	api.HandleFunc("/orders", s.authed(s.createOrderHandler)).Methods(http.MethodPost)
	api.HandleFunc("/orders/pending", s.authed(s.pendingOrdersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/approved", s.authed(s.approvedOrdersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/my-orders", s.authed(s.myOrdersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/admin", s.authed(s.adminOrdersHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.authed(s.getOrderHandler)).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/approve", s.authed(s.approveOrderHandler)).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}/reject", s.authed(s.rejectOrderHandler)).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}/status", s.authed(s.updateOrderStatusHandler)).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id}/cancel", s.authed(s.cancelOrderHandler)).Methods(http.MethodPut)

	// Tracking and payments
	api.HandleFunc("/tracking/order/{id}", s.authed(s.getTrackingHandler)).Methods(http.MethodGet)
	api.HandleFunc("/tracking/order/{id}", s.authed(s.recordStageHandler)).Methods(http.MethodPost)
	api.HandleFunc("/payments/create-checkout-session", s.authed(s.createCheckoutSessionHandler)).Methods(http.MethodPost)

	// Admin API for user management, monitoring and recovery
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/users", s.adminOnly(s.listUsersHandler)).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/status", s.adminOnly(s.setUserStatusHandler)).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}/role", s.adminOnly(s.setUserRoleHandler)).Methods(http.MethodPut)
	admin.HandleFunc("/outbox", s.adminOnly(s.outboxStatusHandler)).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters", s.adminOnly(s.getDeadLettersHandler)).Methods(http.MethodGet)
	admin.HandleFunc("/dead-letters/{id}/retry", s.adminOnly(s.retryDeadLetterHandler)).Methods(http.MethodPost)
	admin.HandleFunc("/dead-letters/{id}/discard", s.adminOnly(s.discardDeadLetterHandler)).Methods(http.MethodPost)
	admin.HandleFunc("/rate-limits", s.adminOnly(s.getRateLimitsHandler)).Methods(http.MethodGet)
	admin.HandleFunc("/rate-limits", s.adminOnly(s.setEndpointRateLimitHandler)).Methods(http.MethodPut)
	admin.HandleFunc("/circuit-breakers", s.adminOnly(s.getCircuitBreakerStatusHandler)).Methods(http.MethodGet)
	admin.HandleFunc("/circuit-breakers/{name}/reset", s.adminOnly(s.resetCircuitBreakerHandler)).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondWithCode(w, http.StatusNotFound, "not_found", "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respondWithCode(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
}

// Middleware for logging requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := middleware.NewStatusRecorder(w)

		next.ServeHTTP(wrapped, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.Status(),
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
