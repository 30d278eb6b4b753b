/*
Package main initializes the listing render backend server.

This backend watches an upstream trade listing feed, dispatches new listings
to a fleet of rendering workers, and serves the rendered images from a
filesystem artifact cache.

Key Features:
  - Poll the upstream listing feed and dispatch new listings automatically.
  - Round-robin dispatch across rendering workers with bounded retry.
  - Filesystem artifact cache with time-based sweep eviction.
  - Worker fleet health aggregation.

Run the application:

	$ go run main.go

Endpoints:
  - GET /images/{id}: Serve the cached rendered image for a listing.
  - POST /dispatch?id=<listing-id>: Force-dispatch a listing.
  - GET|PUT /workers: Inspect or replace the worker endpoint list.
  - GET /health/workers: Aggregated worker fleet health.
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/time/rate"

	"github.com/tradecast-labs/listing-render-backend/config"
	_ "github.com/tradecast-labs/listing-render-backend/docs"
	"github.com/tradecast-labs/listing-render-backend/middleware"
	"github.com/tradecast-labs/listing-render-backend/monitoring"
	"github.com/tradecast-labs/listing-render-backend/utils"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	clients map[string]*ClientLimiter
	mutex   sync.RWMutex
	rate    rate.Limit
	burst   int
}

// ClientLimiter represents a rate limiter for a specific client
type ClientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*ClientLimiter),
		rate:    r,
		burst:   b,
	}
}

// Allow checks if a client is allowed to make a request
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if _, exists := rl.clients[clientID]; !exists {
		rl.clients[clientID] = &ClientLimiter{
			limiter:  rate.NewLimiter(rl.rate, rl.burst),
			lastSeen: time.Now(),
		}
	}

	rl.clients[clientID].lastSeen = time.Now()
	return rl.clients[clientID].limiter.Allow()
}

// Cleanup removes stale client entries
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	for clientID, client := range rl.clients {
		if time.Since(client.lastSeen) > 5*time.Minute {
			delete(rl.clients, clientID)
		}
	}
}

func main() {
	// Load .env file if present; real deployments use the environment directly
	_ = godotenv.Load()

	// Initialize configuration
	cfg := config.NewConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize structured logger
	middleware.InitLogger(cfg.LogLevel)
	middleware.Logger.Info("Starting Listing Render Backend Server")

	// Initialize tracing
	tracerProvider, err := monitoring.InitTracing("listing-render-backend", cfg.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer monitoring.ShutdownTracing(tracerProvider)

	// Initialize alert manager
	alertManager := monitoring.NewAlertManager(middleware.Logger)
	defer alertManager.Stop()

	// Initialize services using DI container
	services, err := config.NewServices(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer services.Close()

	handler, err := services.Container.GetHandler()
	if err != nil {
		log.Fatalf("Failed to initialize handler: %v", err)
	}
	feedPoller, err := services.Container.GetPoller()
	if err != nil {
		log.Fatalf("Failed to initialize poller: %v", err)
	}
	aggregator, err := services.Container.GetAggregator()
	if err != nil {
		log.Fatalf("Failed to initialize health aggregator: %v", err)
	}
	reg, err := services.Container.GetRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize worker registry: %v", err)
	}

	// Wire the workers-down alert to the health aggregator
	alertManager.UpdateRuleCondition("Workers Down", func() bool {
		report := aggregator.LastReport()
		return report.Total > 0 && report.Healthy == 0
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the feed poll loop
	go feedPoller.Run(ctx)

	// Start the periodic worker health check loop
	go func() {
		aggregator.CheckAll(ctx)
		ticker := time.NewTicker(cfg.HealthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				aggregator.CheckAll(ctx)
			}
		}
	}()

	// Initialize rate limiter with configuration
	limiter := NewRateLimiter(rate.Limit(cfg.RateLimitRequestsPerMinute/60.0), cfg.RateLimitBurst)

	// Start cleanup goroutine with configured interval
	go func() {
		ticker := time.NewTicker(cfg.ClientCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Cleanup()
		}
	}()

	// Initialize the router
	router := mux.NewRouter()

	// Setup metrics endpoint
	monitoring.SetupMetricsEndpoint(router)

	// Setup health check endpoints (no rate limiting)
	router.HandleFunc("/health", handler.HandleHealthCheck).Methods("GET")
	router.HandleFunc("/health/live", handler.HandleLivenessCheck).Methods("GET")
	router.HandleFunc("/health/ready", handler.HandleReadinessCheck).Methods("GET")
	router.HandleFunc("/health/workers", handler.HandleWorkerHealth).Methods("GET")

	// Setup Swagger documentation
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Setup API routes with rate limiting and monitoring middleware
	router.HandleFunc("/images/{id}", MonitoringMiddleware(RateLimitMiddleware(limiter, handler.HandleGetImage))).Methods("GET")
	router.HandleFunc("/dispatch", MonitoringMiddleware(RateLimitMiddleware(limiter, handler.HandleDispatch))).Methods("POST")
	router.HandleFunc("/workers", MonitoringMiddleware(RateLimitMiddleware(limiter, handler.HandleGetWorkers))).Methods("GET")
	router.HandleFunc("/workers", MonitoringMiddleware(RateLimitMiddleware(limiter, handler.HandleReplaceWorkers))).Methods("PUT")

	// Apply logging middleware
	withLogging := middleware.LoggingMiddleware(router)

	// Attach the CORS middleware
	withCORS := CORSMiddleware(withLogging, cfg)

	middleware.Logger.WithField("workers", reg.Len()).Info("Server starting on :" + cfg.ServerPort)
	fmt.Printf("Server is running on http://localhost:%s\n", cfg.ServerPort)
	fmt.Printf("Metrics available at http://localhost:%s/metrics\n", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, withCORS))
}

// MonitoringMiddleware adds metrics and tracing to HTTP handlers
func MonitoringMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create tracing span
		ctx, span := monitoring.CreateSpan(r.Context(), fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		defer span.End()

		// Set span attributes
		monitoring.SetSpanAttributes(span, map[string]interface{}{
			"http.method":     r.Method,
			"http.url":        r.URL.String(),
			"http.user_agent": r.UserAgent(),
			"remote.addr":     r.RemoteAddr,
		})

		// Update request context with tracing
		r = r.WithContext(ctx)

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the next handler
		next.ServeHTTP(rw, r)

		// Record metrics
		duration := time.Since(start).Seconds()
		status := fmt.Sprintf("%d", rw.statusCode)

		monitoring.RecordHTTPRequest(r.Method, r.URL.Path, status, duration)

		// Update span with response info
		monitoring.SetSpanAttributes(span, map[string]interface{}{
			"http.status_code": rw.statusCode,
			"duration_seconds": duration,
		})

		// Record error if status indicates failure
		if rw.statusCode >= 400 {
			monitoring.SetSpanError(span, fmt.Errorf("HTTP %d", rw.statusCode))
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIdentifier extracts a client identifier for rate limiting,
// honoring proxy forwarding headers
func getClientIdentifier(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// Take the first IP from the forwarded chain
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

// RateLimitMiddleware implements rate limiting for HTTP handlers
func RateLimitMiddleware(limiter *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := getClientIdentifier(r)

		if !limiter.Allow(clientID) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = utils.GenerateRequestID()
			}
			middleware.RespondRateLimited(w, fmt.Errorf("rate limit exceeded"), requestID)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// getAllowedOrigins returns the appropriate allowed origins based on environment
func getAllowedOrigins(corsConfig config.CORSConfig) []string {
	switch strings.ToLower(corsConfig.Environment) {
	case "production", "prod":
		return corsConfig.ProductionOrigins
	case "staging", "stage":
		return corsConfig.StagingOrigins
	case "development", "dev", "local":
		return corsConfig.DevelopmentOrigins
	default:
		return corsConfig.DevelopmentOrigins
	}
}

// isOriginAllowed checks if the origin is allowed based on CORS configuration
func isOriginAllowed(origin string, corsConfig config.CORSConfig) bool {
	for _, allowedOrigin := range getAllowedOrigins(corsConfig) {
		if origin == allowedOrigin {
			return true
		}
	}
	return false
}

func CORSMiddleware(next http.Handler, appConfig *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		corsConfig := appConfig.CORSConfig

		// Set CORS headers based on configuration
		if origin != "" && isOriginAllowed(origin, corsConfig) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}

		// Set allowed methods
		if len(corsConfig.AllowedMethods) > 0 {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsConfig.AllowedMethods, ", "))
		} else {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		}

		// Set allowed headers
		if len(corsConfig.AllowedHeaders) > 0 {
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsConfig.AllowedHeaders, ", "))
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
		}

		// Set exposed headers
		if len(corsConfig.ExposedHeaders) > 0 {
			w.Header().Set("Access-Control-Expose-Headers", strings.Join(corsConfig.ExposedHeaders, ", "))
		}

		// Set credentials
		if corsConfig.AllowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		// Set max age
		if corsConfig.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", corsConfig.MaxAge))
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
