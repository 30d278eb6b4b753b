/*
Package config provides configuration management for the listing render
backend.

This package separates configuration concerns from business logic and provides
a centralized way to manage application configuration including the upstream
feed, the rendering worker fleet, the artifact cache, and other service
dependencies.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/sirupsen/logrus"

	"github.com/tradecast-labs/listing-render-backend/cache"
	"github.com/tradecast-labs/listing-render-backend/container"
	"github.com/tradecast-labs/listing-render-backend/dispatch"
	"github.com/tradecast-labs/listing-render-backend/feed"
	"github.com/tradecast-labs/listing-render-backend/health"
	"github.com/tradecast-labs/listing-render-backend/middleware"
	"github.com/tradecast-labs/listing-render-backend/poller"
	"github.com/tradecast-labs/listing-render-backend/registry"
)

// Config holds all application configuration
type Config struct {
	// Upstream feed
	FeedURL      string
	FeedTimeout  time.Duration
	PollInterval time.Duration
	// Rendering workers
	WorkerEndpoints []string
	WorkersFile     string
	ProjectID       string
	RenderTimeout   time.Duration
	HealthTimeout   time.Duration
	HealthInterval  time.Duration
	// Artifact cache
	CacheDir       string
	CacheRetention time.Duration
	SweepInterval  time.Duration
	// Server
	LogLevel   string
	ServerPort string
	// Tracing
	JaegerEndpoint string
	// Rate limiting configuration
	RateLimitRequestsPerMinute float64
	RateLimitBurst             int
	ClientCleanupInterval      time.Duration
	// CORS configuration
	CORSConfig CORSConfig
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	// Environment-specific settings
	Environment string
	// Allowed origins based on environment
	DevelopmentOrigins []string
	StagingOrigins     []string
	ProductionOrigins  []string
	// Additional CORS settings
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// Services holds all service dependencies
type Services struct {
	Container *container.Container
	Logger    *logrus.Logger
}

// AppConfig holds both configuration and services
type AppConfig struct {
	Config   *Config
	Services *Services
}

// NewConfig creates a new configuration instance
func NewConfig() *Config {
	environment := getEnv("ENVIRONMENT", "development")

	return &Config{
		// Upstream feed
		FeedURL:      getEnv("FEED_URL", ""),
		FeedTimeout:  getEnvDuration("FEED_TIMEOUT", 30*time.Second),
		PollInterval: getEnvDuration("POLL_INTERVAL", 60*time.Second),
		// Rendering workers
		WorkerEndpoints: getEnvSlice("WORKER_ENDPOINTS", []string{}),
		WorkersFile:     getEnv("WORKERS_FILE", "workers.json"),
		ProjectID:       getEnv("PROJECT_ID", ""),
		RenderTimeout:   getEnvDuration("RENDER_TIMEOUT", 60*time.Second),
		HealthTimeout:   getEnvDuration("HEALTH_TIMEOUT", 5*time.Second),
		HealthInterval:  getEnvDuration("HEALTH_INTERVAL", 30*time.Second),
		// Artifact cache
		CacheDir:       getEnv("CACHE_DIR", "./artifacts"),
		CacheRetention: getEnvDuration("CACHE_RETENTION", 15*time.Minute),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		// Server
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		// Tracing (disabled unless a collector endpoint is configured)
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		// Rate limiting defaults (60 requests per minute, burst of 10)
		RateLimitRequestsPerMinute: getEnvFloat("RATE_LIMIT_RPM", 60.0),
		RateLimitBurst:             getEnvInt("RATE_LIMIT_BURST", 10),
		ClientCleanupInterval:      getEnvDuration("CLIENT_CLEANUP_INTERVAL", 1*time.Minute),
		// CORS configuration
		CORSConfig: CORSConfig{
			Environment: environment,
			DevelopmentOrigins: getEnvSlice("DEV_CORS_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost:3001",
				"http://127.0.0.1:3000",
				"http://localhost:8080",
			}),
			StagingOrigins: getEnvSlice("STAGING_CORS_ORIGINS", []string{
				"https://staging.tradecast.example",
			}),
			ProductionOrigins: getEnvSlice("PROD_CORS_ORIGINS", []string{
				"https://tradecast.example",
				"https://www.tradecast.example",
			}),
			AllowedMethods: getEnvSlice("CORS_ALLOWED_METHODS", []string{
				"GET", "POST", "PUT", "OPTIONS",
			}),
			AllowedHeaders: getEnvSlice("CORS_ALLOWED_HEADERS", []string{
				"Content-Type", "Authorization", "X-Requested-With",
				"X-Request-ID", "Accept", "Origin", "Cache-Control",
			}),
			ExposedHeaders: getEnvSlice("CORS_EXPOSED_HEADERS", []string{
				"X-Request-ID",
			}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400), // 24 hours
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("FEED_URL environment variable is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.CacheRetention <= 0 {
		return fmt.Errorf("CACHE_RETENTION must be positive")
	}
	return nil
}

// newWorkerStore picks the persistence backend for the worker endpoint list.
// With PROJECT_ID set the list lives in Cloud Datastore, otherwise in a local
// JSON file.
func newWorkerStore(config *Config, logger *logrus.Logger) (registry.Store, error) {
	if config.ProjectID == "" {
		logger.WithField("path", config.WorkersFile).Info("Using file-backed worker list")
		return registry.NewFileStore(config.WorkersFile), nil
	}

	client, err := datastore.NewClient(context.Background(), config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore client: %v", err)
	}
	logger.WithField("project_id", config.ProjectID).Info("Using Datastore-backed worker list")
	return registry.NewDatastoreStore(client), nil
}

// NewServices creates and initializes all service dependencies using DI container
func NewServices(config *Config) (*Services, error) {
	logger := middleware.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	// Initialize worker registry with its persistence backend
	store, err := newWorkerStore(config, logger)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(store, config.WorkerEndpoints, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize worker registry: %v", err)
	}
	logger.WithField("workers", reg.Len()).Info("Worker registry initialized successfully")

	// Initialize artifact cache
	artifactCache, err := cache.New(config.CacheDir, config.CacheRetention, config.SweepInterval, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact cache: %v", err)
	}
	logger.WithField("dir", config.CacheDir).Info("Artifact cache initialized successfully")

	// Initialize upstream feed client
	feedClient := feed.NewClient(config.FeedURL, config.FeedTimeout, logger)

	// Initialize dispatcher and poller
	tracker := dispatch.NewTracker()
	dispatcher := dispatch.New(reg, artifactCache, tracker, config.RenderTimeout, logger)
	feedPoller := poller.New(feedClient, dispatcher, config.PollInterval, logger)

	// Initialize worker health aggregator
	aggregator := health.NewAggregator(reg, config.HealthTimeout, logger)

	// Initialize dependency injection container
	diContainer := container.NewContainer()
	if err := diContainer.InitializeServices(reg, artifactCache, feedClient, dispatcher, feedPoller, aggregator, logger); err != nil {
		return nil, fmt.Errorf("failed to initialize dependency container: %v", err)
	}

	return &Services{
		Container: diContainer,
		Logger:    logger,
	}, nil
}

// NewAppConfig creates a new application configuration with all dependencies
func NewAppConfig() (*AppConfig, error) {
	config := NewConfig()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	services, err := NewServices(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %v", err)
	}

	return &AppConfig{
		Config:   config,
		Services: services,
	}, nil
}

// Close gracefully closes all service connections
func (s *Services) Close() error {
	if s.Container != nil {
		return s.Container.Close()
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float64 with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as time.Duration with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as bool with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSlice gets an environment variable as a string slice with a default value
func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
