package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected *Config
	}{
		{
			name: "default config",
			envVars: map[string]string{
				"FEED_URL": "https://market.example.com/listings.xml",
			},
			expected: &Config{
				FeedURL:        "https://market.example.com/listings.xml",
				PollInterval:   60 * time.Second,
				RenderTimeout:  60 * time.Second,
				HealthTimeout:  5 * time.Second,
				CacheDir:       "./artifacts",
				CacheRetention: 15 * time.Minute,
				SweepInterval:  5 * time.Minute,
				WorkersFile:    "workers.json",
				LogLevel:       "info",
				ServerPort:     "8080",
			},
		},
		{
			name: "custom config",
			envVars: map[string]string{
				"FEED_URL":        "https://other.example.com/feed",
				"POLL_INTERVAL":   "10s",
				"RENDER_TIMEOUT":  "30s",
				"HEALTH_TIMEOUT":  "2s",
				"CACHE_DIR":       "/var/cache/render",
				"CACHE_RETENTION": "1h",
				"SWEEP_INTERVAL":  "10m",
				"WORKERS_FILE":    "/etc/render/workers.json",
				"LOG_LEVEL":       "debug",
				"SERVER_PORT":     "9000",
			},
			expected: &Config{
				FeedURL:        "https://other.example.com/feed",
				PollInterval:   10 * time.Second,
				RenderTimeout:  30 * time.Second,
				HealthTimeout:  2 * time.Second,
				CacheDir:       "/var/cache/render",
				CacheRetention: time.Hour,
				SweepInterval:  10 * time.Minute,
				WorkersFile:    "/etc/render/workers.json",
				LogLevel:       "debug",
				ServerPort:     "9000",
			},
		},
	}

	allKeys := []string{
		"FEED_URL", "POLL_INTERVAL", "RENDER_TIMEOUT", "HEALTH_TIMEOUT",
		"CACHE_DIR", "CACHE_RETENTION", "SWEEP_INTERVAL", "WORKERS_FILE",
		"LOG_LEVEL", "SERVER_PORT",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment variables
			for _, key := range allKeys {
				os.Unsetenv(key)
			}

			// Set test environment variables
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			config := NewConfig()
			assert.Equal(t, tt.expected.FeedURL, config.FeedURL)
			assert.Equal(t, tt.expected.PollInterval, config.PollInterval)
			assert.Equal(t, tt.expected.RenderTimeout, config.RenderTimeout)
			assert.Equal(t, tt.expected.HealthTimeout, config.HealthTimeout)
			assert.Equal(t, tt.expected.CacheDir, config.CacheDir)
			assert.Equal(t, tt.expected.CacheRetention, config.CacheRetention)
			assert.Equal(t, tt.expected.SweepInterval, config.SweepInterval)
			assert.Equal(t, tt.expected.WorkersFile, config.WorkersFile)
			assert.Equal(t, tt.expected.LogLevel, config.LogLevel)
			assert.Equal(t, tt.expected.ServerPort, config.ServerPort)
		})
	}
}

func TestWorkerEndpointsFromEnv(t *testing.T) {
	t.Setenv("FEED_URL", "https://market.example.com/listings.xml")
	t.Setenv("WORKER_ENDPOINTS", "http://render-1:9100, http://render-2:9100")

	config := NewConfig()
	assert.Equal(t, []string{"http://render-1:9100", "http://render-2:9100"}, config.WorkerEndpoints)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				FeedURL:        "https://market.example.com/listings.xml",
				PollInterval:   time.Minute,
				CacheRetention: 15 * time.Minute,
			},
			wantErr: false,
		},
		{
			name: "missing feed url",
			config: &Config{
				PollInterval:   time.Minute,
				CacheRetention: 15 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "non-positive poll interval",
			config: &Config{
				FeedURL:        "https://market.example.com/listings.xml",
				CacheRetention: 15 * time.Minute,
			},
			wantErr: true,
		},
		{
			name: "non-positive retention",
			config: &Config{
				FeedURL:      "https://market.example.com/listings.xml",
				PollInterval: time.Minute,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewServices(t *testing.T) {
	dir := t.TempDir()

	config := &Config{
		FeedURL:        "https://market.example.com/listings.xml",
		FeedTimeout:    5 * time.Second,
		PollInterval:   time.Minute,
		WorkersFile:    filepath.Join(dir, "workers.json"),
		RenderTimeout:  time.Second,
		HealthTimeout:  time.Second,
		CacheDir:       filepath.Join(dir, "artifacts"),
		CacheRetention: 15 * time.Minute,
		SweepInterval:  time.Minute,
	}

	services, err := NewServices(config)
	require.NoError(t, err)
	defer services.Close()

	handler, err := services.Container.GetHandler()
	require.NoError(t, err)
	assert.NotNil(t, handler)

	reg, err := services.Container.GetRegistry()
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
}

func TestGetEnv(t *testing.T) {
	// Test with existing env var
	t.Setenv("TEST_VAR", "test_value")

	result := getEnv("TEST_VAR", "default")
	assert.Equal(t, "test_value", result)

	// Test with non-existing env var
	result = getEnv("NON_EXISTING_VAR", "default")
	assert.Equal(t, "default", result)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")

	result := getEnvDuration("TEST_DURATION", time.Minute)
	assert.Equal(t, 90*time.Second, result)

	// Unparseable values fall back to the default
	t.Setenv("TEST_DURATION", "not-a-duration")
	result = getEnvDuration("TEST_DURATION", time.Minute)
	assert.Equal(t, time.Minute, result)
}

func TestServicesClose(t *testing.T) {
	logger := logrus.New()

	services := &Services{
		Logger: logger,
	}

	// Test that Close doesn't panic
	assert.NotPanics(t, func() {
		services.Close()
	}, "Close should not panic")
}
