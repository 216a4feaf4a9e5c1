package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all environment-driven settings for the service. Static
// clinical tables are compiled in and intentionally not configurable.
type Config struct {
	Host              string
	Port              string
	RequestTimeout    time.Duration
	ImageFetchTimeout time.Duration
	AnalysisTimeout   time.Duration
	MaxImageBytes     int64

	// Hosts the image fetcher may download from. Empty means any host.
	AllowedImageHosts []string

	// Classifier boundary. Empty ModelServiceURL means the fixed fallback
	// probability vector is used for every request (degraded mode).
	ModelServiceURL string
	ModelVersion    string

	// Optional result cache. Empty RedisAddr disables caching.
	RedisAddr      string
	ResultCacheTTL time.Duration

	// Optional artifact persistence. Empty account disables uploads.
	AzureStorageAccount    string
	AzureStorageKey        string
	AzureArtifactContainer string

	// Seed for annotation placement. Zero derives a per-image seed from
	// the source URL instead.
	AnnotationSeed int64
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// ClassifierEnabled reports whether a real model service is configured.
func (c *Config) ClassifierEnabled() bool {
	return strings.TrimSpace(c.ModelServiceURL) != ""
}

// CacheEnabled reports whether the Redis result cache is configured.
func (c *Config) CacheEnabled() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

// ArtifactStoreEnabled reports whether heatmap/annotation uploads are
// configured.
func (c *Config) ArtifactStoreEnabled() bool {
	return strings.TrimSpace(c.AzureStorageAccount) != ""
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:              getEnvOrDefault("HOST", "0.0.0.0"),
		Port:              getEnvOrDefault("PORT", "8080"),
		RequestTimeout:    parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout: parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:   parseDurationOrDefault("ANALYSIS_TIMEOUT", 20*time.Second),
		MaxImageBytes:     parseIntOrDefault("MAX_IMAGE_BYTES", 10*1024*1024), // 10MB
		AllowedImageHosts: parseListOrDefault("ALLOWED_IMAGE_HOSTS", nil),

		ModelServiceURL: os.Getenv("MODEL_SERVICE_URL"),
		ModelVersion:    getEnvOrDefault("MODEL_VERSION", "v1.0.0"),

		RedisAddr:      os.Getenv("REDIS_ADDR"),
		ResultCacheTTL: parseDurationOrDefault("RESULT_CACHE_TTL", 15*time.Minute),

		AzureStorageAccount:    os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:        os.Getenv("AZURE_STORAGE_KEY"),
		AzureArtifactContainer: getEnvOrDefault("AZURE_ARTIFACT_CONTAINER", "retina-artifacts"),

		AnnotationSeed: parseIntOrDefault("ANNOTATION_SEED", 42),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxImageBytes <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_BYTES must be > 0 (got %d)", cfg.MaxImageBytes)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.AnalysisTimeout)
	}
	if cfg.ArtifactStoreEnabled() && strings.TrimSpace(cfg.AzureStorageKey) == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_KEY is required when AZURE_STORAGE_ACCOUNT is set")
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
