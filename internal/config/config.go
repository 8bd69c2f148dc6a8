package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	URL      string // ISSUEGRAPH_URL (tracker base URL, e.g. https://example.atlassian.net)
	User     string // ISSUEGRAPH_USER (basic auth user)
	Token    string // ISSUEGRAPH_TOKEN (basic auth password / API token)
	Cookie   string // ISSUEGRAPH_COOKIE (JSESSIONID session cookie; overrides basic auth)
	Insecure bool   // ISSUEGRAPH_INSECURE (skip TLS verification)

	DatabaseURL string // ISSUEGRAPH_DATABASE_URL (optional; read items from the PostgreSQL mirror)
	NATSURL     string // ISSUEGRAPH_NATS_URL (optional, empty = no events)
	GraphConfig string // ISSUEGRAPH_GRAPH_CONFIG (optional path to the YAML graph config)
	HTTPAddr    string // ISSUEGRAPH_HTTP_ADDR (default ":8080")
	OutDir      string // ISSUEGRAPH_OUT_DIR (default "./out")
	LogLevel    slog.Level

	// Destination settings
	RefreshInterval time.Duration // ISSUEGRAPH_REFRESH_INTERVAL (default 15m; 0 = disabled)
	S3Bucket        string        // ISSUEGRAPH_S3_BUCKET (enables S3 when set)
	S3Endpoint      string        // ISSUEGRAPH_S3_ENDPOINT (custom endpoint for MinIO)
	S3Region        string        // ISSUEGRAPH_S3_REGION (default "us-east-1")
	S3Prefix        string        // ISSUEGRAPH_S3_PREFIX (default "graphs/")
	GitRepo         string        // ISSUEGRAPH_GIT_REPO (enables git when set; path to clone)
	GitBranch       string        // ISSUEGRAPH_GIT_BRANCH (default "main")
}

// Load reads the configuration from the environment. Nothing is required at
// this point; the source is chosen (and validated) when the run starts.
func Load() (*Config, error) {
	c := &Config{
		URL:         strings.TrimRight(os.Getenv("ISSUEGRAPH_URL"), "/"),
		User:        os.Getenv("ISSUEGRAPH_USER"),
		Token:       os.Getenv("ISSUEGRAPH_TOKEN"),
		Cookie:      os.Getenv("ISSUEGRAPH_COOKIE"),
		DatabaseURL: os.Getenv("ISSUEGRAPH_DATABASE_URL"),
		NATSURL:     os.Getenv("ISSUEGRAPH_NATS_URL"),
		GraphConfig: os.Getenv("ISSUEGRAPH_GRAPH_CONFIG"),
		HTTPAddr:    envOrDefault("ISSUEGRAPH_HTTP_ADDR", ":8080"),
		OutDir:      envOrDefault("ISSUEGRAPH_OUT_DIR", "./out"),
		S3Bucket:    os.Getenv("ISSUEGRAPH_S3_BUCKET"),
		S3Endpoint:  os.Getenv("ISSUEGRAPH_S3_ENDPOINT"),
		S3Region:    envOrDefault("ISSUEGRAPH_S3_REGION", "us-east-1"),
		S3Prefix:    envOrDefault("ISSUEGRAPH_S3_PREFIX", "graphs/"),
		GitRepo:     os.Getenv("ISSUEGRAPH_GIT_REPO"),
		GitBranch:   envOrDefault("ISSUEGRAPH_GIT_BRANCH", "main"),
	}

	if v := os.Getenv("ISSUEGRAPH_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ISSUEGRAPH_INSECURE: %w", err)
		}
		c.Insecure = b
	}

	level, err := ParseLevel(envOrDefault("ISSUEGRAPH_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ISSUEGRAPH_LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	intervalStr := envOrDefault("ISSUEGRAPH_REFRESH_INTERVAL", "15m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("ISSUEGRAPH_REFRESH_INTERVAL: %w", err)
		}
		c.RefreshInterval = d
	}

	return c, nil
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
