package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL  = "http://localhost:8082"
	DefaultTimeout = 10 * time.Second
)

const (
	SessionBolt   = "bolt"
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

type Config struct {
	APIURL               string
	APITimeout           time.Duration
	HTTPAddr             string
	SessionBackend       string
	SessionPath          string
	RedisAddr            string
	RedisPassword        string
	RedisURL             string
	SessionRedisPrefix   string
	SessionCheckInterval time.Duration
	LogLevel             string
}

func Load() Config {
	return Config{
		APIURL:               strings.TrimRight(getenv("API_URL", DefaultAPIURL), "/"),
		APITimeout:           DefaultTimeout,
		HTTPAddr:             getenv("HTTP_ADDR", ":8090"),
		SessionBackend:       strings.ToLower(getenv("SESSION_BACKEND", SessionBolt)),
		SessionPath:          getenv("SESSION_PATH", defaultSessionPath()),
		RedisAddr:            getenv("REDIS_ADDR", ""),
		RedisPassword:        getenv("REDIS_PASSWORD", ""),
		RedisURL:             getenv("REDIS_URL", ""),
		SessionRedisPrefix:   getenv("SESSION_REDIS_PREFIX", "certgen:session"),
		SessionCheckInterval: getenvDuration("SESSION_CHECK_INTERVAL", time.Minute),
		LogLevel:             strings.ToLower(getenv("LOG_LEVEL", "info")),
	}
}

// Error is a configuration error. Binaries treat it as fatal at startup.
type Error struct {
	Code  string
	Key   string
	Value string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s=%q", e.Code, e.Key, e.Value)
}

const (
	ErrInvalidBaseURL     = "invalid_base_url"
	ErrInvalidSessionKind = "invalid_session_backend"
)

// Validate rejects configurations the binaries must not start with.
func (c Config) Validate() error {
	if _, err := ParseBaseURL(c.APIURL); err != nil {
		return err
	}
	switch c.SessionBackend {
	case SessionBolt, SessionRedis, SessionMemory:
	default:
		return &Error{Code: ErrInvalidSessionKind, Key: "SESSION_BACKEND", Value: c.SessionBackend}
	}
	return nil
}

// ParseBaseURL accepts only absolute http or https URLs with a host.
func ParseBaseURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !parsed.IsAbs() || parsed.Host == "" || parsed.Opaque != "" {
		return nil, &Error{Code: ErrInvalidBaseURL, Key: "API_URL", Value: raw}
	}
	switch parsed.Scheme {
	case "http", "https":
	default:
		return nil, &Error{Code: ErrInvalidBaseURL, Key: "API_URL", Value: raw}
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed, nil
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".certgen", "session.db")
	}
	return filepath.Join(home, ".certgen", "session.db")
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
