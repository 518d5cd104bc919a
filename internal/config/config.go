package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	ListenPort      string        `validate:"required"` // ex: ":8080"
	ShutdownTimeout time.Duration `validate:"gt=0"`     // ex: 5s

	LogLevel  string `validate:"oneof=debug info warn error"`
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Watched pages
	PagesFile          string        // path to the watch list yaml (optional, empty = no scheduled scans)
	RescanSchedule     string        `validate:"required"` // cron spec, ex: "@every 30m"
	DebounceWindow     time.Duration `validate:"gt=0"`     // quiet period before a snapshot rescan
	InitialRescanDelay time.Duration `validate:"gte=0"`    // delay of the second startup scan
	CompactInterval    time.Duration `validate:"gt=0"`     // interval to compact the collection
	FetchTimeout       time.Duration `validate:"gt=0"`     // page fetch timeout
	UserAgent          string

	// Scanning
	ScanAttempts   int           `validate:"min=1"`
	ScanWait       time.Duration `validate:"gte=0"`
	MaxAssignments int           `validate:"min=1"`

	// Redis (empty address = in-memory store)
	RedisAddr             string        `validate:"omitempty,hostname_port"` // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           `validate:"gte=0"`
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string `validate:"dive,cidr|ip"` // optional, restrict access to specific IP (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	// Per-IP limits on the scan endpoint
	ScanRateBurst  int `validate:"min=1"`
	ScanRatePerMin int `validate:"min=1"`
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("DUEWATCH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("DUEWATCH_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("DUEWATCH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("DUEWATCH_PRETTY_LOG", true),

		// Watched pages
		PagesFile:          getenv("DUEWATCH_PAGES_FILE", ""),
		RescanSchedule:     getenv("DUEWATCH_RESCAN_SCHEDULE", "@every 30m"),
		DebounceWindow:     mustDuration("DUEWATCH_DEBOUNCE_WINDOW", 1200*time.Millisecond),
		InitialRescanDelay: mustDuration("DUEWATCH_INITIAL_RESCAN_DELAY", 1500*time.Millisecond),
		CompactInterval:    mustDuration("DUEWATCH_COMPACT_INTERVAL", 24*time.Hour),
		FetchTimeout:       mustDuration("DUEWATCH_FETCH_TIMEOUT", 10*time.Second),
		UserAgent:          getenv("DUEWATCH_USER_AGENT", "duewatch"),

		// Scanning
		ScanAttempts:   getenvInt("DUEWATCH_SCAN_ATTEMPTS", 12),
		ScanWait:       mustDuration("DUEWATCH_SCAN_WAIT", 350*time.Millisecond),
		MaxAssignments: getenvInt("DUEWATCH_MAX_ASSIGNMENTS", 1000),

		// Redis settings
		RedisAddr:             getenv("DUEWATCH_REDIS_ADDR", ""),
		RedisUser:             getenv("DUEWATCH_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("DUEWATCH_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("DUEWATCH_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("DUEWATCH_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("DUEWATCH_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("DUEWATCH_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("DUEWATCH_TRUST_PROXY", true),

		ScanRateBurst:  getenvInt("DUEWATCH_SCAN_RATE_BURST", 10),
		ScanRatePerMin: getenvInt("DUEWATCH_SCAN_RATE_PER_MIN", 30),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// UseRedis reports whether a Redis store is configured.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.UseRedis() && c.RedisPasswordRequired && c.RedisPassword == "" {
		return fmt.Errorf("DUEWATCH_REDIS_PASSWORD is required when DUEWATCH_REDIS_PASSWORD_REQUIRED=true")
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
