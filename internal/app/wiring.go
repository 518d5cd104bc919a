package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/duewatch/internal/config"
	"github.com/MrSnakeDoc/duewatch/internal/domain"
	"github.com/MrSnakeDoc/duewatch/internal/duedate"
	"github.com/MrSnakeDoc/duewatch/internal/extract"
	"github.com/MrSnakeDoc/duewatch/internal/index"
	"github.com/MrSnakeDoc/duewatch/internal/logger"
	"github.com/MrSnakeDoc/duewatch/internal/redis"
	"github.com/MrSnakeDoc/duewatch/internal/scanner"
	"github.com/MrSnakeDoc/duewatch/internal/store"
	redisstore "github.com/MrSnakeDoc/duewatch/internal/store/redis"
)

const (
	storeModeRedis  = "redis"
	storeModeMemory = "memory"
)

// Backend is the persistence collaborator selected by the configuration.
type Backend struct {
	Store  store.Store
	Mode   string
	Client *goredis.Client // nil in memory mode
}

// Close releases the Redis connection, if any.
func (b *Backend) Close() error {
	if b.Client == nil {
		return nil
	}
	return b.Client.Close()
}

// OpenStore connects to Redis when an address is configured and falls back
// to an in-memory store otherwise.
func OpenStore(cfg *config.Config, log logger.Logger) (*Backend, error) {
	if !cfg.UseRedis() {
		log.Warn("no redis address configured, assignments are kept in memory only")
		return &Backend{Store: index.NewMemoryIndex(), Mode: storeModeMemory}, nil
	}

	log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	client, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Backend{Store: redisstore.NewStore(client), Mode: storeModeRedis, Client: client}, nil
}

// NewScanner builds the scan orchestrator over st. A nil registerer
// disables metrics.
func NewScanner(cfg *config.Config, st store.Store, log logger.Logger, reg prometheus.Registerer) *scanner.Scanner {
	ex := extract.New(duedate.New(), time.Now)
	opts := []scanner.Option{}
	if reg != nil {
		opts = append(opts, scanner.WithMetrics(scanner.NewMetrics(reg)))
	}
	return scanner.New(ex, domain.NewMerger(cfg.MaxAssignments), st, log, opts...)
}

// ScanOptions returns the configured retry policy.
func ScanOptions(cfg *config.Config) scanner.Options {
	return scanner.Options{Attempts: cfg.ScanAttempts, Wait: cfg.ScanWait}
}
