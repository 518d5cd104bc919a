package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/duewatch/internal/logger"
)

// ConnectOptions defines the Redis client and how long New keeps retrying
// the first ping.
type ConnectOptions struct {
	Addr         string `validate:"required"` // ex: "localhost:6379"
	User         string
	Password     string
	RedisDB      int `validate:"gte=0"`
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration `validate:"gt=0"`  // total budget for connection attempts (ex: 30s)
	RetryInterval  time.Duration `validate:"gt=0"`  // first wait, doubled after each failure (ex: 2s)
	MaxWait        time.Duration `validate:"gt=0"`  // cap on the wait between attempts (ex: 10s)
	PingTimeout    time.Duration `validate:"gt=0"`  // per attempt
	WarnThreshold  int           `validate:"gte=0"` // failures logged at warn before switching to error
}

var validate = validator.New()

// New creates a Redis client and waits for it to answer a ping, retrying
// with capped exponential backoff until ConnectTimeout is spent.
func New(opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid redis connect options: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitForPing(client, opts, log.With(logger.String("addr", opts.Addr))); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func waitForPing(client *redis.Client, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis", logger.Duration("timeout", opts.ConnectTimeout))

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.RetryInterval
	policy.MaxInterval = opts.MaxWait
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	started := time.Now()
	attempts := 0
	var lastErr error

	ping := func() error {
		attempts++
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer pingCancel()
		lastErr = client.Ping(pingCtx).Err()
		return lastErr
	}
	onRetry := func(err error, next time.Duration) {
		fields := []logger.Field{
			logger.Int("attempt", attempts),
			logger.Duration("next_retry_in", next),
			logger.Error(err),
		}
		remaining := time.Until(deadlineOf(ctx))
		switch {
		case remaining < 10*time.Second:
			log.Error("redis still down, connect timeout approaching", append(fields, logger.Duration("remaining", remaining))...)
		case attempts <= opts.WarnThreshold:
			log.Warn("redis connection failed, retrying", fields...)
		default:
			log.Error("redis still unavailable", fields...)
		}
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(policy, ctx), onRetry); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		log.Error("redis unavailable, giving up",
			logger.Int("attempts", attempts),
			logger.Duration("timeout", opts.ConnectTimeout),
			logger.Error(lastErr))
		return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
			opts.Addr, attempts, opts.ConnectTimeout, lastErr)
	}

	if attempts > 1 {
		log.Warn("connected to redis after retry",
			logger.Int("attempts", attempts),
			logger.Duration("elapsed", time.Since(started)))
	} else {
		log.Info("connected to redis")
	}
	return nil
}

func deadlineOf(ctx context.Context) time.Time {
	deadline, ok := ctx.Deadline()
	if !ok {
		return time.Now()
	}
	return deadline
}
