package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

// Redis wraps the go-redis client used by the redis document repository.
// Every command and pipeline goes through Breaker.
type Redis struct {
	Client  *goredis.Client
	Breaker *CircuitBreakerHook
}

func ConnectRedis(ctx context.Context, addr string, password string, database int, logger *slog.Logger) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
	breaker := NewCircuitBreakerHook(logger)
	client.AddHook(breaker)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{Client: client, Breaker: breaker}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
