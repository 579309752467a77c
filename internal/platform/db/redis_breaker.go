package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// CircuitBreakerHook fails redis calls fast once the server keeps erroring,
// instead of letting every request wait on a dead connection.
type CircuitBreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook trips after at least 5 calls in a 10s window with a
// 60% failure rate, and lets a trial request through after 30s.
func NewCircuitBreakerHook(logger *slog.Logger) *CircuitBreakerHook {
	return newCircuitBreakerHook(logger, 10*time.Second, 30*time.Second)
}

func newCircuitBreakerHook(logger *slog.Logger, interval time.Duration, timeout time.Duration) *CircuitBreakerHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreakerHook{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis",
			MaxRequests: 1,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
			IsSuccessful: isHealthyReply,
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					"event", "redis_circuit_breaker_state_changed",
					"module", "internal/platform/db",
					"layer", "platform",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// isHealthyReply treats missing keys and aborted WATCH transactions as
// normal replies; they say nothing about server health.
func isHealthyReply(err error) bool {
	return err == nil ||
		errors.Is(err, goredis.Nil) ||
		errors.Is(err, goredis.TxFailedErr) ||
		errors.Is(err, context.Canceled)
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := h.cb.Execute(func() (interface{}, error) {
			return next(ctx, network, addr)
		})
		if err != nil {
			return nil, h.wrap(err)
		}
		c, _ := conn.(net.Conn)
		return c, nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		_, err := h.cb.Execute(func() (interface{}, error) {
			return nil, next(ctx, cmd)
		})
		return h.wrap(err)
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		_, err := h.cb.Execute(func() (interface{}, error) {
			return nil, next(ctx, cmds)
		})
		return h.wrap(err)
	}
}

// wrap leaves command errors untouched so callers can still match
// goredis.Nil and goredis.TxFailedErr.
func (h *CircuitBreakerHook) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("redis circuit breaker open: %w", err)
	}
	return err
}

func (h *CircuitBreakerHook) State() gobreaker.State {
	return h.cb.State()
}
