package transport

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sony/gobreaker"

	"github.com/goliatone/go-payments/core"
)

type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// Trip when at least MinRequests calls were made and the failure
	// ratio reaches FailureRatio.
	MinRequests  uint32
	FailureRatio float64
	Logger       core.Logger
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         strings.TrimSpace(name),
		MaxRequests:  3,
		Interval:     15 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// BreakerAdapter wraps another transport adapter with a circuit breaker
// so a degraded provider fails fast instead of holding verification
// requests on a dead connection.
type BreakerAdapter struct {
	next    core.TransportAdapter
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerAdapter(next core.TransportAdapter, cfg BreakerConfig) *BreakerAdapter {
	name := cfg.Name
	if name == "" {
		name = "payments"
	}
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	failureRatio := cfg.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.6
	}
	logger := cfg.Logger

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("circuit breaker state changed",
				"circuit", cbName,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerAdapter{next: next, breaker: breaker}
}

func (a *BreakerAdapter) Kind() string {
	if a == nil || a.next == nil {
		return ""
	}
	return a.next.Kind()
}

func (a *BreakerAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.next == nil {
		return core.TransportResponse{}, transportError(
			"transport: breaker adapter requires a next adapter",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	result, err := a.breaker.Execute(func() (any, error) {
		return a.next.Do(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return core.TransportResponse{}, transportWrapError(
				err,
				goerrors.CategoryExternal,
				"transport: circuit breaker rejected request",
				http.StatusServiceUnavailable,
				map[string]any{"circuit": a.breaker.Name()},
			)
		}
		return core.TransportResponse{}, err
	}
	response, ok := result.(core.TransportResponse)
	if !ok {
		return core.TransportResponse{}, transportError(
			"transport: unexpected breaker result type",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	return response, nil
}

var _ core.TransportAdapter = (*BreakerAdapter)(nil)
