package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
	"github.com/systemshift/mindgraph/internal/mindgraph/logger"
	"github.com/systemshift/mindgraph/internal/mindgraph/metrics"
)

// BreakerConfig holds circuit breaker settings for note store reads
type BreakerConfig struct {
	Name string

	// MaxFailures consecutive failures open the breaker
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before a trial read
	OpenTimeout time.Duration
}

// Breaker guards a NoteStore. Every failure, including a rejected call
// while the breaker is open, is reported as core.ErrStoreUnavailable.
type Breaker struct {
	store core.NoteStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps store
func NewBreaker(store core.NoteStore, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notestore-" + cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %v -> %v", name, from, to)
			metrics.StoreBreakerState.Set(float64(to))
		},
		IsSuccessful: func(err error) bool {
			// a cancelled caller says nothing about the store
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{store: store, cb: cb}
}

// FindAll reads through the breaker
func (b *Breaker) FindAll(ctx context.Context) ([]core.Note, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.store.FindAll(ctx)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	notes, _ := result.([]core.Note)
	return notes, nil
}

// State returns the breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
