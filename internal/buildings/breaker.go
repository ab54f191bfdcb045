package buildings

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/aclements/shade"
	"github.com/aclements/shade/internal/config"
)

// ErrCircuitOpen is returned by a Breaker while it is refusing queries.
var ErrCircuitOpen = errors.New("building source circuit breaker open")

// A Breaker stops querying a building source after repeated failures
// and returns ErrCircuitOpen until the source has had time to recover.
type Breaker struct {
	src shade.BuildingSource
	cb  *gobreaker.CircuitBreaker
}

// NewBreaker wraps src in a circuit breaker.
func NewBreaker(name string, src shade.BuildingSource, cfg config.BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 1
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("building source breaker changed state",
				zap.String("source", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Canceled queries don't count as failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{src: src, cb: cb}
}

func (b *Breaker) QueryBuildings(ctx context.Context, center shade.GroundPoint, radiusMeters float64) ([]shade.BuildingFootprint, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.src.QueryBuildings(ctx, center, radiusMeters)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		return nil, err
	}
	bs, _ := res.([]shade.BuildingFootprint)
	return bs, nil
}

// State returns the breaker's current state name.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
