package buildings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aclements/shade"
	"github.com/aclements/shade/internal/config"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) QueryBuildings(ctx context.Context, center shade.GroundPoint, radius float64) ([]shade.BuildingFootprint, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []shade.BuildingFootprint{square("a", center, 10, 10)}, nil
}

var testBreakerConfig = config.BreakerConfig{
	Enabled:     true,
	MaxRequests: 1,
	Interval:    time.Minute,
	Timeout:     time.Minute,
	MaxFailures: 3,
}

func TestBreakerTrips(t *testing.T) {
	src := &countingSource{err: errors.New("connection refused")}
	b := NewBreaker("test", src, testBreakerConfig, nil)

	for i := 0; i < 3; i++ {
		_, err := b.QueryBuildings(context.Background(), center, 500)
		if err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d: expected source error, got %v", i, err)
		}
	}
	if b.State() != "open" {
		t.Errorf("expected open breaker, got %s", b.State())
	}
	_, err := b.QueryBuildings(context.Background(), center, 500)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if src.calls != 3 {
		t.Errorf("expected 3 calls to reach the source, got %d", src.calls)
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	src := &countingSource{err: context.Canceled}
	b := NewBreaker("test", src, testBreakerConfig, nil)
	for i := 0; i < 10; i++ {
		b.QueryBuildings(context.Background(), center, 500)
	}
	if b.State() != "closed" {
		t.Errorf("expected closed breaker, got %s", b.State())
	}

	src.err = nil
	bs, err := b.QueryBuildings(context.Background(), center, 500)
	if err != nil || len(bs) != 1 {
		t.Errorf("expected one building, got %v, %v", bs, err)
	}
}
