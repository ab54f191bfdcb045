package exposure

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/aclements/shade"
)

var rotterdam = shade.GroundPoint{Lat: 51.9244, Lng: 4.4626}

// southWall returns a 300 m wide, 100 m tall building from 20 to 60 m
// south of p.
func southWall(p shade.GroundPoint) shade.BuildingFootprint {
	n := shade.Destination(p, 20, 180)
	s := shade.Destination(p, 60, 180)
	w := shade.Destination(p, 150, 270)
	e := shade.Destination(p, 150, 90)
	ring := orb.Ring{
		{w.Lng, s.Lat},
		{e.Lng, s.Lat},
		{e.Lng, n.Lat},
		{w.Lng, n.Lat},
		{w.Lng, s.Lat},
	}
	return shade.BuildingFootprint{ID: "wall", Footprint: orb.Polygon{ring}, Height: 100}
}

type countingSource struct {
	calls atomic.Int32
	bs    []shade.BuildingFootprint
	err   error
}

func (s *countingSource) QueryBuildings(ctx context.Context, center shade.GroundPoint, radius float64) ([]shade.BuildingFootprint, error) {
	s.calls.Add(1)
	return s.bs, s.err
}

func TestTimes(t *testing.T) {
	start := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	times := Times(start, start.Add(24*time.Hour), 10*time.Minute)
	if len(times) != 144 {
		t.Errorf("expected 144 times, got %d", len(times))
	}
	if !times[0].Equal(start) || !times[143].Equal(start.Add(23*time.Hour+50*time.Minute)) {
		t.Errorf("unexpected range %v to %v", times[0], times[len(times)-1])
	}
	if Times(start, start.Add(time.Hour), 0) != nil {
		t.Error("expected no times for zero increment")
	}
}

func TestSweep(t *testing.T) {
	src := &countingSource{bs: []shade.BuildingFootprint{southWall(rotterdam)}}
	m := &Model{
		Point:     rotterdam,
		Occlusion: shade.OcclusionTester{Source: src},
		Workers:   4,
	}
	start := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	samples, err := m.Sweep(context.Background(), Times(start, start.Add(24*time.Hour), time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 24 {
		t.Fatalf("expected 24 samples, got %d", len(samples))
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("expected one building query per sweep, got %d", n)
	}

	var lit int
	for i, s := range samples {
		if !s.T.Equal(start.Add(time.Duration(i) * time.Hour)) {
			t.Errorf("sample %d: expected time %v, got %v", i, start.Add(time.Duration(i)*time.Hour), s.T)
		}
		if s.Altitude <= 0 && (s.Lit || s.Method != shade.MethodAstronomical) {
			t.Errorf("%v: sun down but got lit=%v method=%s", s.T, s.Lit, s.Method)
		}
		if s.Lit {
			lit++
		}
	}
	if noon := samples[12]; noon.Lit || noon.Method != shade.MethodRayTracing {
		t.Errorf("noon: expected shade by ray tracing, got lit=%v method=%s", noon.Lit, noon.Method)
	}
	if lit == 0 {
		t.Error("expected some sunlit samples")
	}
}

func TestIntensityOverRangeCache(t *testing.T) {
	src := &countingSource{}
	m := &Model{
		Point:     rotterdam,
		Occlusion: shade.OcclusionTester{Source: src},
		Workers:   2,
		Cache:     NewCache(filepath.Join(t.TempDir(), "cache"), nil),
		CacheTag:  "test",
	}
	start := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	first, err := m.IntensityOverRange(context.Background(), start, end, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.IntensityOverRange(context.Background(), start, end, 30*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if n := src.calls.Load(); n != 1 {
		t.Errorf("expected second range to come from the cache, got %d queries", n)
	}
	if len(first.Samples) != 96 || len(second.Samples) != 96 {
		t.Errorf("expected 96 samples, got %d and %d", len(first.Samples), len(second.Samples))
	}
	if second.Increment != 30*time.Minute {
		t.Errorf("expected increment 30m, got %v", second.Increment)
	}

	m.CacheTag = "other"
	if _, err := m.IntensityOverRange(context.Background(), start, end, 30*time.Minute); err != nil {
		t.Fatal(err)
	}
	if n := src.calls.Load(); n != 2 {
		t.Errorf("expected a new tag to miss the cache, got %d queries", n)
	}
}

func TestIntensityOverRangeFallback(t *testing.T) {
	src := &countingSource{err: errors.New("database down")}
	m := &Model{
		Point:     rotterdam,
		Occlusion: shade.OcclusionTester{Source: src},
		Cache:     NewCache(filepath.Join(t.TempDir(), "cache"), nil),
	}
	start := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	o, err := m.IntensityOverRange(context.Background(), start, start.Add(24*time.Hour), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range o.Samples {
		if s.Altitude > 0 && (!s.Lit || s.Method != shade.MethodFallback) {
			t.Errorf("%v: expected lit fallback, got lit=%v method=%s", s.T, s.Lit, s.Method)
		}
	}
	calls := src.calls.Load()
	if _, err := m.IntensityOverRange(context.Background(), start, start.Add(24*time.Hour), time.Hour); err != nil {
		t.Fatal(err)
	}
	if src.calls.Load() == calls {
		t.Error("expected degraded sweep not to be cached")
	}
}

func TestSweepInvalidPoint(t *testing.T) {
	m := &Model{Point: shade.GroundPoint{Lat: 91}}
	start := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	_, err := m.Sweep(context.Background(), Times(start, start.Add(time.Hour), time.Minute))
	if !errors.Is(err, shade.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
