// Package exposure computes the sun exposure of a point over days or a
// year and plots it.
package exposure

import (
	"context"
	"image/color"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"

	"github.com/aclements/shade"
)

// A Model computes the sun exposure of a test point.
type Model struct {
	Point shade.GroundPoint

	// ElevationMeters is the height of the test point above sea level.
	ElevationMeters float64

	// Occlusion configures the building test. Its Source is queried
	// once per sweep.
	Occlusion shade.OcclusionTester

	// Workers bounds the number of concurrent resolver calls.
	Workers int

	// Cache, if non-nil, stores sweep results. CacheTag identifies the
	// building data so that a changed data set misses the cache.
	Cache    *Cache
	CacheTag string

	Logger *zap.Logger
}

// A Sample is the sunlight status of the test point at one instant.
type Sample struct {
	T      time.Time
	Lit    bool // Whether the test point is in direct sunlight
	Method shade.Method

	// Altitude of the sun in degrees.
	Altitude float64
}

// GlobalIntensity returns the insolation at the test point in W/m².
func (s Sample) GlobalIntensity(elevationMeters float64) float64 {
	return shade.SolarPosition{AltitudeDegrees: s.Altitude}.GlobalIntensity(s.Lit, elevationMeters)
}

// IntensityOverTime is the sunlight at one point sampled over a range of times.
type IntensityOverTime struct {
	Samples []Sample

	ElevationMeters float64
	Increment       time.Duration
}

// Times returns the instants from start up to but not including end,
// increment apart.
func Times(start, end time.Time, increment time.Duration) []time.Time {
	if increment <= 0 {
		return nil
	}
	var times []time.Time
	for t := start; t.Before(end); t = t.Add(increment) {
		times = append(times, t)
	}
	return times
}

// IntensityOverYear sweeps the whole of year in loc.
func (m *Model) IntensityOverYear(ctx context.Context, year int, loc *time.Location, increment time.Duration) (*IntensityOverTime, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, loc)
	return m.IntensityOverRange(ctx, start, start.AddDate(1, 0, 0), increment)
}

// IntensityOverRange sweeps [start, end) at the given increment.
func (m *Model) IntensityOverRange(ctx context.Context, start, end time.Time, increment time.Duration) (*IntensityOverTime, error) {
	times := Times(start, end, increment)

	o := m.Occlusion
	ck := MakeCacheKey(m.CacheTag, m.Point, o.QueryRadius, o.RayLength, o.Mode.String(), times)
	var samples []Sample
	if m.Cache.Load(ck, &samples) {
		m.logger().Debug("loaded sweep from cache", zap.Stringer("key", ck), zap.Int("samples", len(samples)))
	} else {
		var err error
		samples, err = m.Sweep(ctx, times)
		if err != nil {
			return nil, err
		}
		if degraded(samples) {
			m.logger().Warn("not caching sweep with fallback results")
		} else {
			m.Cache.Save(ck, samples)
		}
	}
	return &IntensityOverTime{samples, m.ElevationMeters, increment}, nil
}

func degraded(samples []Sample) bool {
	for _, s := range samples {
		if s.Method == shade.MethodFallback {
			return true
		}
	}
	return false
}

// Sweep resolves the sunlight status of the test point at each of times.
func (m *Model) Sweep(ctx context.Context, times []time.Time) ([]Sample, error) {
	resolver := m.resolver(ctx)

	samples := make([]Sample, len(times))
	g, ctx := errgroup.WithContext(ctx)
	workers := m.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, t := range times {
		i, t := i, t
		g.Go(func() error {
			res, err := resolver.Resolve(ctx, m.Point, t)
			if err != nil {
				return err
			}
			samples[i] = Sample{T: t, Lit: res.InSunlight, Method: res.Method, Altitude: res.Sun.AltitudeDegrees}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

// resolver returns a Resolver for the test point. The test point never
// moves, so the candidate buildings are fetched once up front.
func (m *Model) resolver(ctx context.Context) *shade.Resolver {
	o := m.Occlusion
	o.Logger = m.logger()
	src := o.Source
	if src == nil {
		src = shade.NoBuildings
	}
	radius := o.QueryRadius
	if radius <= 0 {
		radius = shade.DefaultQueryRadius
	}
	bs, err := src.QueryBuildings(ctx, m.Point, radius)
	if err != nil {
		// Leave the source in place so every sample reports the
		// fallback.
		m.logger().Warn("querying buildings for sweep", zap.Error(err))
	} else {
		o.Source = shade.StaticBuildings(bs)
		m.logger().Debug("fetched buildings for sweep", zap.Int("count", len(bs)))
	}
	return &shade.Resolver{Occlusion: o, Logger: m.logger()}
}

func (m *Model) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// newPlot returns a plot styled white on black.
func newPlot(title string) *plot.Plot {
	plt := plot.New()
	plt.Title.Text = title
	plt.BackgroundColor = color.Black
	for _, elt := range []*color.Color{
		&plt.Title.TextStyle.Color,
		&plt.X.Color,
		&plt.X.Tick.Color,
		&plt.X.Tick.Label.Color,
		&plt.X.Label.TextStyle.Color,
		&plt.Y.Color,
		&plt.Y.Tick.Color,
		&plt.Y.Tick.Label.Color,
		&plt.Y.Label.TextStyle.Color,
	} {
		*elt = color.White
	}
	return plt
}

var splitTimeDay = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// splitTime splits t into day and time of day. For the day, we put it
// at noon to "center" it on that date. In all cases, we put the result
// in UTC since that's the time zone gonum will render it in and it
// avoids further complications with DST.
func splitTime(t time.Time) (day, tod time.Time) {
	day = time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
	tod = time.Date(2000, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return
}
