package shade

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// A Method names the way a ShadowResult was decided.
type Method string

const (
	// MethodAstronomical means the sun is below the horizon.
	MethodAstronomical Method = "astronomical"

	// MethodRayTracing means buildings were tested against the sun ray.
	MethodRayTracing Method = "ray-tracing"

	// MethodFallback means the building test failed and the result
	// only reflects whether the sun is up.
	MethodFallback Method = "fallback"
)

// ShadowResult says whether a point is in direct sunlight.
type ShadowResult struct {
	InSunlight bool          `json:"inSunlight"`
	Method     Method        `json:"method"`
	Details    string        `json:"details,omitempty"`
	Sun        SolarPosition `json:"sun"`
}

// A Resolver decides whether points are sunlit. It is safe for
// concurrent use as long as its fields are not modified.
type Resolver struct {
	Occlusion OcclusionTester
	Logger    *zap.Logger
}

// NewResolver returns a Resolver that tests against the buildings in
// src with the default occlusion settings. logger may be nil.
func NewResolver(src BuildingSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		Occlusion: OcclusionTester{
			Source:      src,
			QueryRadius: DefaultQueryRadius,
			RayLength:   DefaultRayLength,
			Logger:      logger,
		},
		Logger: logger,
	}
}

// Resolve decides whether point is in direct sunlight at t.
//
// The only error it returns is an *InvalidInputError for a bad point or
// time. If the buildings can't be tested, Resolve falls back to whether
// the sun is up and reports MethodFallback. A missing building never
// makes a point shaded.
func (r *Resolver) Resolve(ctx context.Context, point GroundPoint, t time.Time) (ShadowResult, error) {
	sun, err := ComputeSolarPosition(t, point.Lat, point.Lng)
	if err != nil {
		return ShadowResult{}, err
	}
	if !sun.AboveHorizon() {
		return ShadowResult{
			InSunlight: false,
			Method:     MethodAstronomical,
			Details:    "Sun is below horizon",
			Sun:        sun,
		}, nil
	}

	start := time.Now()
	occluded, stats, err := r.Occlusion.OccludedStats(ctx, point, sun)
	if err != nil {
		r.logger().Warn("ray tracing failed",
			zap.Float64("lat", point.Lat),
			zap.Float64("lng", point.Lng),
			zap.Time("time", t),
			zap.Error(err))
		return ShadowResult{
			InSunlight: sun.AboveHorizon(),
			Method:     MethodFallback,
			Details:    "Ray tracing failed, using simple sun position check: " + err.Error(),
			Sun:        sun,
		}, nil
	}

	elapsed := time.Since(start)
	r.logger().Debug("resolved sunlight",
		zap.Float64("lat", point.Lat),
		zap.Float64("lng", point.Lng),
		zap.Time("time", t),
		zap.Bool("occluded", occluded),
		zap.String("blocker", stats.Blocker),
		zap.Int("checked", stats.Checked),
		zap.Duration("elapsed", elapsed))
	return ShadowResult{
		InSunlight: !occluded,
		Method:     MethodRayTracing,
		Details: fmt.Sprintf("Calculated with 3D ray tracing in %v; %d buildings checked, %d on ray",
			elapsed.Round(time.Microsecond), stats.Checked, stats.OnRay),
		Sun: sun,
	}, nil
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// ResolveSunlightStatus decides whether point is in direct sunlight at t
// given the buildings in src. See Resolver.Resolve.
func ResolveSunlightStatus(ctx context.Context, point GroundPoint, t time.Time, src BuildingSource) (ShadowResult, error) {
	return NewResolver(src, nil).Resolve(ctx, point, t)
}
