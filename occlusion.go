package shade

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultQueryRadius is the radius in meters around the test point
	// from which candidate buildings are fetched.
	DefaultQueryRadius = 500

	// DefaultRayLength is the ground length in meters of the ray traced
	// toward the sun.
	DefaultRayLength = 2000
)

// OcclusionMode selects how a building on the sun ray is tested.
type OcclusionMode int

const (
	// OcclusionAngular compares the angle subtended by the building's
	// height at its centroid distance with the sun's altitude.
	OcclusionAngular OcclusionMode = iota

	// OcclusionPrism extrudes the footprint to a flat-roofed prism and
	// traces the 3D sun ray through it.
	OcclusionPrism
)

func (m OcclusionMode) String() string {
	switch m {
	case OcclusionAngular:
		return "angular"
	case OcclusionPrism:
		return "prism"
	}
	return fmt.Sprintf("OcclusionMode(%d)", int(m))
}

// ParseOcclusionMode parses the String form of an OcclusionMode.
func ParseOcclusionMode(s string) (OcclusionMode, error) {
	switch strings.ToLower(s) {
	case "", "angular":
		return OcclusionAngular, nil
	case "prism":
		return OcclusionPrism, nil
	}
	return 0, fmt.Errorf("unknown occlusion mode %q", s)
}

// OcclusionStats describes one occlusion test.
type OcclusionStats struct {
	Candidates int    // buildings returned by the source
	Checked    int    // buildings that could cast a shadow
	OnRay      int    // buildings crossed by the sun ray
	Skipped    int    // buildings dropped because of bad geometry
	Blocker    string // ID of the building that blocks the sun, if any
}

// An OcclusionTester decides whether buildings block the sun at a
// point. The zero OcclusionTester uses NoBuildings and the default
// query radius and ray length.
type OcclusionTester struct {
	Source      BuildingSource
	QueryRadius float64 // meters
	RayLength   float64 // meters
	Mode        OcclusionMode
	Logger      *zap.Logger
}

// Occluded reports whether a building blocks the sun at point.
//
// It returns an error only if the buildings can't be fetched or ctx is
// done. Buildings with bad geometry are skipped.
func (o *OcclusionTester) Occluded(ctx context.Context, point GroundPoint, sun SolarPosition) (bool, error) {
	occluded, _, err := o.OccludedStats(ctx, point, sun)
	return occluded, err
}

// OccludedStats is like Occluded but also describes the test.
func (o *OcclusionTester) OccludedStats(ctx context.Context, point GroundPoint, sun SolarPosition) (bool, OcclusionStats, error) {
	if !sun.AboveHorizon() {
		return true, OcclusionStats{}, nil
	}
	candidates, err := o.fetch(ctx, point)
	if err != nil {
		return false, OcclusionStats{}, fmt.Errorf("querying buildings: %w", err)
	}
	return o.scan(ctx, point, sun, candidates)
}

// IsOccluded reports whether any of candidates blocks the sun at point,
// using OcclusionAngular and the default ray length.
func IsOccluded(point GroundPoint, sun SolarPosition, candidates []BuildingFootprint) bool {
	var o OcclusionTester
	occluded, _, _ := o.scan(context.Background(), point, sun, candidates)
	return occluded
}

func (o *OcclusionTester) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *OcclusionTester) fetch(ctx context.Context, point GroundPoint) (bs []BuildingFootprint, err error) {
	src := o.Source
	if src == nil {
		src = NoBuildings
	}
	radius := o.QueryRadius
	if radius <= 0 {
		radius = DefaultQueryRadius
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("building source panicked: %v", r)
		}
	}()
	return src.QueryBuildings(ctx, point, radius)
}

func (o *OcclusionTester) scan(ctx context.Context, point GroundPoint, sun SolarPosition, candidates []BuildingFootprint) (bool, OcclusionStats, error) {
	stats := OcclusionStats{Candidates: len(candidates)}
	if !sun.AboveHorizon() {
		return true, stats, nil
	}

	length := o.RayLength
	if length <= 0 {
		length = DefaultRayLength
	}
	frame := newLocalFrame(point)
	end := frame.project(Destination(point, length, sun.Bearing()).Point())
	t := rayTest{
		point:  point,
		sun:    sun,
		frame:  frame,
		end:    end,
		length: length,
		mode:   o.Mode,
	}

	for _, b := range candidates {
		if err := ctx.Err(); err != nil {
			return false, stats, err
		}
		if !b.CanOcclude() {
			continue
		}
		stats.Checked++
		onRay, blocks, err := t.test(b)
		if err != nil {
			stats.Skipped++
			o.logger().Debug("skipping building", zap.String("id", b.ID), zap.Error(err))
			continue
		}
		if onRay {
			stats.OnRay++
		}
		if blocks {
			stats.Blocker = b.ID
			return true, stats, nil
		}
	}
	return false, stats, nil
}

// A rayTest tests buildings against one sun ray.
type rayTest struct {
	point  GroundPoint
	sun    SolarPosition
	frame  localFrame
	end    r2.Vec // ground end of the ray in frame
	length float64
	mode   OcclusionMode
}

var errBadCentroid = errors.New("footprint centroid is not finite")

// test reports whether the ground ray crosses b and whether b blocks
// the sun. It never panics.
func (t *rayTest) test(b BuildingFootprint) (onRay, blocks bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			onRay, blocks, err = false, false, fmt.Errorf("%w: %v", errMalformedFootprint, r)
		}
	}()

	poly, _ := b.Polygon()
	rings, err := t.frame.projectPolygon(poly)
	if err != nil {
		return false, false, err
	}
	if !segmentIntersectsPolygon(r2.Vec{}, t.end, rings) {
		return false, false, nil
	}

	switch t.mode {
	case OcclusionPrism:
		ray := t.sun.SunRay(r3.Vec{})
		return true, prismHit(ray, rings, b.Height, t.length), nil
	default:
		c, err := vertexCentroid(poly)
		if err != nil {
			return true, false, err
		}
		d := Distance(t.point, c)
		if math.IsNaN(d) {
			return true, false, errBadCentroid
		}
		angularHeight := math.Atan2(b.Height, d) * rad2deg
		return true, angularHeight > t.sun.AltitudeDegrees, nil
	}
}
