package shade

import (
	"context"
	"math"

	"github.com/paulmach/orb"
)

// A BuildingFootprint is the ground outline of a building and its
// height in meters.
type BuildingFootprint struct {
	ID        string
	Footprint orb.Geometry
	Height    float64
}

// Polygon returns b's footprint if it is a simple polygon.
func (b BuildingFootprint) Polygon() (orb.Polygon, bool) {
	poly, ok := b.Footprint.(orb.Polygon)
	return poly, ok && len(poly) > 0
}

// CanOcclude reports whether b can cast a shadow at all: it needs a
// positive height and a polygon footprint.
func (b BuildingFootprint) CanOcclude() bool {
	if math.IsNaN(b.Height) || b.Height <= 0 {
		return false
	}
	_, ok := b.Polygon()
	return ok
}

// A BuildingSource returns the buildings whose footprints lie within
// radiusMeters of center. It may return buildings outside the radius,
// but must not omit any inside it.
//
// Implementations must be safe for concurrent use.
type BuildingSource interface {
	QueryBuildings(ctx context.Context, center GroundPoint, radiusMeters float64) ([]BuildingFootprint, error)
}

// BuildingSourceFunc adapts a function to a BuildingSource.
type BuildingSourceFunc func(ctx context.Context, center GroundPoint, radiusMeters float64) ([]BuildingFootprint, error)

func (f BuildingSourceFunc) QueryBuildings(ctx context.Context, center GroundPoint, radiusMeters float64) ([]BuildingFootprint, error) {
	return f(ctx, center, radiusMeters)
}

// NoBuildings is a BuildingSource with no buildings in it.
var NoBuildings BuildingSource = BuildingSourceFunc(func(context.Context, GroundPoint, float64) ([]BuildingFootprint, error) {
	return nil, nil
})

// StaticBuildings is a fixed set of buildings. It returns every building
// for every query and leaves radius filtering to the caller.
type StaticBuildings []BuildingFootprint

func (s StaticBuildings) QueryBuildings(ctx context.Context, center GroundPoint, radiusMeters float64) ([]BuildingFootprint, error) {
	return s, nil
}
