package shade

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
)

// earthRadius is the radius in meters used for every distance in this
// package. It matches orb/geo.
const earthRadius = orb.EarthRadius

// A GroundPoint is a location on the ground in degrees, where north and
// east are positive. Ground points have no elevation.
type GroundPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns p as a [lng, lat] orb point.
func (p GroundPoint) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// GroundPointOf returns the ground point at a [lng, lat] orb point.
func GroundPointOf(p orb.Point) GroundPoint {
	return GroundPoint{Lat: p.Lat(), Lng: p.Lon()}
}

// Destination returns the point reached by traveling distance meters
// from p along the great circle with the given initial compass bearing.
// The result's longitude is in [-180, 180).
func Destination(p GroundPoint, distance, bearingDegrees float64) GroundPoint {
	q := GroundPointOf(geo.PointAtBearingAndDistance(p.Point(), bearingDegrees, distance))
	q.Lng = wrapLng(q.Lng)
	return q
}

// Distance returns the great-circle distance in meters between a and b.
func Distance(a, b GroundPoint) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// wrapLng maps a longitude or longitude difference into [-180, 180).
func wrapLng(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}

// A localFrame is a flat east/north plane in meters centered on origin.
// It is an equirectangular projection, which is accurate to well under
// a meter over the couple of kilometers a shadow ray covers. Longitude
// differences are taken the short way around, so points across the
// antimeridian from origin land next to it.
type localFrame struct {
	origin       GroundPoint
	metersPerLat float64
	metersPerLng float64
}

func newLocalFrame(origin GroundPoint) localFrame {
	m := earthRadius * deg2rad
	return localFrame{origin, m, m * math.Cos(origin.Lat*deg2rad)}
}

func (f localFrame) project(p orb.Point) r2.Vec {
	return r2.Vec{
		X: wrapLng(p.Lon()-f.origin.Lng) * f.metersPerLng,
		Y: (p.Lat() - f.origin.Lat) * f.metersPerLat,
	}
}

var errMalformedFootprint = errors.New("malformed footprint")

// projectPolygon projects every ring of poly into f, dropping the
// closing vertex of each ring. The result is in planar meters with X
// east and Y north.
func (f localFrame) projectPolygon(poly orb.Polygon) (orb.Polygon, error) {
	if len(poly) == 0 {
		return nil, fmt.Errorf("%w: no rings", errMalformedFootprint)
	}
	rings := make(orb.Polygon, 0, len(poly))
	for i, ring := range poly {
		if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
			ring = ring[:len(ring)-1]
		}
		if len(ring) < 3 {
			if i == 0 {
				return nil, fmt.Errorf("%w: outer ring has %d vertices", errMalformedFootprint, len(ring))
			}
			// A degenerate hole can't hide anything.
			continue
		}
		out := make(orb.Ring, len(ring))
		for j, p := range ring {
			if !validLngLat(p) {
				return nil, fmt.Errorf("%w: bad vertex %v", errMalformedFootprint, p)
			}
			v := f.project(p)
			out[j] = orb.Point{v.X, v.Y}
		}
		rings = append(rings, out)
	}
	return rings, nil
}

func validLngLat(p orb.Point) bool {
	lng, lat := p.Lon(), p.Lat()
	return !math.IsNaN(lng) && !math.IsNaN(lat) &&
		lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

// vertexCentroid returns the mean of the vertices of the outer ring of
// poly, not counting the closing vertex.
func vertexCentroid(poly orb.Polygon) (GroundPoint, error) {
	if len(poly) == 0 {
		return GroundPoint{}, fmt.Errorf("%w: no rings", errMalformedFootprint)
	}
	ring := poly[0]
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) == 0 {
		return GroundPoint{}, fmt.Errorf("%w: empty outer ring", errMalformedFootprint)
	}
	// Average longitudes relative to the first vertex so a footprint
	// across the antimeridian doesn't average to the far side of the
	// Earth.
	lng0 := ring[0].Lon()
	var sumDLng, sumLat float64
	for _, p := range ring {
		sumDLng += wrapLng(p.Lon() - lng0)
		sumLat += p.Lat()
	}
	n := float64(len(ring))
	return GroundPoint{Lat: sumLat / n, Lng: wrapLng(lng0 + sumDLng/n)}, nil
}

// segmentIntersectsPolygon reports whether segment ab touches the
// planar polygon poly. poly[0] is the outer ring and the rest are holes.
func segmentIntersectsPolygon(a, b r2.Vec, poly orb.Polygon) bool {
	for _, ring := range poly {
		j := len(ring) - 1
		for i := range ring {
			if segmentsIntersect(a, b, vec(ring[j]), vec(ring[i])) {
				return true
			}
			j = i
		}
	}
	// ab crosses no edge, so it is entirely inside or entirely outside
	// each ring.
	return planar.PolygonContains(poly, orb.Point{a.X, a.Y})
}

func vec(p orb.Point) r2.Vec {
	return r2.Vec{X: p[0], Y: p[1]}
}

// segmentsIntersect reports whether the closed segments p1p2 and q1q2
// share at least one point.
func segmentsIntersect(p1, p2, q1, q2 r2.Vec) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

// orient returns the signed area of the parallelogram spanned by ab and
// ac. It is positive if c is to the left of ab.
func orient(a, b, c r2.Vec) float64 {
	return r2.Cross(r2.Sub(b, a), r2.Sub(c, a))
}

// onSegment reports whether c, known to be collinear with ab, lies
// within the bounding box of ab.
func onSegment(a, b, c r2.Vec) bool {
	return math.Min(a.X, b.X) <= c.X && c.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= c.Y && c.Y <= math.Max(a.Y, b.Y)
}
