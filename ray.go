package shade

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultRayDistanceKm is the length of the visualized sun ray.
	DefaultRayDistanceKm = 1.0

	// DefaultRaySegments is the number of pieces the visualized ray is
	// cut into.
	DefaultRaySegments = 30

	// rayWidth is the width of a ray segment quad in meters.
	rayWidth = 0.2

	// metersPerDegree is the length of one degree of latitude, and of
	// longitude at the equator.
	metersPerDegree = 111320
)

// A Ray3DPoint is a point above the ground.
type Ray3DPoint struct {
	Position  orb.Point `json:"position"`  // [lng, lat]
	Elevation float64   `json:"elevation"` // meters above the ground
}

// A RaySegment is one piece of a subdivided ray, shaped as a thin quad
// on the ground that a renderer can extrude from Base to Top.
type RaySegment struct {
	Index      int
	Start, End orb.Point
	Base, Top  float64 // elevation in meters
	Quad       orb.Ring
}

// Project3DRay returns the far end of a ray of length distanceKm that
// leaves origin toward the sun.
//
// azimuthDegrees is the south-referenced solar azimuth (see
// SolarPosition). The sun lies in compass direction azimuth+180, so
// that's the bearing the ray travels along the ground.
func Project3DRay(origin GroundPoint, distanceKm, azimuthDegrees, altitudeDegrees float64) Ray3DPoint {
	alt := altitudeDegrees * deg2rad
	horizontal := distanceKm * math.Cos(alt)
	vertical := distanceKm * math.Sin(alt)

	end := Destination(origin, horizontal*1000, CompassBearing(azimuthDegrees))
	return Ray3DPoint{
		Position:  end.Point(),
		Elevation: vertical * 1000,
	}
}

// SubdivideRay cuts the ray from start at baseElevation to end at
// topElevation into n segments of equal length. Segment 0 starts at
// start and segment n-1 ends at end. n less than 1 is treated as 1.
func SubdivideRay(start, end orb.Point, baseElevation, topElevation float64, n int) []RaySegment {
	if n < 1 {
		n = 1
	}
	lerp := func(a, b, r float64) float64 { return a + (b-a)*r }

	segs := make([]RaySegment, n)
	for i := range segs {
		r1 := float64(i) / float64(n)
		r2 := float64(i+1) / float64(n)
		p1 := orb.Point{lerp(start[0], end[0], r1), lerp(start[1], end[1], r1)}
		p2 := orb.Point{lerp(start[0], end[0], r2), lerp(start[1], end[1], r2)}
		if i == n-1 {
			// Avoid rounding drift at the sun end.
			p2 = end
		}

		// Build a thin rectangle around p1p2 for extrusion. The width is
		// converted from meters to degrees of longitude at p1.
		perp := math.Atan2(p2[1]-p1[1], p2[0]-p1[0]) + math.Pi/2
		cosLat := math.Max(math.Cos(p1[1]*deg2rad), 1e-9)
		width := rayWidth / (metersPerDegree * cosLat)
		dx := width * math.Cos(perp) / 2
		dy := width * math.Sin(perp) / 2

		segs[i] = RaySegment{
			Index: i,
			Start: p1,
			End:   p2,
			Base:  lerp(baseElevation, topElevation, r1),
			Top:   lerp(baseElevation, topElevation, r2),
			Quad: orb.Ring{
				{p1[0] - dx, p1[1] - dy},
				{p1[0] + dx, p1[1] + dy},
				{p2[0] + dx, p2[1] + dy},
				{p2[0] - dx, p2[1] - dy},
				{p1[0] - dx, p1[1] - dy},
			},
		}
	}
	return segs
}

// RayFeatures renders a sun ray as GeoJSON: a line from origin to the
// ray end carrying the sun angles, followed by one extrudable polygon per
// segment.
func RayFeatures(origin GroundPoint, sun SolarPosition, end Ray3DPoint, segs []RaySegment) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := geojson.NewFeature(orb.LineString{origin.Point(), end.Position})
	line.Properties["altitude"] = sun.AltitudeDegrees
	line.Properties["azimuth"] = sun.AzimuthDegrees
	line.Properties["elevation"] = end.Elevation
	fc.Append(line)

	for _, s := range segs {
		f := geojson.NewFeature(orb.Polygon{s.Quad})
		f.Properties["base"] = s.Base
		f.Properties["height"] = s.Top
		f.Properties["segment"] = s.Index
		f.Properties["isRaySegment"] = true
		fc.Append(f)
	}
	return fc
}

// A Ray is a half-line in a local east/north/up frame in meters.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec // Must be normalized
}

// SunRay returns the ray from origin toward the sun at p.
func (p SolarPosition) SunRay(origin r3.Vec) Ray {
	brg := p.Bearing() * deg2rad
	return Ray{
		Origin: origin,
		Dir: r3.Unit(r3.Vec{
			X: math.Sin(brg) * math.Cos(p.Altitude),
			Y: math.Cos(brg) * math.Cos(p.Altitude),
			Z: math.Sin(p.Altitude),
		}),
	}
}

// Along returns the point at distance t along r.
func (r *Ray) Along(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// HitsMesh reports whether r hits any triangle of m within distance
// maxT of its origin. Unlike a full trace, it stops at the first hit.
func (r *Ray) HitsMesh(m *Mesh, maxT float64) bool {
	for _, tri := range m.Tris {
		t, ok := r.IntersectTriangle(&r3.Triangle{m.Verts[tri[0]], m.Verts[tri[1]], m.Verts[tri[2]]})
		if ok && t <= maxT {
			return true
		}
	}
	return false
}

// IntersectTriangle returns the distance along r at which it crosses
// tri, if it does.
func (r *Ray) IntersectTriangle(tri *r3.Triangle) (t float64, ok bool) {
	// Möller–Trumbore intersection, based on Wikipedia implementation
	// and the Scratchapixel implementation.
	const epsilon = 1e-9
	edge1 := r3.Sub(tri[1], tri[0])
	edge2 := r3.Sub(tri[2], tri[0])
	h := r3.Cross(r.Dir, edge2)
	det := r3.Dot(edge1, h)
	// Triangles are two-sided here, so only reject rays parallel to
	// the triangle's plane.
	if math.Abs(det) < epsilon {
		return 0, false
	}
	invDet := 1 / det
	s := r3.Sub(r.Origin, tri[0])
	u := invDet * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := r3.Cross(s, edge1)
	v := invDet * r3.Dot(r.Dir, q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t = invDet * r3.Dot(edge2, q)
	if t < epsilon {
		// The line crosses the triangle behind the origin.
		return 0, false
	}
	return t, true
}
