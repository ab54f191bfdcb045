package shade

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestProject3DRay(t *testing.T) {
	origin := rotterdam

	// Horizon ray: no vertical component.
	end := Project3DRay(origin, 1, 0, 0)
	if math.Abs(end.Elevation) > 1e-9 {
		t.Errorf("horizon ray elevation = %v, want 0", end.Elevation)
	}
	assertBetween(t, "horizon ray length", Distance(origin, GroundPointOf(end.Position)), 999, 1001)
	// South-referenced azimuth 0 puts the sun due south.
	if end.Position.Lat() >= origin.Lat {
		t.Errorf("expected ray to go south, got %v", end.Position)
	}

	// Zenith ray: no horizontal component.
	end = Project3DRay(origin, 1, 37, 90)
	assertBetween(t, "zenith ray elevation", end.Elevation, 999.999, 1000.001)
	assertBetween(t, "zenith ray length", Distance(origin, GroundPointOf(end.Position)), 0, 1e-6)

	// 30° altitude, sun in the west.
	end = Project3DRay(origin, 2, 90, 30)
	assertBetween(t, "30° ray elevation", end.Elevation, 999.999, 1000.001)
	assertBetween(t, "30° ray length", Distance(origin, GroundPointOf(end.Position)), 2000*math.Cos(math.Pi/6)-1, 2000*math.Cos(math.Pi/6)+1)
	if end.Position.Lon() >= origin.Lng {
		t.Errorf("expected ray to go west, got %v", end.Position)
	}
}

func TestSubdivideRay(t *testing.T) {
	start := orb.Point{4.4626, 51.9244}
	end := orb.Point{4.47, 51.93}
	for _, n := range []int{1, 2, 20, 30} {
		segs := SubdivideRay(start, end, 0, 500, n)
		if len(segs) != n {
			t.Fatalf("n=%d: got %d segments", n, len(segs))
		}
		if segs[0].Start != start || segs[0].Base != 0 {
			t.Errorf("n=%d: first segment starts at %v/%v, want %v/0", n, segs[0].Start, segs[0].Base, start)
		}
		last := segs[n-1]
		if last.End != end || math.Abs(last.Top-500) > 1e-9 {
			t.Errorf("n=%d: last segment ends at %v/%v, want %v/500", n, last.End, last.Top, end)
		}
		for i := 1; i < n; i++ {
			if segs[i].Start != segs[i-1].End || segs[i].Base != segs[i-1].Top {
				t.Errorf("n=%d: gap between segments %d and %d", n, i-1, i)
			}
			if segs[i].Index != i {
				t.Errorf("n=%d: segment %d has index %d", n, i, segs[i].Index)
			}
		}
		for _, s := range segs {
			if len(s.Quad) != 5 || s.Quad[0] != s.Quad[4] {
				t.Errorf("n=%d: segment %d quad is not a closed ring: %v", n, s.Index, s.Quad)
			}
			// The quad is rayWidth wide in degrees of longitude.
			w := math.Hypot(s.Quad[1][0]-s.Quad[0][0], s.Quad[1][1]-s.Quad[0][1])
			want := rayWidth / (metersPerDegree * math.Cos(s.Start.Lat()*deg2rad))
			assertBetween(t, "quad width", w, want*(1-1e-6), want*(1+1e-6))
		}
	}
}

func TestSubdivideRayClampsCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		if got := len(SubdivideRay(orb.Point{0, 0}, orb.Point{0.01, 0.01}, 0, 1, n)); got != 1 {
			t.Errorf("SubdivideRay with n=%d made %d segments, want 1", n, got)
		}
	}
}

func TestRayFeatures(t *testing.T) {
	sun := SolarPosition{Altitude: 0.5, AltitudeDegrees: 0.5 * rad2deg}
	end := Project3DRay(rotterdam, DefaultRayDistanceKm, sun.AzimuthDegrees, sun.AltitudeDegrees)
	segs := SubdivideRay(rotterdam.Point(), end.Position, 0, end.Elevation, DefaultRaySegments)
	fc := RayFeatures(rotterdam, sun, end, segs)
	if len(fc.Features) != DefaultRaySegments+1 {
		t.Fatalf("expected %d features, got %d", DefaultRaySegments+1, len(fc.Features))
	}
	if _, ok := fc.Features[0].Geometry.(orb.LineString); !ok {
		t.Errorf("first feature is %T, want a LineString", fc.Features[0].Geometry)
	}
	f := fc.Features[DefaultRaySegments]
	if f.Properties["isRaySegment"] != true || f.Properties["segment"] != DefaultRaySegments-1 {
		t.Errorf("unexpected properties on last segment: %v", f.Properties)
	}
}

func TestIntersectTriangle(t *testing.T) {
	tri := &r3.Triangle{{X: -1, Y: 5, Z: -1}, {X: 1, Y: 5, Z: -1}, {X: 0, Y: 5, Z: 1}}
	r := Ray{Dir: r3.Vec{Y: 1}}
	if d, ok := r.IntersectTriangle(tri); !ok || math.Abs(d-5) > 1e-9 {
		t.Errorf("expected hit at 5, got %v, %v", d, ok)
	}
	r.Dir = r3.Vec{Y: -1}
	if _, ok := r.IntersectTriangle(tri); ok {
		t.Error("expected no hit behind the origin")
	}
	r.Dir = r3.Unit(r3.Vec{X: 1, Y: 1})
	if _, ok := r.IntersectTriangle(tri); ok {
		t.Error("expected the ray to miss")
	}
}
