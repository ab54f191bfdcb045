package shade

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r3"
)

// A Mesh is a set of triangles in a local east/north/up frame in meters.
type Mesh struct {
	Verts []r3.Vec
	Tris  [][3]int
}

// extrude builds the walls of a flat-roofed prism of the given height
// over a projected footprint. rings[0] is the outer ring and the rest
// are holes. The roof is not part of the mesh; see prismHit.
func extrude(rings orb.Polygon, height float64) *Mesh {
	m := new(Mesh)
	for _, ring := range rings {
		j := len(ring) - 1
		for i := range ring {
			a, b := ring[j], ring[i]
			base := len(m.Verts)
			m.Verts = append(m.Verts,
				r3.Vec{X: a.X(), Y: a.Y(), Z: 0},
				r3.Vec{X: b.X(), Y: b.Y(), Z: 0},
				r3.Vec{X: b.X(), Y: b.Y(), Z: height},
				r3.Vec{X: a.X(), Y: a.Y(), Z: height},
			)
			m.Tris = append(m.Tris,
				[3]int{base, base + 1, base + 2},
				[3]int{base, base + 2, base + 3},
			)
			j = i
		}
	}
	return m
}

// prismHit reports whether the sun ray r, starting on the ground,
// passes through the prism of the given height over rings before it has
// traveled maxDist meters horizontally.
func prismHit(r Ray, rings orb.Polygon, height, maxDist float64) bool {
	horiz := math.Hypot(r.Dir.X, r.Dir.Y)
	maxT := math.Inf(1)
	if horiz > 0 {
		maxT = maxDist / horiz
	}

	// A ray starting inside the footprint leaves through the roof.
	if r.Dir.Z > 0 {
		t := (height - r.Origin.Z) / r.Dir.Z
		if t >= 0 && t <= maxT {
			p := r.Along(t)
			if planar.PolygonContains(rings, orb.Point{p.X, p.Y}) {
				return true
			}
		}
	}
	return r.HitsMesh(extrude(rings, height), maxT)
}
