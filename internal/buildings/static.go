package buildings

import (
	"context"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/aclements/shade"
)

const earthRadius = orb.EarthRadius

// Static is an in-memory building source indexed by a k-d tree over the
// footprint centroids. Its contents can be replaced while it is in use.
type Static struct {
	mu        sync.RWMutex
	buildings []shade.BuildingFootprint
	tree      *kdtree.Tree

	// maxExtent is the largest distance in meters from any building's
	// centroid to one of its vertices.
	maxExtent float64
}

// NewStatic returns a Static source holding bs.
func NewStatic(bs []shade.BuildingFootprint) *Static {
	s := new(Static)
	s.Replace(bs)
	return s
}

// Replace swaps the contents of s for bs.
func (s *Static) Replace(bs []shade.BuildingFootprint) {
	pts := make(centroids, 0, len(bs))
	var maxExtent float64
	for i, b := range bs {
		g := b.Footprint
		if g == nil {
			continue
		}
		c := g.Bound().Center()
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			continue
		}
		pts = append(pts, centroid{v: unitVector(c), idx: i})
		maxExtent = math.Max(maxExtent, extent(c, g))
	}
	var tree *kdtree.Tree
	if len(pts) > 0 {
		tree = kdtree.New(pts, false)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildings = bs
	s.tree = tree
	s.maxExtent = maxExtent
}

// Len returns the number of buildings in s.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buildings)
}

// QueryBuildings returns the buildings that may lie within radiusMeters
// of center.
func (s *Static) QueryBuildings(ctx context.Context, center shade.GroundPoint, radiusMeters float64) ([]shade.BuildingFootprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return nil, nil
	}

	// Widen the search so buildings whose centroid is out of range but
	// whose walls are in range are still found.
	angle := (radiusMeters + s.maxExtent) / earthRadius
	if angle > math.Pi {
		angle = math.Pi
	}
	chord := 2 * math.Sin(angle/2)

	keep := kdtree.NewDistKeeper(chord * chord)
	s.tree.NearestSet(keep, centroid{v: unitVector(center.Point())})

	var out []shade.BuildingFootprint
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			// DistKeeper's sentinel.
			continue
		}
		out = append(out, s.buildings[c.Comparable.(centroid).idx])
	}
	return out, nil
}

// unitVector returns p as a point on the unit sphere.
func unitVector(p orb.Point) [3]float64 {
	lat := p.Lat() * math.Pi / 180
	lng := p.Lon() * math.Pi / 180
	return [3]float64{
		math.Cos(lat) * math.Cos(lng),
		math.Cos(lat) * math.Sin(lng),
		math.Sin(lat),
	}
}

// extent returns the largest distance in meters from c to any point of g.
func extent(c orb.Point, g orb.Geometry) float64 {
	b := g.Bound()
	var far float64
	for _, p := range []orb.Point{b.Min, b.Max, b.LeftTop(), b.RightBottom()} {
		far = math.Max(far, shade.Distance(shade.GroundPointOf(c), shade.GroundPointOf(p)))
	}
	return far
}

// A centroid is a building's position in the k-d tree.
type centroid struct {
	v   [3]float64
	idx int
}

func (c centroid) Compare(o kdtree.Comparable, d kdtree.Dim) float64 {
	return c.v[d] - o.(centroid).v[d]
}

func (c centroid) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between c and o.
func (c centroid) Distance(o kdtree.Comparable) float64 {
	q := o.(centroid)
	var sum float64
	for i := range c.v {
		d := c.v[i] - q.v[i]
		sum += d * d
	}
	return sum
}

type centroids []centroid

func (c centroids) Index(i int) kdtree.Comparable         { return c[i] }
func (c centroids) Len() int                              { return len(c) }
func (c centroids) Pivot(d kdtree.Dim) int                { return plane{centroids: c, Dim: d}.Pivot() }
func (c centroids) Slice(start, end int) kdtree.Interface { return c[start:end] }

// plane sorts centroids along one dimension.
type plane struct {
	kdtree.Dim
	centroids
}

func (p plane) Less(i, j int) bool {
	return p.centroids[i].v[p.Dim] < p.centroids[j].v[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.centroids = p.centroids[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.centroids[i], p.centroids[j] = p.centroids[j], p.centroids[i]
}
