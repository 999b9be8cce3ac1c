package coverage

import (
	"math"
	"slices"

	"github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Clipper intersects convex polygons. Results are snapped to a fixed-point
// lattice whose spacing is the robustness tolerance, so vertices computed
// along the same boundary from different sides land on identical
// coordinates, and then cleaned of degenerate vertices.
//
// Clipper holds no mutable state and is safe for concurrent use.
type Clipper struct {
	geo   Geometry
	scale float64
}

// NewClipper returns a clipper for the given tolerance.
// Tolerances at or above 1 use their exact reciprocal as the scale.
func NewClipper(tolerance float64) Clipper {
	scale := 1 / tolerance
	if scale >= 1 {
		scale = math.Round(scale)
	}
	return Clipper{geo: NewGeometry(tolerance), scale: scale}
}

// Snap moves p to the nearest lattice point.
func (c Clipper) Snap(p orb.Point) orb.Point {
	return orb.Point{math.Round(p[0]*c.scale) / c.scale, math.Round(p[1]*c.scale) / c.scale}
}

// Near reports whether a and b are at most one lattice step apart along
// each axis, with slack for the rounding of snapped values.
func (c Clipper) Near(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0])*c.scale <= 1+1e-9 && math.Abs(a[1]-b[1])*c.scale <= 1+1e-9
}

// Intersect returns the intersection of two convex polygons given as open
// vertex rings of any winding. The result keeps the subject's winding and
// is nil when the polygons do not overlap in a region of positive area.
func (c Clipper) Intersect(subject, clip []orb.Point) []orb.Point {
	if len(subject) < 3 || len(clip) < 3 {
		return nil
	}
	orient := closeRing(subject).Orientation()
	if orient == 0 || closeRing(clip).Orientation() == 0 {
		return nil
	}

	result := toGeomPolygon(subject).Intersection(toGeomPolygon(clip))
	out := largestRing(result.(geom.Polygon))
	if len(out) < 3 {
		return nil
	}
	if closeRing(out).Orientation() != orient {
		slices.Reverse(out)
	}

	for i, p := range out {
		out[i] = c.Snap(p)
	}
	return c.Clean(out)
}

func toGeomPolygon(pts []orb.Point) geom.Polygon {
	path := make(geom.Path, len(pts))
	for i, p := range pts {
		path[i] = geom.Point{X: p[0], Y: p[1]}
	}
	return geom.Polygon{path}
}

// largestRing returns the ring of poly with the largest absolute area as
// open orb points. Convex inputs give at most one ring; slivers from
// floating-point noise lose to it.
func largestRing(poly geom.Polygon) []orb.Point {
	var best geom.Path
	var bestArea float64
	for _, path := range poly {
		if a := math.Abs(geom.Polygon{path}.Area()); best == nil || a > bestArea {
			best, bestArea = path, a
		}
	}
	if len(best) > 1 && best[0] == best[len(best)-1] {
		best = best[:len(best)-1]
	}

	out := make([]orb.Point, len(best))
	for i, p := range best {
		out[i] = orb.Point{p.X, p.Y}
	}
	return out
}

// Clean removes near-duplicate and collinear vertices, then returns the
// remaining open ring, or nil if fewer than three vertices survive.
func (c Clipper) Clean(pts []orb.Point) []orb.Point {
	if len(pts) < 3 {
		return nil
	}

	ls := orb.LineString(closeRing(pts))
	simplified, ok := simplify.DouglasPeucker(c.geo.Tolerance).Simplify(ls.Clone()).(orb.LineString)
	if !ok || len(simplified) < 4 {
		return nil
	}
	ring := []orb.Point(simplified[:len(simplified)-1])

	// Douglas-Peucker always keeps the anchor vertex, so finish with a
	// cyclic pass until nothing changes.
	for changed := true; changed && len(ring) >= 3; {
		changed = false
		n := len(ring)
		for i := 0; i < n; i++ {
			prev, cur, next := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]
			if c.Near(prev, cur) || c.geo.PerpDistanceToLine(prev, next, cur) < c.geo.Tolerance {
				ring = append(ring[:i:i], ring[i+1:]...)
				changed = true
				break
			}
		}
	}
	if len(ring) < 3 {
		return nil
	}
	return ring
}

// closeRing returns pts as a closed orb.Ring without modifying pts.
func closeRing(pts []orb.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	ring = append(ring, pts...)
	if len(pts) > 0 && pts[0] != pts[len(pts)-1] {
		ring = append(ring, pts[0])
	}
	return ring
}
