package coverage

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Geometry carries the robustness tolerance used by every predicate below.
// It is a plain value so engines with different tolerances never share
// state.
type Geometry struct {
	Tolerance float64
}

// NewGeometry returns a predicate context with the given tolerance.
func NewGeometry(tolerance float64) Geometry {
	return Geometry{Tolerance: tolerance}
}

// addPoints returns a + b.
func addPoints(a, b orb.Point) orb.Point {
	return orb.Point{a[0] + b[0], a[1] + b[1]}
}

// scalePoint returns p scaled by f.
func scalePoint(p orb.Point, f float64) orb.Point {
	return orb.Point{p[0] * f, p[1] * f}
}

// pointAlongLine returns a + t*(b-a). t outside [0,1] extrapolates.
func pointAlongLine(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// perpDirection returns a vector of length n perpendicular to the segment
// a->b, rotated clockwise from it. Coincident points give the zero vector.
func perpDirection(a, b orb.Point, n float64) orb.Point {
	d := planar.Distance(a, b)
	if d == 0 {
		return orb.Point{}
	}
	return orb.Point{(b[1] - a[1]) / d * n, (a[0] - b[0]) / d * n}
}

func isFinite(p orb.Point) bool {
	return !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0) && !math.IsNaN(p[0]) && !math.IsNaN(p[1])
}

// PerpDistanceToLine returns the distance from p to the infinite line
// through a and b. Nearly axis-aligned lines are measured along the other
// axis.
func (g Geometry) PerpDistanceToLine(a, b, p orb.Point) float64 {
	switch {
	case math.Abs(b[1]-a[1]) < g.Tolerance:
		return math.Abs(p[1] - b[1])
	case math.Abs(b[0]-a[0]) < g.Tolerance:
		return math.Abs(p[0] - b[0])
	}
	return math.Abs((b[1]-a[1])*p[0]-(b[0]-a[0])*p[1]+b[0]*a[1]-b[1]*a[0]) / planar.Distance(a, b)
}

// AreCollinear reports whether p lies on the line through a and b. The
// perpendicular distance is compared relative to the largest pairwise
// distance of the three points.
func (g Geometry) AreCollinear(a, b, p orb.Point) bool {
	maxDist := math.Max(planar.Distance(a, b), math.Max(planar.Distance(b, p), planar.Distance(a, p)))
	if maxDist == 0 {
		return true
	}
	return g.PerpDistanceToLine(a, b, p)/maxDist < g.Tolerance
}

// AreBetween reports whether p lies on the closed segment [a,b].
func (g Geometry) AreBetween(a, b, p orb.Point) bool {
	if !g.AreCollinear(a, b, p) {
		return false
	}
	length := planar.Distance(a, b)
	if length == 0 {
		return planar.Distance(a, p) < g.Tolerance
	}
	ratio := planar.Distance(a, p) / length
	if ratio > 1 || ratio < 0 {
		return false
	}
	// p must sit on the same side of a as b.
	return (p[0]-a[0])*(b[0]-a[0])+(p[1]-a[1])*(b[1]-a[1]) >= 0
}

// CollinearIntersection returns the overlap of the collinear segments
// [p1,p2] and [p3,p4]: no points, a single touching point, or the two
// endpoints of the shared sub-segment.
func (g Geometry) CollinearIntersection(p1, p2, p3, p4 orb.Point) []orb.Point {
	var result []orb.Point
	switch {
	case g.AreBetween(p1, p2, p3):
		result = append(result, p3)
		switch {
		case g.AreBetween(p1, p2, p4):
			result = append(result, p4)
		case g.AreBetween(p3, p4, p1) && planar.Distance(p3, p1) > g.Tolerance:
			result = append(result, p1)
		case g.AreBetween(p3, p4, p2) && planar.Distance(p3, p2) > g.Tolerance:
			result = append(result, p2)
		}
	case g.AreBetween(p1, p2, p4):
		result = append(result, p4)
		switch {
		case g.AreBetween(p3, p4, p1) && planar.Distance(p4, p1) > g.Tolerance:
			result = append(result, p1)
		case g.AreBetween(p3, p4, p2) && planar.Distance(p4, p2) > g.Tolerance:
			result = append(result, p2)
		}
	case g.AreBetween(p3, p4, p1) && g.AreBetween(p3, p4, p2):
		result = append(result, p1, p2)
	}
	return result
}

// Contains reports whether p lies inside poly. Points on the boundary,
// within tolerance, count as inside. An empty polygon contains nothing.
func (g Geometry) Contains(poly Polygon, p orb.Point) bool {
	verts := poly.vertices
	if len(verts) == 0 {
		return false
	}

	inside := false
	prev := verts[len(verts)-1]
	for _, cur := range verts {
		if g.AreBetween(prev, cur, p) {
			return true
		}
		if ((prev[1] < p[1] && p[1] <= cur[1]) || (p[1] <= prev[1] && cur[1] < p[1])) &&
			(prev[0] <= p[0] || cur[0] <= p[0]) {
			if prev[0]+(p[1]-prev[1])*(cur[0]-prev[0])/(cur[1]-prev[1]) < p[0] {
				inside = !inside
			}
		}
		prev = cur
	}
	return inside
}
