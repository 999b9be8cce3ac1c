package coverage

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Polygon is a simple polygon stored as an open ring (the first vertex is
// not repeated at the end) together with its cached bounding box.
//
// The zero value is the empty polygon, which is how a region that vanished
// during optimization is represented. A non-empty polygon always has at
// least three distinct, finite vertices and a non-degenerate bounding box.
type Polygon struct {
	vertices []orb.Point
	bound    orb.Bound
}

// NewPolygon validates pts and returns the polygon they describe. A closing
// vertex equal to the first one is dropped. An empty slice yields the empty
// polygon.
func NewPolygon(pts []orb.Point) (Polygon, error) {
	if len(pts) == 0 {
		return Polygon{}, nil
	}
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return Polygon{}, fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrGeometry, len(pts))
	}

	verts := make([]orb.Point, len(pts))
	copy(verts, pts)
	for i, p := range verts {
		if !isFinite(p) {
			return Polygon{}, fmt.Errorf("%w: vertex %d is not finite", ErrGeometry, i)
		}
		for j := i + 1; j < len(verts); j++ {
			if verts[j] == p {
				return Polygon{}, fmt.Errorf("%w: vertices %d and %d coincide at (%g, %g)", ErrGeometry, i, j, p[0], p[1])
			}
		}
	}

	bound := orb.MultiPoint(verts).Bound()
	if bound.Min[0] == bound.Max[0] || bound.Min[1] == bound.Max[1] {
		return Polygon{}, fmt.Errorf("%w: polygon has zero nominal area", ErrGeometry)
	}
	return Polygon{vertices: verts, bound: bound}, nil
}

// MustPolygon is like NewPolygon but panics on invalid input. It is meant
// for fixed shapes in tests and examples.
func MustPolygon(pts ...orb.Point) Polygon {
	p, err := NewPolygon(pts)
	if err != nil {
		panic(err)
	}
	return p
}

// Rectangle returns the axis-aligned rectangle spanned by two corners,
// wound counter-clockwise from the lower-left corner.
func Rectangle(minX, minY, maxX, maxY float64) (Polygon, error) {
	return NewPolygon([]orb.Point{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}})
}

// IsEmpty reports whether the polygon has no vertices.
func (p Polygon) IsEmpty() bool { return len(p.vertices) == 0 }

// Len returns the number of vertices.
func (p Polygon) Len() int { return len(p.vertices) }

// Vertices returns a copy of the vertex list.
func (p Polygon) Vertices() []orb.Point {
	out := make([]orb.Point, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// Bound returns the cached bounding box. It is the zero Bound for the
// empty polygon.
func (p Polygon) Bound() orb.Bound { return p.bound }

// Ring returns the polygon as a closed orb.Ring.
func (p Polygon) Ring() orb.Ring {
	if p.IsEmpty() {
		return nil
	}
	ring := make(orb.Ring, 0, len(p.vertices)+1)
	ring = append(ring, p.vertices...)
	return append(ring, p.vertices[0])
}

// Area returns the unweighted (plain) area.
func (p Polygon) Area() float64 {
	if p.IsEmpty() {
		return 0
	}
	return math.Abs(planar.Area(p.Ring()))
}

// IsConvex reports whether the polygon is convex: every vertex lies on its
// convex hull, visited in hull order. Collinear vertices are allowed.
func (p Polygon) IsConvex() bool {
	if p.IsEmpty() {
		return false
	}
	hull := convexHull(p.vertices)
	position := make(map[orb.Point]int, len(hull))
	for i, h := range hull {
		position[h] = i
	}

	n := len(p.vertices)
	var order []int
	for i, v := range p.vertices {
		if k, ok := position[v]; ok {
			order = append(order, k)
			continue
		}
		// Vertices lying on a hull edge are dropped by the hull but do not
		// make the polygon reflex.
		prev, next := p.vertices[(i+n-1)%n], p.vertices[(i+1)%n]
		if cross(prev, v, next) != 0 {
			return false
		}
	}
	if len(order) != len(hull) {
		return false
	}

	// Hull vertices must appear cyclically in either winding direction.
	h := len(hull)
	forward, backward := true, true
	for m, k := range order {
		if k != (order[0]+m)%h {
			forward = false
		}
		if k != (order[0]-m+h)%h {
			backward = false
		}
	}
	return forward || backward
}

// cross returns the z component of (a-o) x (b-o).
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// convexHull returns the hull of points counter-clockwise without a
// closing point. IsConvex compares a region or seed ring against its hull,
// so collinear points are dropped.
func convexHull(points []orb.Point) []orb.Point {
	if len(points) < 3 {
		return append([]orb.Point(nil), points...)
	}

	sorted := append([]orb.Point(nil), points...)
	slices.SortFunc(sorted, func(a, b orb.Point) int {
		if c := cmp.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return cmp.Compare(a[1], b[1])
	})

	// Monotone chain: the lower chain left to right, then the upper chain
	// back, popping any vertex that is not a strict left turn.
	hull := make([]orb.Point, 0, 2*len(sorted))
	chain := func(p orb.Point, floor int) {
		for len(hull) >= floor && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	for _, p := range sorted {
		chain(p, 2)
	}
	floor := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		chain(sorted[i], floor)
	}
	return hull[:len(hull)-1]
}
