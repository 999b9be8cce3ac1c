package coverage

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// maxBisectionSteps caps the radical point search.
	maxBisectionSteps = 10000
	// maxRayDoublings caps how often the boundary rays may double in length
	// while trying to straddle the region's bounding box.
	maxRayDoublings = 200
)

// DiagramBuilder computes the power diagram of a set of weighted sites
// restricted to a convex region. Each cell is the region clipped, one
// neighbor at a time, by the half-plane on the site's side of the radical
// line it shares with that neighbor.
type DiagramBuilder struct {
	region  Polygon
	geo     Geometry
	clipper Clipper
}

// NewDiagramBuilder returns a builder for region using tolerance for every
// predicate and for the clipping lattice.
func NewDiagramBuilder(region Polygon, tolerance float64) *DiagramBuilder {
	return &DiagramBuilder{
		region:  region,
		geo:     NewGeometry(tolerance),
		clipper: NewClipper(tolerance),
	}
}

// Build returns one polygon per site. Cells that vanish are returned as the
// empty polygon.
func (b *DiagramBuilder) Build(ctx context.Context, centers []orb.Point, weights []float64) ([]Polygon, error) {
	if len(centers) != len(weights) {
		return nil, fmt.Errorf("%w: %d centers but %d weights", ErrConfiguration, len(centers), len(weights))
	}

	rings := make([][]orb.Point, len(centers))
	for i := range centers {
		ring, err := b.cell(ctx, i, centers, weights)
		if err != nil {
			return nil, err
		}
		rings[i] = ring
	}
	return b.cleanCovering(rings), nil
}

// cell clips the region against the half-plane of every other site.
func (b *DiagramBuilder) cell(ctx context.Context, i int, centers []orb.Point, weights []float64) ([]orb.Point, error) {
	ring := b.region.Vertices()
	for j := range centers {
		if j == i {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		quad, err := b.halfPlane(ctx, centers[i], centers[j], weights[i], weights[j])
		if err != nil {
			return nil, fmt.Errorf("site %d against site %d: %w", i, j, err)
		}
		ring = b.clipper.Intersect(ring, quad)
		if ring == nil {
			return nil, nil
		}
	}
	return ring, nil
}

// power returns the power distance of p from a site.
func power(center orb.Point, weight float64, p orb.Point) float64 {
	return planar.DistanceSquared(center, p) - weight
}

// radicalPoint searches the line through ci and cj for the point where both
// sites have equal power. The search starts at the midpoint and steps by an
// increment that halves whenever the sign of the power difference flips.
func (b *DiagramBuilder) radicalPoint(ctx context.Context, ci, cj orb.Point, wi, wj float64) (orb.Point, error) {
	t, inc := 0.5, 1.0
	pt := pointAlongLine(ci, cj, t)
	v1, v2 := power(ci, wi, pt), power(cj, wj, pt)
	if math.Abs(v2-v1) < b.geo.Tolerance {
		return pt, nil
	}
	if v1 > v2 {
		t -= inc
	} else {
		t += inc
	}
	prev1, prev2 := v1, v2

	for step := 0; step < maxBisectionSteps; step++ {
		if err := ctx.Err(); err != nil {
			return orb.Point{}, err
		}

		pt = pointAlongLine(ci, cj, t)
		v1, v2 = power(ci, wi, pt), power(cj, wj, pt)
		if math.Abs(v2-v1) < b.geo.Tolerance {
			break
		}

		switch {
		case v2 > v1 && prev2 > prev1:
			t += inc
			prev1, prev2 = v1, v2
		case v1 > v2 && prev1 > prev2:
			t -= inc
			prev1, prev2 = v1, v2
		case v2 > v1:
			inc /= 2
			t += inc
		default:
			inc /= 2
			t -= inc
		}
	}
	return pt, nil
}

// halfPlane returns a convex quadrilateral that covers the region's part of
// site i's side of the radical line between sites i and j.
func (b *DiagramBuilder) halfPlane(ctx context.Context, ci, cj orb.Point, wi, wj float64) ([]orb.Point, error) {
	dist := planar.Distance(ci, cj)
	if dist == 0 {
		return nil, fmt.Errorf("%w: coincident sites at (%g, %g)", ErrGeometry, ci[0], ci[1])
	}

	anchor, err := b.radicalPoint(ctx, ci, cj, wi, wj)
	if err != nil {
		return nil, err
	}

	bound := b.region.Bound()
	perp := perpDirection(ci, cj, dist)
	inc := 1.0
	for k := 0; k < maxRayDoublings; k++ {
		p1 := addPoints(anchor, scalePoint(perp, inc))
		p2 := addPoints(anchor, scalePoint(perp, -inc))

		var sideA, sideB []orb.Point
		switch {
		case straddles(p1[0], p2[0], bound.Min[0], bound.Max[0]):
			low := math.Min(bound.Min[1], math.Min(p1[1], p2[1])) - 1
			high := math.Max(bound.Max[1], math.Max(p1[1], p2[1])) + 1
			sideA = []orb.Point{{p1[0], low}, {p2[0], low}, p2, p1}
			sideB = []orb.Point{{p2[0], high}, {p1[0], high}, p1, p2}
		case straddles(p1[1], p2[1], bound.Min[1], bound.Max[1]):
			low := math.Min(bound.Min[0], math.Min(p1[0], p2[0])) - 1
			high := math.Max(bound.Max[0], math.Max(p1[0], p2[0])) + 1
			sideA = []orb.Point{{low, p1[1]}, {low, p2[1]}, p2, p1}
			sideB = []orb.Point{{high, p2[1]}, {high, p1[1]}, p1, p2}
		default:
			inc *= 2
			continue
		}

		onA := b.geo.Contains(Polygon{vertices: sideA}, ci)
		// A site dominated by its neighbor at its own center lies on the far
		// side of the radical line from its cell.
		if -wi > dist*dist-wj {
			onA = !onA
		}
		if onA {
			return sideA, nil
		}
		return sideB, nil
	}
	return nil, fmt.Errorf("%w: cannot resolve boundary between sites at (%g, %g) and (%g, %g)",
		ErrGeometry, ci[0], ci[1], cj[0], cj[1])
}

// straddles reports whether a and b lie strictly on opposite sides of the
// interval [lo, hi].
func straddles(a, b, lo, hi float64) bool {
	return math.Min(a, b) < lo && math.Max(a, b) > hi
}

// cleanCovering snaps vertices of different cells that lie within one
// lattice step of each other onto a single coordinate, cleans every cell
// and converts the rings to polygons.
func (b *DiagramBuilder) cleanCovering(rings [][]orb.Point) []Polygon {
	for i := range rings {
		for j := i + 1; j < len(rings); j++ {
			for k, q := range rings[j] {
				for _, p := range rings[i] {
					if q != p && b.clipper.Near(p, q) {
						rings[j][k] = p
						break
					}
				}
			}
		}
	}

	covering := make([]Polygon, len(rings))
	for i, ring := range rings {
		cleaned := b.clipper.Clean(ring)
		if cleaned == nil {
			continue
		}
		// A sliver that fails the polygon invariants counts as vanished.
		p, err := NewPolygon(cleaned)
		if err != nil {
			continue
		}
		covering[i] = p
	}
	return covering
}
