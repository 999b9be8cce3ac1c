package coverage

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// noPoint marks a missing endpoint of a shared edge.
var noPoint = orb.Point{math.Inf(1), math.Inf(1)}

// SharedEdge is the boundary segment two cells have in common. A pair of
// cells that only touch at a point has B set to the sentinel, and a pair
// that does not touch has both endpoints set to it.
type SharedEdge struct {
	A, B orb.Point
}

// HasSegment reports whether both endpoints are finite.
func (e SharedEdge) HasSegment() bool {
	return isFinite(e.A) && isFinite(e.B)
}

func noEdge() SharedEdge {
	return SharedEdge{A: noPoint, B: noPoint}
}

// DualGraph records, for every pair of cells of a covering, the edge they
// share. Entries are stored in a flat n*n slice and kept symmetric.
type DualGraph struct {
	n     int
	edges []SharedEdge
}

// NewDualGraph returns a graph over n cells with no shared edges.
func NewDualGraph(n int) *DualGraph {
	g := &DualGraph{n: n, edges: make([]SharedEdge, n*n)}
	g.reset()
	return g
}

func (g *DualGraph) reset() {
	for i := range g.edges {
		g.edges[i] = noEdge()
	}
}

// Len returns the number of cells.
func (g *DualGraph) Len() int { return g.n }

// Edge returns the edge shared by cells i and j.
func (g *DualGraph) Edge(i, j int) SharedEdge {
	return g.edges[i*g.n+j]
}

func (g *DualGraph) set(i, j int, e SharedEdge) {
	g.edges[i*g.n+j] = e
	g.edges[j*g.n+i] = e
}

// Neighbors returns the cells that share a segment with cell i, in index
// order.
func (g *DualGraph) Neighbors(i int) []int {
	var out []int
	for j := 0; j < g.n; j++ {
		if j != i && g.Edge(i, j).HasSegment() {
			out = append(out, j)
		}
	}
	return out
}

// EdgeCount returns the number of unordered cell pairs sharing a segment.
func (g *DualGraph) EdgeCount() int {
	count := 0
	for i := 0; i < g.n; i++ {
		for j := i + 1; j < g.n; j++ {
			if g.Edge(i, j).HasSegment() {
				count++
			}
		}
	}
	return count
}

// Build recomputes every entry from covering. Two edges qualify as shared
// when both endpoints of cell j's edge are collinear with cell i's edge; the
// first qualifying pair with a two-point overlap wins.
func (g *DualGraph) Build(geo Geometry, covering []Polygon) error {
	if len(covering) != g.n {
		return fmt.Errorf("%w: dual graph has %d cells but covering has %d", ErrGeometry, g.n, len(covering))
	}
	g.reset()

	for i := 0; i < g.n; i++ {
		pi := covering[i].vertices
		for j := i + 1; j < g.n; j++ {
			pj := covering[j].vertices
			g.scanPair(geo, i, j, pi, pj)
		}
	}
	return nil
}

func (g *DualGraph) scanPair(geo Geometry, i, j int, pi, pj []orb.Point) {
	for k := range pi {
		a, b := pi[k], pi[(k+1)%len(pi)]
		for m := range pj {
			c, d := pj[m], pj[(m+1)%len(pj)]
			if !geo.AreCollinear(a, b, c) || !geo.AreCollinear(a, b, d) {
				continue
			}

			overlap := geo.CollinearIntersection(a, b, c, d)
			switch len(overlap) {
			case 0:
				g.set(i, j, noEdge())
			case 1:
				g.set(i, j, SharedEdge{A: overlap[0], B: noPoint})
			default:
				g.set(i, j, SharedEdge{A: overlap[0], B: overlap[1]})
				return
			}
		}
	}
}
