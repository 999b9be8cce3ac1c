package coverage

import (
	"fmt"
	"log"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/floats"
)

const (
	// defaultOffset is how far default centers start from the region's
	// first edge.
	defaultOffset = 0.01
	// maxOffsetHalvings bounds the search for interior default centers.
	maxOffsetHalvings = 10
)

// Partition splits a convex region into n cells whose density-weighted
// areas approach the desired fractions while each center approaches its
// cell's centroid.
//
// A Partition owns its sites, covering and dual graph and is not safe for
// concurrent use. The density field may be shared.
type Partition struct {
	n       int
	density *DensityField
	desired []float64
	params  Parameters
	geo     Geometry

	builder *DiagramBuilder
	graph   *DualGraph

	centers  []orb.Point
	weights  []float64
	covering []Polygon

	handler     IterationHandler
	initialized bool
}

// NewPartition validates its inputs and returns an engine for n cells.
// desired may be empty for equal cells; otherwise it needs one entry per
// cell, each above the parameters' volume lower bound, and is renormalized
// to sum to 1.
func NewPartition(n int, density *DensityField, desired []float64, params Parameters) (*Partition, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: region count must not be negative, got %d", ErrConfiguration, n)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if density == nil || !density.Prepared() {
		return nil, fmt.Errorf("partition needs density values: %w", ErrUnpreparedField)
	}

	areas, err := normalizeDesired(n, desired, params.VolumeLowerBound)
	if err != nil {
		return nil, err
	}

	region := density.Region()
	return &Partition{
		n:       n,
		density: density.WithLowerBound(params.VolumeLowerBound),
		desired: areas,
		params:  params,
		geo:     NewGeometry(params.RobustnessTolerance),
		builder: NewDiagramBuilder(region, params.RobustnessTolerance),
		graph:   NewDualGraph(n),
	}, nil
}

// normalizeDesired applies the defaulting and renormalization rules for
// desired areas.
func normalizeDesired(n int, desired []float64, lowerBound float64) ([]float64, error) {
	if len(desired) == 0 {
		if n == 0 {
			return nil, nil
		}
		share := 1 / float64(n)
		if share <= lowerBound {
			return nil, fmt.Errorf("%w: equal share %g of %d regions is not above the lower bound %g",
				ErrConfiguration, share, n, lowerBound)
		}
		areas := make([]float64, n)
		for i := range areas {
			areas[i] = share
		}
		return areas, nil
	}

	if len(desired) != n {
		return nil, fmt.Errorf("%w: %d desired areas for %d regions", ErrConfiguration, len(desired), n)
	}
	for i, a := range desired {
		if !(a > lowerBound) || math.IsInf(a, 0) {
			return nil, fmt.Errorf("%w: desired area %d is %g, must be above %g", ErrConfiguration, i, a, lowerBound)
		}
	}

	areas := make([]float64, n)
	copy(areas, desired)
	sum := floats.Sum(areas)
	if math.Abs(sum-1) > 1e-12 {
		log.Printf("Warning: desired areas sum to %g, renormalizing", sum)
		floats.Scale(1/sum, areas)
		for i, a := range areas {
			if a <= lowerBound {
				return nil, fmt.Errorf("%w: renormalized desired area %d is %g, must be above %g",
					ErrConfiguration, i, a, lowerBound)
			}
		}
	}
	return areas, nil
}

// Initialize seeds the sites. Empty centers are replaced by default
// centers spaced along the region's first edge; empty weights default to 0.
// Explicit centers must be distinct and lie inside the region.
func (p *Partition) Initialize(centers []orb.Point, weights []float64) error {
	region := p.density.Region()

	if len(centers) == 0 {
		var err error
		centers, err = defaultCenters(p.geo, region, p.n)
		if err != nil {
			return err
		}
	} else {
		if len(centers) != p.n {
			return fmt.Errorf("%w: %d centers for %d regions", ErrConfiguration, len(centers), p.n)
		}
		for i, c := range centers {
			if !isFinite(c) || !p.geo.Contains(region, c) {
				return fmt.Errorf("%w: center %d at (%g, %g) is outside the region", ErrConfiguration, i, c[0], c[1])
			}
			for j := 0; j < i; j++ {
				if centers[j] == c {
					return fmt.Errorf("%w: centers %d and %d coincide", ErrConfiguration, j, i)
				}
			}
		}
	}

	switch {
	case len(weights) == 0:
		weights = make([]float64, p.n)
	case len(weights) != p.n:
		return fmt.Errorf("%w: %d weights for %d regions", ErrConfiguration, len(weights), p.n)
	}

	p.centers = append([]orb.Point(nil), centers...)
	p.weights = append([]float64(nil), weights...)
	p.covering = make([]Polygon, p.n)
	p.initialized = true
	return nil
}

// defaultCenters places n points evenly along the region's first edge,
// offset toward the interior. The offset halves until every point tests
// inside.
func defaultCenters(geo Geometry, region Polygon, n int) ([]orb.Point, error) {
	verts := region.vertices
	p1, p2 := verts[0], verts[1]
	mid := pointAlongLine(p1, p2, 0.5)

	offset := defaultOffset
	for attempt := 0; attempt <= maxOffsetHalvings; attempt++ {
		perp := perpDirection(p1, p2, offset)
		if !geo.Contains(region, addPoints(mid, perp)) {
			perp = scalePoint(perp, -1)
		}

		centers := make([]orb.Point, n)
		inside := true
		for k := range centers {
			c := addPoints(pointAlongLine(p1, p2, float64(k+1)/float64(n+1)), perp)
			if !geo.Contains(region, c) {
				inside = false
				break
			}
			centers[k] = c
		}
		if inside {
			return centers, nil
		}
		offset /= 2
	}
	return nil, fmt.Errorf("%w: could not place %d default centers inside the region", ErrAlgorithm, n)
}

// SetHandler registers h to be called after every diagram rebuild. A nil
// handler disables notifications.
func (p *Partition) SetHandler(h IterationHandler) {
	p.handler = h
}

// Len returns the number of cells.
func (p *Partition) Len() int { return p.n }

// Parameters returns the validated parameters.
func (p *Partition) Parameters() Parameters { return p.params }

// Density returns the field areas are measured against.
func (p *Partition) Density() *DensityField { return p.density }

// DesiredAreas returns a copy of the normalized desired areas.
func (p *Partition) DesiredAreas() []float64 {
	return append([]float64(nil), p.desired...)
}

// Centers returns a copy of the current centers.
func (p *Partition) Centers() []orb.Point {
	return append([]orb.Point(nil), p.centers...)
}

// Weights returns a copy of the current weights.
func (p *Partition) Weights() []float64 {
	return append([]float64(nil), p.weights...)
}

// Covering returns the current cells. Polygons are immutable values, so
// the slice is a shallow copy.
func (p *Partition) Covering() []Polygon {
	return append([]Polygon(nil), p.covering...)
}

// DualGraph returns the adjacency of the current covering as of the last
// build.
func (p *Partition) DualGraph() *DualGraph { return p.graph }
