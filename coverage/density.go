package coverage

import (
	"fmt"
	"log"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DensityField is a density function sampled on a regular Nx by Ny lattice
// spanning the bounding box of a convex region. The value of grid node
// (i, j) is Values[i*Ny+j], where i indexes x and j indexes y.
//
// When values are set the field is preprocessed once: every grid cell gets
// a bilinear surface a*x + b*y + c*x*y + d fitted to its corners, and the
// exact integrals of f, x*f and y*f over the cell. Those integrals are
// normalized so the cells lying entirely inside the region sum to 1. Area
// and centroid queries then reduce to sums over cached cell moments.
//
// After preprocessing the field is read-only and may be shared between
// goroutines.
type DensityField struct {
	region Polygon
	geo    Geometry

	nx, ny int
	dx, dy float64
	origin orb.Point
	values []float64

	coef     []bilinear    // per cell, (nx-1)*(ny-1), cell (i, j) at i*(ny-1)+j
	cells    []cellMoments // per cell, normalized
	inRegion []bool        // per grid node

	unweightedArea float64
	lowerBound     float64
}

// bilinear holds the coefficients of a*x + b*y + c*x*y + d in world
// coordinates.
type bilinear struct {
	a, b, c, d float64
}

func (s bilinear) at(x, y float64) float64 {
	return s.a*x + s.b*y + s.c*x*y + s.d
}

// cellMoments holds the integral of the density over one cell and its
// first moments along x and y.
type cellMoments struct {
	mass, wx, wy float64
}

// NewDensityField returns a field over region. With nx = ny = 0 and no
// values the field is created unset and every query fails with
// ErrUnpreparedField until SetValues is called.
func NewDensityField(region Polygon, nx, ny int, values []float64, tolerance float64) (*DensityField, error) {
	if region.IsEmpty() {
		return nil, fmt.Errorf("%w: density region is empty", ErrConfiguration)
	}
	if !region.IsConvex() {
		return nil, fmt.Errorf("%w: density region must be convex", ErrConfiguration)
	}
	if tolerance <= 0 {
		return nil, fmt.Errorf("%w: tolerance must be greater than 0, got %g", ErrConfiguration, tolerance)
	}

	b := region.Bound()
	d := &DensityField{
		region: region,
		geo:    NewGeometry(tolerance),
		origin: b.Min,
	}
	if err := d.SetValues(nx, ny, values); err != nil {
		return nil, err
	}
	return d, nil
}

// UniformDensity returns a field of constant density over region sampled
// on an nx by ny grid.
func UniformDensity(region Polygon, nx, ny int, tolerance float64) (*DensityField, error) {
	values := make([]float64, nx*ny)
	for i := range values {
		values[i] = 1
	}
	return NewDensityField(region, nx, ny, values, tolerance)
}

// SetValues replaces the samples and reruns preprocessing.
func (d *DensityField) SetValues(nx, ny int, values []float64) error {
	if nx == 0 || ny == 0 {
		if len(values) != 0 {
			return fmt.Errorf("%w: %d density values given for an empty grid", ErrConfiguration, len(values))
		}
		d.nx, d.ny, d.dx, d.dy = 0, 0, 0, 0
		d.values, d.coef, d.cells, d.inRegion = nil, nil, nil, nil
		d.unweightedArea = 0
		return nil
	}
	if nx < 2 || ny < 2 {
		return fmt.Errorf("%w: density grid needs at least 2 nodes per axis, got %dx%d", ErrConfiguration, nx, ny)
	}
	if nx*ny != len(values) {
		return fmt.Errorf("%w: density grid %dx%d needs %d values, got %d", ErrConfiguration, nx, ny, nx*ny, len(values))
	}
	for i, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: density value %d is %g", ErrConfiguration, i, v)
		}
	}

	// Work on a copy so a failed preprocessing pass leaves d unchanged.
	next := *d
	b := next.region.Bound()
	next.nx, next.ny = nx, ny
	next.dx = (b.Max[0] - b.Min[0]) / float64(nx-1)
	next.dy = (b.Max[1] - b.Min[1]) / float64(ny-1)
	next.values = make([]float64, len(values))
	copy(next.values, values)

	next.inRegion = make([]bool, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			next.inRegion[i*ny+j] = next.geo.Contains(next.region, next.node(i, j))
		}
	}
	if err := next.preprocess(); err != nil {
		return err
	}
	*d = next
	return nil
}

// preprocess fits the per-cell surfaces, integrates them and normalizes the
// integrals over the region.
func (d *DensityField) preprocess() error {
	d.fitCells()
	total := d.integrateCells()

	if d.unweightedArea == 0 {
		return fmt.Errorf("%w: no density grid cell lies inside the region, increase the grid resolution", ErrConfiguration)
	}
	if total <= 0 {
		log.Printf("Warning: density values have no support inside the region, treating density as uniform")
		for i := range d.values {
			d.values[i] = 1 / d.unweightedArea
		}
		d.fitCells()
		total = d.integrateCells()
	}

	for i := range d.cells {
		d.cells[i].mass /= total
		d.cells[i].wx /= total
		d.cells[i].wy /= total
	}
	return nil
}

// fitCells solves the bilinear surface of every cell from its corners.
func (d *DensityField) fitCells() {
	cx, cy := d.nx-1, d.ny-1
	d.coef = make([]bilinear, cx*cy)
	for i := 0; i < cx; i++ {
		for j := 0; j < cy; j++ {
			p := d.node(i, j)
			v00 := d.values[i*d.ny+j]
			v10 := d.values[(i+1)*d.ny+j]
			v01 := d.values[i*d.ny+j+1]
			v11 := d.values[(i+1)*d.ny+j+1]

			eta := (v10 - v00) / d.dx
			xi := (v01 - v00) / d.dy
			gamma := (v11 - v10 - v01 + v00) / (d.dx * d.dy)

			d.coef[i*cy+j] = bilinear{
				a: eta - gamma*p[1],
				b: xi - gamma*p[0],
				c: gamma,
				d: v00 - eta*p[0] - xi*p[1] + gamma*p[0]*p[1],
			}
		}
	}
}

// integrateCells computes the exact cell integrals and returns the total
// over cells whose four corners lie inside the region.
func (d *DensityField) integrateCells() float64 {
	cx, cy := d.nx-1, d.ny-1
	d.cells = make([]cellMoments, cx*cy)
	d.unweightedArea = 0

	var total float64
	for i := 0; i < cx; i++ {
		for j := 0; j < cy; j++ {
			lo, hi := d.node(i, j), d.node(i+1, j+1)
			w, h := hi[0]-lo[0], hi[1]-lo[1]
			x1 := hi[0]*hi[0] - lo[0]*lo[0]
			x2 := hi[0]*hi[0]*hi[0] - lo[0]*lo[0]*lo[0]
			y1 := hi[1]*hi[1] - lo[1]*lo[1]
			y2 := hi[1]*hi[1]*hi[1] - lo[1]*lo[1]*lo[1]

			s := d.coef[i*cy+j]
			m := cellMoments{
				mass: s.d*w*h + s.a*h*x1/2 + s.b*w*y1/2 + s.c*x1*y1/4,
				wx:   s.d*h*x1/2 + s.a*h*x2/3 + s.b*x1*y1/4 + s.c*x2*y1/6,
				wy:   s.d*w*y1/2 + s.a*x1*y1/4 + s.b*w*y2/3 + s.c*x1*y2/6,
			}
			d.cells[i*cy+j] = m

			if d.inRegion[i*d.ny+j] && d.inRegion[(i+1)*d.ny+j] &&
				d.inRegion[i*d.ny+j+1] && d.inRegion[(i+1)*d.ny+j+1] {
				total += m.mass
				d.unweightedArea += w * h
			}
		}
	}
	return total
}

// node returns the world position of grid node (i, j).
func (d *DensityField) node(i, j int) orb.Point {
	return orb.Point{d.origin[0] + float64(i)*d.dx, d.origin[1] + float64(j)*d.dy}
}

// Prepared reports whether values have been set.
func (d *DensityField) Prepared() bool { return len(d.values) > 0 }

// Region returns the region the field is defined over.
func (d *DensityField) Region() Polygon { return d.region }

// Geometry returns the predicate context used for containment tests.
func (d *DensityField) Geometry() Geometry { return d.geo }

// GridSize returns the number of grid nodes along x and y.
func (d *DensityField) GridSize() (nx, ny int) { return d.nx, d.ny }

// UnweightedArea returns the plain area of the grid cells lying entirely
// inside the region.
func (d *DensityField) UnweightedArea() float64 { return d.unweightedArea }

// LowerBound returns the floor applied to weighted areas.
func (d *DensityField) LowerBound() float64 { return d.lowerBound }

// WithLowerBound returns a view of the field that clamps weighted areas to
// at least bound. The preprocessed data is shared, not copied.
func (d *DensityField) WithLowerBound(bound float64) *DensityField {
	c := *d
	c.lowerBound = bound
	return &c
}

// Value returns the bilinearly interpolated density at p. Points on or
// beyond the upper grid edge use the last cell.
func (d *DensityField) Value(p orb.Point) (float64, error) {
	if !d.Prepared() {
		return 0, ErrUnpreparedField
	}
	return d.interpolate(p), nil
}

func (d *DensityField) interpolate(p orb.Point) float64 {
	i, xr := cellOffset(p[0]-d.origin[0], d.dx, d.nx)
	j, ys := cellOffset(p[1]-d.origin[1], d.dy, d.ny)

	v00 := d.values[i*d.ny+j]
	v10 := d.values[(i+1)*d.ny+j]
	v01 := d.values[i*d.ny+j+1]
	v11 := d.values[(i+1)*d.ny+j+1]

	return v00*(1-xr)*(1-ys) + v10*xr*(1-ys) + v01*(1-xr)*ys + v11*xr*ys
}

// cellOffset locates offset within a lattice of n nodes spaced step apart
// and returns the lower node index of the enclosing cell plus the
// fractional position inside it, both clamped to the grid.
func cellOffset(offset, step float64, n int) (int, float64) {
	i := int(math.Floor(offset / step))
	switch {
	case i < 0:
		return 0, 0
	case i >= n-1:
		return n - 2, 1
	}
	f := (offset - float64(i)*step) / step
	return i, math.Min(math.Max(f, 0), 1)
}

// coveredCells calls fn with the index of every grid cell whose four
// corners lie inside both the region and poly. This is a conservative
// classification: cells cut by the polygon boundary do not contribute.
func (d *DensityField) coveredCells(poly Polygon, fn func(cell int)) {
	b := poly.Bound()
	iLo, iHi := nodeRange(b.Min[0]-d.origin[0], b.Max[0]-d.origin[0], d.dx, d.nx)
	jLo, jHi := nodeRange(b.Min[1]-d.origin[1], b.Max[1]-d.origin[1], d.dy, d.ny)
	if iLo > iHi || jLo > jHi {
		return
	}

	w := jHi - jLo + 1
	inside := make([]bool, (iHi-iLo+1)*w)
	for i := iLo; i <= iHi; i++ {
		for j := jLo; j <= jHi; j++ {
			p := d.node(i, j)
			k := (i-iLo)*w + (j - jLo)
			inside[k] = d.inRegion[i*d.ny+j] && d.geo.Contains(poly, p)
			if inside[k] && i > iLo && j > jLo && inside[k-1] && inside[k-w] && inside[k-w-1] {
				fn((i-1)*(d.ny-1) + (j - 1))
			}
		}
	}
}

// nodeRange returns the inclusive range of node indices whose positions
// may fall within [lo, hi], with one node of slack on each side.
func nodeRange(lo, hi, step float64, n int) (int, int) {
	first := int(math.Floor(lo/step)) - 1
	last := int(math.Ceil(hi/step)) + 1
	if first < 0 {
		first = 0
	}
	if last > n-1 {
		last = n - 1
	}
	return first, last
}

// WeightedArea returns the integral of the normalized density over poly.
// Results below the lower bound, including the empty polygon, are
// returned as the lower bound.
func (d *DensityField) WeightedArea(poly Polygon) (float64, error) {
	if !d.Prepared() {
		return 0, ErrUnpreparedField
	}
	if poly.IsEmpty() {
		return d.lowerBound, nil
	}

	var sum float64
	d.coveredCells(poly, func(cell int) {
		sum += d.cells[cell].mass
	})
	if sum < d.lowerBound {
		return d.lowerBound, nil
	}
	return sum, nil
}

// Centroid returns the density-weighted centroid of poly given its
// weighted area. When volume is at or below the lower bound the lower-left
// corner of the polygon's bounding box is returned as a placeholder.
func (d *DensityField) Centroid(poly Polygon, volume float64) (orb.Point, error) {
	if !d.Prepared() {
		return orb.Point{}, ErrUnpreparedField
	}
	if poly.IsEmpty() {
		return orb.Point{}, fmt.Errorf("%w: centroid of an empty polygon", ErrGeometry)
	}
	if volume <= d.lowerBound {
		return poly.Bound().Min, nil
	}

	var sx, sy float64
	d.coveredCells(poly, func(cell int) {
		sx += d.cells[cell].wx
		sy += d.cells[cell].wy
	})
	return orb.Point{sx / volume, sy / volume}, nil
}

// LineIntegral integrates the interpolated density along the segment from
// p1 to p2 with the composite trapezoid rule. spacing is the step as a
// fraction of the segment and must lie in (0,1].
func (d *DensityField) LineIntegral(spacing float64, p1, p2 orb.Point) (float64, error) {
	if !d.Prepared() {
		return 0, ErrUnpreparedField
	}
	if spacing <= 0 || spacing > 1 {
		return 0, fmt.Errorf("%w: line integral spacing must be in (0,1], got %g", ErrConfiguration, spacing)
	}

	steps := int(math.Ceil(1/spacing - 1e-9))
	var sum float64
	prevT, prev := 0.0, d.interpolate(p1)
	for k := 1; k <= steps; k++ {
		t := math.Min(float64(k)*spacing, 1)
		if k == steps {
			t = 1
		}
		cur := d.interpolate(pointAlongLine(p1, p2, t))
		sum += (prev + cur) / 2 * (t - prevT)
		prevT, prev = t, cur
	}
	return sum * planar.Distance(p1, p2), nil
}
