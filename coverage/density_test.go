package coverage

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(t *testing.T, size float64) Polygon {
	t.Helper()
	p, err := Rectangle(0, 0, size, size)
	require.NoError(t, err)
	return p
}

func TestNewDensityField_Validation(t *testing.T) {
	sq := square(t, 4)
	tests := []struct {
		name    string
		region  Polygon
		nx, ny  int
		values  []float64
		wantErr error
	}{
		{"empty region", Polygon{}, 2, 2, []float64{1, 1, 1, 1}, ErrConfiguration},
		{"non-convex region", MustPolygon(orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{1, 1}, orb.Point{0, 4}), 2, 2, []float64{1, 1, 1, 1}, ErrConfiguration},
		{"size mismatch", sq, 3, 3, []float64{1, 1, 1, 1}, ErrConfiguration},
		{"single row", sq, 1, 4, []float64{1, 1, 1, 1}, ErrConfiguration},
		{"values for empty grid", sq, 0, 0, []float64{1}, ErrConfiguration},
		{"negative value", sq, 2, 2, []float64{1, -1, 1, 1}, ErrConfiguration},
		{"valid", sq, 2, 2, []float64{1, 1, 1, 1}, nil},
		{"unset", sq, 0, 0, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDensityField(tt.region, tt.nx, tt.ny, tt.values, 1e-7)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDensityField_Unset(t *testing.T) {
	d, err := NewDensityField(square(t, 4), 0, 0, nil, 1e-7)
	require.NoError(t, err)
	assert.False(t, d.Prepared())

	_, err = d.WeightedArea(square(t, 1))
	assert.ErrorIs(t, err, ErrUnpreparedField)
	_, err = d.Centroid(square(t, 1), 0.5)
	assert.ErrorIs(t, err, ErrUnpreparedField)
	_, err = d.LineIntegral(0.1, orb.Point{0, 0}, orb.Point{1, 1})
	assert.ErrorIs(t, err, ErrUnpreparedField)
	_, err = d.Value(orb.Point{1, 1})
	assert.ErrorIs(t, err, ErrUnpreparedField)

	require.NoError(t, d.SetValues(2, 2, []float64{1, 1, 1, 1}))
	assert.True(t, d.Prepared())
	area, err := d.WeightedArea(d.Region())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, area, 1e-12)
}

func TestDensityField_UniformRegionIntegratesToOne(t *testing.T) {
	for _, n := range []int{2, 5, 17} {
		d, err := UniformDensity(square(t, 4), n, n, 1e-7)
		require.NoError(t, err)

		area, err := d.WeightedArea(d.Region())
		require.NoError(t, err)
		assert.InDelta(t, 1.0, area, 1e-9, "grid %dx%d", n, n)
		assert.InDelta(t, 16.0, d.UnweightedArea(), 1e-9)
	}
}

func TestDensityField_NonUniformIntegratesToOne(t *testing.T) {
	// f(x, y) = 1 + x on a 3x3 grid over [0,2]^2
	values := []float64{
		1, 1, 1, // x = 0
		2, 2, 2, // x = 1
		3, 3, 3, // x = 2
	}
	d, err := NewDensityField(square(t, 2), 3, 3, values, 1e-7)
	require.NoError(t, err)

	area, err := d.WeightedArea(d.Region())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, area, 1e-12)

	// Integral of 1+x over [0,2]^2 is 8, x-moment is 28/3.
	c, err := d.Centroid(d.Region(), area)
	require.NoError(t, err)
	assert.InDelta(t, (28.0/3)/8, c[0], 1e-12)
	assert.InDelta(t, 1.0, c[1], 1e-12)

	// Left half: integral of 1+x over [0,1]x[0,2] is 3.
	left, err := Rectangle(0, 0, 1, 2)
	require.NoError(t, err)
	a, err := d.WeightedArea(left)
	require.NoError(t, err)
	assert.InDelta(t, 3.0/8, a, 1e-12)
}

func TestDensityField_BilinearCellMoments(t *testing.T) {
	// A single cell whose corners differ in both directions exercises the
	// cross term of the surface.
	values := []float64{0, 1, 2, 5} // v00, v01, v10, v11
	d, err := NewDensityField(square(t, 1), 2, 2, values, 1e-7)
	require.NoError(t, err)

	v, err := d.Value(orb.Point{0.5, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)

	// The fitted surface reproduces every corner.
	s := d.coef[0]
	assert.InDelta(t, 0.0, s.at(0, 0), 1e-12)
	assert.InDelta(t, 1.0, s.at(0, 1), 1e-12)
	assert.InDelta(t, 2.0, s.at(1, 0), 1e-12)
	assert.InDelta(t, 5.0, s.at(1, 1), 1e-12)

	// f = 2x + y + 2xy: integral 2, x-moment 5/4, y-moment 7/6.
	c, err := d.Centroid(d.Region(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/8, c[0], 1e-12)
	assert.InDelta(t, 7.0/12, c[1], 1e-12)
}

func TestDensityField_ZeroSupportFallsBackToUniform(t *testing.T) {
	d, err := NewDensityField(square(t, 4), 3, 3, make([]float64, 9), 1e-7)
	require.NoError(t, err)

	area, err := d.WeightedArea(d.Region())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, area, 1e-12)

	v, err := d.Value(orb.Point{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/16, v, 1e-12)
}

func TestDensityField_ConservativeCoverage(t *testing.T) {
	d, err := UniformDensity(square(t, 4), 5, 5, 1e-7)
	require.NoError(t, err)

	// Only the cell [1,2]x[1,2] has all four corners inside.
	p, err := Rectangle(0.5, 0.5, 2.5, 2.5)
	require.NoError(t, err)
	area, err := d.WeightedArea(p)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/16, area, 1e-12)

	c, err := d.Centroid(p, area)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, c[0], 1e-12)
	assert.InDelta(t, 1.5, c[1], 1e-12)
}

func TestDensityField_BoundaryNodesOnInexactGridLines(t *testing.T) {
	d := uniformField(t, 4, 21)

	tests := []struct {
		right float64
		want  float64
	}{
		{0.8, 0.2},
		{1.2, 0.3},
		{1.4, 0.35},
		{2.0, 0.5},
	}
	for _, tt := range tests {
		strip, err := Rectangle(0, 0, tt.right, 4)
		require.NoError(t, err)

		area, err := d.WeightedArea(strip)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, area, 1e-9, "strip to x=%g", tt.right)

		c, err := d.Centroid(strip, area)
		require.NoError(t, err)
		assert.InDelta(t, tt.right/2, c[0], 1e-9, "strip to x=%g", tt.right)
	}
}

func TestDensityField_SetValuesFailureKeepsField(t *testing.T) {
	tri := MustPolygon(orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{0, 4})
	d, err := NewDensityField(tri, 3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}, 1e-7)
	require.NoError(t, err)
	before, err := d.WeightedArea(tri)
	require.NoError(t, err)

	// The single cell of a 2x2 grid has its (4, 4) corner outside.
	err = d.SetValues(2, 2, []float64{1, 1, 1, 1})
	require.ErrorIs(t, err, ErrConfiguration)

	nx, ny := d.GridSize()
	assert.Equal(t, 3, nx)
	assert.Equal(t, 3, ny)
	assert.True(t, d.Prepared())
	assert.InDelta(t, 4.0, d.UnweightedArea(), 1e-12)

	after, err := d.WeightedArea(tri)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDensityField_LowerBound(t *testing.T) {
	d, err := UniformDensity(square(t, 4), 5, 5, 1e-7)
	require.NoError(t, err)
	bounded := d.WithLowerBound(1e-3)

	tiny, err := Rectangle(0.1, 0.1, 0.2, 0.2)
	require.NoError(t, err)

	area, err := bounded.WeightedArea(tiny)
	require.NoError(t, err)
	assert.Equal(t, 1e-3, area)

	c, err := bounded.Centroid(tiny, area)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{0.1, 0.1}, c, "placeholder is the bounding box corner")

	area, err = bounded.WeightedArea(Polygon{})
	require.NoError(t, err)
	assert.Equal(t, 1e-3, area)

	assert.Zero(t, d.LowerBound(), "unbounded field is unchanged")
	_, err = d.Centroid(Polygon{}, 1)
	assert.ErrorIs(t, err, ErrGeometry)
}

func TestDensityField_LineIntegral(t *testing.T) {
	d, err := NewDensityField(square(t, 4), 2, 2, []float64{3, 3, 3, 3}, 1e-7)
	require.NoError(t, err)

	// Uniform value times length.
	for _, spacing := range []float64{1, 0.1, 0.3, 0.07} {
		got, err := d.LineIntegral(spacing, orb.Point{0, 0}, orb.Point{3, 4})
		require.NoError(t, err)
		assert.InDelta(t, 15.0, got, 1e-9, "spacing %g", spacing)
	}

	_, err = d.LineIntegral(0, orb.Point{0, 0}, orb.Point{1, 1})
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = d.LineIntegral(1.5, orb.Point{0, 0}, orb.Point{1, 1})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDensityField_LineIntegralLinear(t *testing.T) {
	// f = 1 + x is exact under the trapezoid rule.
	values := []float64{1, 1, 2, 2, 3, 3}
	region, err := Rectangle(0, 0, 2, 1)
	require.NoError(t, err)
	d, err := NewDensityField(region, 3, 2, values, 1e-7)
	require.NoError(t, err)

	got, err := d.LineIntegral(0.25, orb.Point{0, 0.5}, orb.Point{2, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, got, 1e-12)
}

func TestDensityField_ValueClampsToUpperEdge(t *testing.T) {
	values := []float64{1, 1, 2, 2, 3, 3}
	region, err := Rectangle(0, 0, 2, 1)
	require.NoError(t, err)
	d, err := NewDensityField(region, 3, 2, values, 1e-7)
	require.NoError(t, err)

	v, err := d.Value(orb.Point{2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-12)

	v, err = d.Value(orb.Point{1.5, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-12)
}
