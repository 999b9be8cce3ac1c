package coverage

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var geo = NewGeometry(1e-7)

func unitSquare() Polygon {
	return MustPolygon(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{1, 1}, orb.Point{0, 1})
}

func TestContains_UnitSquare(t *testing.T) {
	sq := unitSquare()
	tests := []struct {
		name string
		p    orb.Point
		want bool
	}{
		{"center", orb.Point{0.5, 0.5}, true},
		{"far outside", orb.Point{2, 2}, false},
		{"edge midpoint", orb.Point{0.5, 0}, true},
		{"corner", orb.Point{1, 1}, true},
		{"left edge", orb.Point{0, 0.3}, true},
		{"just outside", orb.Point{1.001, 0.5}, false},
		{"below", orb.Point{0.5, -0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, geo.Contains(sq, tt.p))
		})
	}
}

func TestContains_EmptyPolygon(t *testing.T) {
	assert.False(t, geo.Contains(Polygon{}, orb.Point{0, 0}))
}

func TestContains_Triangle(t *testing.T) {
	tri := MustPolygon(orb.Point{0, 0}, orb.Point{4, 0}, orb.Point{0, 4})
	assert.True(t, geo.Contains(tri, orb.Point{1, 1}))
	assert.True(t, geo.Contains(tri, orb.Point{2, 2}), "hypotenuse midpoint")
	assert.False(t, geo.Contains(tri, orb.Point{3, 3}))
}

func TestPerpDistanceToLine(t *testing.T) {
	assert.InDelta(t, 2.0, geo.PerpDistanceToLine(orb.Point{0, 0}, orb.Point{5, 0}, orb.Point{3, 2}), 1e-12)
	assert.InDelta(t, 3.0, geo.PerpDistanceToLine(orb.Point{1, 0}, orb.Point{1, 5}, orb.Point{4, 9}), 1e-12)
	assert.InDelta(t, math.Sqrt2, geo.PerpDistanceToLine(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{2, 0}), 1e-12)
}

func TestAreCollinear(t *testing.T) {
	assert.True(t, geo.AreCollinear(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{3, 3}))
	assert.True(t, geo.AreCollinear(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{-2, -2}))
	assert.False(t, geo.AreCollinear(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{3, 2}))
	assert.True(t, geo.AreCollinear(orb.Point{1, 1}, orb.Point{1, 1}, orb.Point{1, 1}))
}

func TestAreBetween(t *testing.T) {
	a, b := orb.Point{0, 0}, orb.Point{4, 0}
	assert.True(t, geo.AreBetween(a, b, orb.Point{2, 0}))
	assert.True(t, geo.AreBetween(a, b, a))
	assert.True(t, geo.AreBetween(a, b, b))
	assert.False(t, geo.AreBetween(a, b, orb.Point{5, 0}))
	assert.False(t, geo.AreBetween(a, b, orb.Point{-1, 0}), "behind the start")
	assert.False(t, geo.AreBetween(a, b, orb.Point{2, 1}))
}

func TestCollinearIntersection(t *testing.T) {
	tests := []struct {
		name           string
		p1, p2, p3, p4 orb.Point
		want           []orb.Point
	}{
		{
			name: "identical reversed",
			p1:   orb.Point{2, 0}, p2: orb.Point{2, 4},
			p3: orb.Point{2, 4}, p4: orb.Point{2, 0},
			want: []orb.Point{{2, 4}, {2, 0}},
		},
		{
			name: "partial overlap",
			p1:   orb.Point{0, 0}, p2: orb.Point{4, 0},
			p3: orb.Point{2, 0}, p4: orb.Point{6, 0},
			want: []orb.Point{{2, 0}, {4, 0}},
		},
		{
			name: "contained",
			p1:   orb.Point{0, 0}, p2: orb.Point{4, 0},
			p3: orb.Point{1, 0}, p4: orb.Point{3, 0},
			want: []orb.Point{{1, 0}, {3, 0}},
		},
		{
			name: "containing",
			p1:   orb.Point{1, 0}, p2: orb.Point{3, 0},
			p3: orb.Point{0, 0}, p4: orb.Point{4, 0},
			want: []orb.Point{{1, 0}, {3, 0}},
		},
		{
			name: "touching",
			p1:   orb.Point{0, 0}, p2: orb.Point{2, 0},
			p3: orb.Point{2, 0}, p4: orb.Point{4, 0},
			want: []orb.Point{{2, 0}},
		},
		{
			name: "disjoint",
			p1:   orb.Point{0, 0}, p2: orb.Point{1, 0},
			p3: orb.Point{2, 0}, p4: orb.Point{4, 0},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geo.CollinearIntersection(tt.p1, tt.p2, tt.p3, tt.p4)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPerpDirection(t *testing.T) {
	d := perpDirection(orb.Point{0, 0}, orb.Point{4, 0}, 0.5)
	assert.InDelta(t, 0, d[0], 1e-12)
	assert.InDelta(t, -0.5, d[1], 1e-12)
	assert.Equal(t, orb.Point{}, perpDirection(orb.Point{1, 1}, orb.Point{1, 1}, 1))
}

func TestGeometry_IndependentTolerances(t *testing.T) {
	coarse := NewGeometry(0.1)
	p := orb.Point{2, 0.05}
	a, b := orb.Point{0, 0}, orb.Point{4, 0}

	require.NotEqual(t, coarse.Tolerance, geo.Tolerance)
	assert.True(t, coarse.AreBetween(a, b, p))
	assert.False(t, geo.AreBetween(a, b, p))
}
