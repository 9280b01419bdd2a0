package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// square builds a unit square multipolygon with its lower-left corner at
// (x, y).
func square(t *testing.T, x, y float64) *geom.MultiPolygon {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4269)
	poly := geom.NewPolygon(geom.XY)
	_, err := poly.SetCoords([][]geom.Coord{{
		{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y},
	}})
	require.NoError(t, err)
	require.NoError(t, mp.Push(poly))
	return mp
}

// gridAtlas builds a 2x2 grid of unit squares:
//
//	01 11
//	00 10
func gridAtlas(t *testing.T) *Atlas {
	t.Helper()
	var boundaries []*Boundary
	for _, cell := range []struct {
		geoID string
		x, y  float64
	}{
		{"00", 0, 0},
		{"10", 1, 0},
		{"01", 0, 1},
		{"11", 1, 1},
	} {
		boundaries = append(boundaries, &Boundary{
			GeoID:    cell.geoID,
			Name:     "Cell " + cell.geoID,
			Geometry: square(t, cell.x, cell.y),
		})
	}
	return NewAtlas(model.GeographyCounty, boundaries)
}

func TestAtlasGet(t *testing.T) {
	atlas := gridAtlas(t)
	require.Equal(t, 4, atlas.Len())

	b, ok := atlas.Get("10")
	require.True(t, ok)
	assert.Equal(t, "Cell 10", b.Name)

	_, ok = atlas.Get("99")
	assert.False(t, ok)
}

func TestAtlasLocate(t *testing.T) {
	atlas := gridAtlas(t)

	tests := []struct {
		name     string
		lon, lat float64
		want     string
	}{
		{"lower left cell", 0.5, 0.5, "00"},
		{"lower right cell", 1.5, 0.25, "10"},
		{"upper left cell", 0.1, 1.9, "01"},
		{"upper right cell", 1.99, 1.99, "11"},
		{"outside the grid", 5.0, 5.0, ""},
		{"outside but within x range", 0.5, -3.0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := atlas.Locate(tt.lon, tt.lat)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.GeoID)
		})
	}
}

func TestAtlasLocateHole(t *testing.T) {
	// Square with a hole in the middle.
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4269)
	poly := geom.NewPolygon(geom.XY)
	_, err := poly.SetCoords([][]geom.Coord{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}},
	})
	require.NoError(t, err)
	require.NoError(t, mp.Push(poly))

	atlas := NewAtlas(model.GeographyCounty, []*Boundary{
		{GeoID: "donut", Geometry: mp},
	})

	require.NotNil(t, atlas.Locate(0.5, 0.5))
	assert.Nil(t, atlas.Locate(2, 2), "points in the hole are outside")
}

func TestAtlasAdjacent(t *testing.T) {
	atlas := gridAtlas(t)

	// Every cell touches the center corner, so each is adjacent to all
	// three others: edge neighbors and the diagonal alike.
	assert.Equal(t, []string{"01", "10", "11"}, atlas.Adjacent("00"))
	assert.Equal(t, []string{"00", "01", "11"}, atlas.Adjacent("10"))
	assert.Equal(t, []string{"00", "10", "11"}, atlas.Adjacent("01"))
	assert.Equal(t, []string{"00", "01", "10"}, atlas.Adjacent("11"))

	assert.Empty(t, atlas.Adjacent("99"))
}

func TestAtlasAdjacentCornerContact(t *testing.T) {
	atlas := NewAtlas(model.GeographyTract, []*Boundary{
		{GeoID: "sw", Geometry: square(t, 0, 0)},
		{GeoID: "ne", Geometry: square(t, 1, 1)},
	})
	assert.Equal(t, []string{"ne"}, atlas.Adjacent("sw"))
	assert.Equal(t, []string{"sw"}, atlas.Adjacent("ne"))
}

func TestAtlasAdjacentIsolated(t *testing.T) {
	atlas := NewAtlas(model.GeographyCounty, []*Boundary{
		{GeoID: "a", Geometry: square(t, 0, 0)},
		{GeoID: "far", Geometry: square(t, 10, 10)},
	})
	assert.Empty(t, atlas.Adjacent("a"))
	assert.Empty(t, atlas.Adjacent("far"))
}
