package qualify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/census"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

// unitSquare returns a 1x1 degree square with its lower-left corner at (x, y).
func unitSquare(t *testing.T, x, y float64) *geom.MultiPolygon {
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

// testCountyAtlas lays three counties out in an L shape:
//
//	48059
//	48441 48253
func testCountyAtlas(t *testing.T) *census.Atlas {
	t.Helper()
	return census.NewAtlas(model.GeographyCounty, []*census.Boundary{
		{GeoID: "48441", Name: "Taylor County", Geometry: unitSquare(t, 0, 0)},
		{GeoID: "48253", Name: "Jones County", Geometry: unitSquare(t, 1, 0)},
		{GeoID: "48059", Name: "Callahan County", Geometry: unitSquare(t, 0, 1)},
	})
}

func testStateAtlas(t *testing.T) *census.Atlas {
	t.Helper()
	return census.NewAtlas(model.GeographyState, []*census.Boundary{
		{GeoID: "48", Name: "Texas", Abbr: "TX", Geometry: unitSquare(t, 0, 0)},
	})
}

func TestCoalAreas(t *testing.T) {
	counties := testCountyAtlas(t)
	namer := Namer{Counties: counties, States: testStateAtlas(t)}

	mines := []transform.CoalMine{
		{MineID: "0100001", Name: "Sample Mine", Status: "Abandoned", Latitude: 0.5, Longitude: 0.5},
		{MineID: "0100002", Name: "Offshore Mine", Status: "Abandoned", Latitude: 10, Longitude: 10},
	}
	plants := []transform.CoalPlant{
		{PlantCode: "3", PlantName: "Sample Steam Plant", Latitude: 0.5, Longitude: 1.5},
	}

	areas := CoalAreas(mines, plants, counties, namer)
	require.Len(t, areas, 7)

	mine := areas[0]
	assert.Equal(t, model.CriteriaCoalMine, mine.Criteria)
	assert.Equal(t, "county", mine.Level)
	assert.Equal(t, "Sample Mine", mine.SiteName)
	assert.Equal(t, "48441", mine.GeoID)
	assert.Equal(t, "48441", mine.CountyIDFIPS)
	assert.Equal(t, "Taylor County", mine.CountyName)
	assert.Equal(t, "48", mine.StateIDFIPS)
	assert.Equal(t, "TX", mine.StateAbbr)
	assert.Equal(t, "Texas", mine.StateName)
	require.NotNil(t, mine.Latitude)
	assert.Equal(t, 0.5, *mine.Latitude)
	assert.Contains(t, mine.SiteGeometry, "POINT")
	assert.Contains(t, mine.AreaGeometry, "MULTIPOLYGON")

	// Sites outside every boundary are kept with an empty geoid.
	offshore := areas[1]
	assert.Equal(t, model.CriteriaCoalMine, offshore.Criteria)
	assert.Empty(t, offshore.GeoID)
	assert.Empty(t, offshore.CountyIDFIPS)
	require.NotNil(t, offshore.Longitude)
	assert.Equal(t, 10.0, *offshore.Longitude)

	plant := areas[2]
	assert.Equal(t, model.CriteriaCoalPlant, plant.Criteria)
	assert.Equal(t, "48253", plant.GeoID)
	assert.Equal(t, "Jones County", plant.CountyName)

	// The mine's county touches both others by edge. The plant's county
	// touches the mine's county by edge and the third by the shared
	// corner at (1, 1); corner contact counts as touching.
	assert.Equal(t, "coal_mine_adjacent_county", areas[3].Criteria)
	assert.Equal(t, "48059", areas[3].GeoID)
	assert.Equal(t, "Callahan County", areas[3].CountyName)
	assert.Equal(t, "coal_mine_adjacent_county", areas[4].Criteria)
	assert.Equal(t, "48253", areas[4].GeoID)
	assert.Equal(t, "coal_plant_adjacent_county", areas[5].Criteria)
	assert.Equal(t, "48059", areas[5].GeoID)
	assert.Equal(t, "coal_plant_adjacent_county", areas[6].Criteria)
	assert.Equal(t, "48441", areas[6].GeoID)
	assert.NotEmpty(t, areas[6].AreaGeometry)
}

func TestCoalAreas_TractLayer(t *testing.T) {
	tracts := census.NewAtlas(model.GeographyTract, []*census.Boundary{
		{GeoID: "48441960500", Name: "Census Tract 9605", Geometry: unitSquare(t, 0, 0)},
		{GeoID: "48441960600", Name: "Census Tract 9606", Geometry: unitSquare(t, 1, 0)},
	})
	namer := Namer{Counties: testCountyAtlas(t), States: testStateAtlas(t)}

	mines := []transform.CoalMine{
		{MineID: "4200001", Name: "Tract Mine", Status: "Abandoned", Latitude: 0.5, Longitude: 0.5},
	}
	areas := CoalAreas(mines, nil, tracts, namer)
	require.Len(t, areas, 2)

	mine := areas[0]
	assert.Equal(t, "tract", mine.Level)
	assert.Equal(t, "48441960500", mine.GeoID)
	assert.Equal(t, "48441960500", mine.TractIDFIPS)
	assert.Equal(t, "Census Tract 9605", mine.TractName)
	assert.Equal(t, "48441", mine.CountyIDFIPS)
	assert.Equal(t, "48", mine.StateIDFIPS)
	assert.Equal(t, "Taylor County", mine.CountyName)

	adjacent := areas[1]
	assert.Equal(t, "coal_mine_adjacent_tract", adjacent.Criteria)
	assert.Equal(t, "48441960600", adjacent.GeoID)
	assert.Equal(t, "48441960600", adjacent.TractIDFIPS)
}

func TestCoalAreas_AdjacentDeduplicated(t *testing.T) {
	counties := testCountyAtlas(t)

	// Two mines in neighboring counties each make the other's county
	// adjacent, but each county gets a single adjacency record.
	mines := []transform.CoalMine{
		{MineID: "1", Name: "West Mine", Latitude: 0.5, Longitude: 0.5},
		{MineID: "2", Name: "East Mine", Latitude: 0.5, Longitude: 1.5},
	}
	areas := CoalAreas(mines, nil, counties, Namer{Counties: counties})
	require.Len(t, areas, 5)

	var adjacents []string
	for _, a := range areas[2:] {
		assert.Equal(t, "coal_mine_adjacent_county", a.Criteria)
		adjacents = append(adjacents, a.GeoID)
	}
	assert.Equal(t, []string{"48059", "48253", "48441"}, adjacents)
}
