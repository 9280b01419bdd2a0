package qualify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/census"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

func floatPtr(v float64) *float64 { return &v }

func TestBrownfieldAreas(t *testing.T) {
	namer := Namer{Counties: testCountyAtlas(t), States: testStateAtlas(t)}
	sites := []transform.BrownfieldRecord{
		{
			SiteName:     "Closed Landfill",
			CountyIDFIPS: "48441",
			Latitude:     floatPtr(0.5),
			Longitude:    floatPtr(0.5),
		},
		{
			SiteName: "Unmapped Depot",
		},
	}

	areas := BrownfieldAreas(sites, nil, namer)
	require.Len(t, areas, 2)

	landfill := areas[0]
	assert.Equal(t, model.CriteriaBrownfield, landfill.Criteria)
	assert.Equal(t, BrownfieldLevel, landfill.Level)
	assert.Equal(t, "Closed Landfill", landfill.SiteName)
	assert.Equal(t, "48441", landfill.GeoID)
	assert.Equal(t, "48441", landfill.CountyIDFIPS)
	assert.Equal(t, "Taylor County", landfill.CountyName)
	assert.Equal(t, "TX", landfill.StateAbbr)
	assert.Contains(t, landfill.SiteGeometry, "POINT")

	depot := areas[1]
	assert.Equal(t, model.CriteriaBrownfield, depot.Criteria)
	assert.Empty(t, depot.GeoID)
	assert.Empty(t, depot.CountyIDFIPS)
	assert.Empty(t, depot.SiteGeometry)
}

func TestBrownfieldAreas_TractLayer(t *testing.T) {
	tracts := census.NewAtlas(model.GeographyTract, []*census.Boundary{
		{GeoID: "48441960500", Name: "Census Tract 9605", Geometry: unitSquare(t, 0, 0)},
	})
	namer := Namer{Counties: testCountyAtlas(t)}

	sites := []transform.BrownfieldRecord{
		{
			SiteName:     "Former Refinery",
			CountyIDFIPS: "48441",
			Latitude:     floatPtr(0.5),
			Longitude:    floatPtr(0.5),
		},
		{
			SiteName:     "Remote Site",
			CountyIDFIPS: "48441",
			Latitude:     floatPtr(10),
			Longitude:    floatPtr(10),
		},
	}

	areas := BrownfieldAreas(sites, tracts, namer)
	require.Len(t, areas, 2)

	refinery := areas[0]
	assert.Equal(t, "48441960500", refinery.GeoID)
	assert.Equal(t, "48441960500", refinery.TractIDFIPS)
	assert.Equal(t, "Census Tract 9605", refinery.TractName)
	assert.Equal(t, "48441", refinery.CountyIDFIPS)
	assert.Contains(t, refinery.AreaGeometry, "MULTIPOLYGON")

	// Sites outside every tract keep their county geoid.
	remote := areas[1]
	assert.Equal(t, "48441", remote.GeoID)
	assert.Empty(t, remote.TractIDFIPS)
}
