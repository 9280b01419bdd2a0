package qualify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

func testNationalRates() []transform.NationalRate {
	return []transform.NationalRate{
		{Year: 2018, Rate: 3.9, AppliesToYear: 2019},
		{Year: 2019, Rate: 3.7, AppliesToYear: 2020},
	}
}

func testLocalAreas() []transform.LocalArea {
	return []transform.LocalArea{
		{
			SeriesID: "LAUMT481018000000003",
			AreaCode: "MT4810180000000",
			AreaText: "Abilene, TX Metropolitan Statistical Area",
			Level:    transform.LevelMetro,
			GeoID:    "101800",
		},
		{
			SeriesID: "LAUMT044974000000003",
			AreaCode: "MT0449740000000",
			AreaText: "Yuma, AZ Metropolitan Statistical Area",
			Level:    transform.LevelMetro,
			GeoID:    "497400",
		},
		{
			SeriesID:  "LAUCN010050000000003",
			AreaCode:  "CN0100500000000",
			AreaText:  "Barbour County, AL",
			Level:     transform.LevelCounty,
			StateFIPS: "01",
			GeoID:     "005",
		},
		{
			SeriesID:  "LAUCN011090000000003",
			AreaCode:  "CN0110900000000",
			AreaText:  "Pike County, AL",
			Level:     transform.LevelCounty,
			StateFIPS: "01",
			GeoID:     "109",
		},
	}
}

func testAreaRates() []transform.AreaRate {
	return []transform.AreaRate{
		{SeriesID: "LAUMT481018000000003", Year: 2020, Rate: 5.8},
		{SeriesID: "LAUMT044974000000003", Year: 2020, Rate: 9.2},
		// 2019 compares against the 2018 national average of 3.9.
		{SeriesID: "LAUMT481018000000003", Year: 2019, Rate: 3.1},
		// Nonmetropolitan counties carry unemployment and labor force
		// levels; the area rate comes from the summed levels.
		{SeriesID: "LAUCN010050000000004", Year: 2019, Rate: 344.7},
		{SeriesID: "LAUCN010050000000006", Year: 2019, Rate: 8636.2},
		{SeriesID: "LAUCN010050000000004", Year: 2020, Rate: 675.9},
		{SeriesID: "LAUCN010050000000006", Year: 2020, Rate: 8680.2},
		{SeriesID: "LAUCN011090000000004", Year: 2019, Rate: 536.7},
		{SeriesID: "LAUCN011090000000006", Year: 2019, Rate: 15570.0},
		{SeriesID: "LAUCN011090000000004", Year: 2020, Rate: 864.8},
		{SeriesID: "LAUCN011090000000006", Year: 2020, Rate: 15840.6},
	}
}

func TestUnemploymentRates(t *testing.T) {
	areas := UnemploymentRates(testNationalRates(), testAreaRates(), testLocalAreas(), testCrosswalk())

	type key struct {
		fips string
		year int
	}
	byCountyYear := make(map[key]UnemploymentArea)
	for _, a := range areas {
		byCountyYear[key{a.CountyIDFIPS, a.Year}] = a
	}

	// The Abilene MSA rate expands to all three member counties.
	for _, fips := range []string{"48059", "48253", "48441"} {
		a, ok := byCountyYear[key{fips, 2020}]
		require.True(t, ok, "missing county %s", fips)
		assert.Equal(t, "C1018", a.MSACode)
		assert.Equal(t, 5.8, a.Rate)
		assert.True(t, a.Meets, "5.8 >= national 3.7")
	}

	// 2019 falls short of the 2018 national average.
	a, ok := byCountyYear[key{"48441", 2019}]
	require.True(t, ok)
	assert.Equal(t, 3.1, a.Rate)
	assert.False(t, a.Meets)

	yuma, ok := byCountyYear[key{"04027", 2020}]
	require.True(t, ok)
	assert.Equal(t, "C4974", yuma.MSACode)
	assert.True(t, yuma.Meets)

	// Nonmetropolitan counties carry the area rate computed from the
	// summed levels: (675.9+864.8)/(8680.2+15840.6) truncates to 6.2.
	barbour, ok := byCountyYear[key{"01005", 2020}]
	require.True(t, ok)
	assert.Equal(t, "100004", barbour.MSACode)
	assert.Equal(t, "Southeast Alabama nonmetropolitan area", barbour.MSAName)
	assert.Equal(t, 6.2, barbour.Rate)
	assert.True(t, barbour.Meets)

	pike, ok := byCountyYear[key{"01109", 2020}]
	require.True(t, ok)
	assert.Equal(t, 6.2, pike.Rate)
	assert.True(t, pike.Meets)
}

func TestUnemploymentRates_NonmetroAreaVerdictShared(t *testing.T) {
	areas := UnemploymentRates(testNationalRates(), testAreaRates(), testLocalAreas(), testCrosswalk())

	// Barbour County's own 2019 rate (344.7/8636.2 = 3.99) clears the 3.9
	// national baseline, but the Southeast Alabama area rate of 3.6 does
	// not. Both member counties share the area verdict.
	var al2019 []UnemploymentArea
	for _, a := range areas {
		if a.MSACode == "100004" && a.Year == 2019 {
			al2019 = append(al2019, a)
		}
	}
	require.Len(t, al2019, 2)
	for _, a := range al2019 {
		assert.Equal(t, 3.6, a.Rate)
		assert.False(t, a.Meets, "county %s must carry the area verdict", a.CountyIDFIPS)
	}
}

func TestUnemploymentRates_NoNationalBaseline(t *testing.T) {
	rates := []transform.AreaRate{
		{SeriesID: "LAUCN010050000000004", Year: 2010, Rate: 1200},
		{SeriesID: "LAUCN010050000000006", Year: 2010, Rate: 8000},
	}
	areas := UnemploymentRates(testNationalRates(), rates, testLocalAreas(), testCrosswalk())
	require.Len(t, areas, 1)
	assert.False(t, areas[0].Meets)
}

func TestUnemploymentRates_MissingMSACrosswalk(t *testing.T) {
	localAreas := []transform.LocalArea{
		{
			SeriesID: "LAUMT129999000000003",
			AreaText: "Nowhere, FL Metropolitan Statistical Area",
			Level:    transform.LevelMetro,
			GeoID:    "999900",
		},
	}
	rates := []transform.AreaRate{
		{SeriesID: "LAUMT129999000000003", Year: 2020, Rate: 8.0},
	}
	areas := UnemploymentRates(testNationalRates(), rates, localAreas, testCrosswalk())
	assert.Empty(t, areas)
}

func TestUnemploymentRates_MetroCountySkipped(t *testing.T) {
	// Taylor County belongs to the Abilene MSA, so its county series
	// produces no records of its own.
	localAreas := []transform.LocalArea{
		{
			SeriesID:  "LAUCN484410000000003",
			AreaText:  "Taylor County, TX",
			Level:     transform.LevelCounty,
			StateFIPS: "48",
			GeoID:     "441",
		},
	}
	rates := []transform.AreaRate{
		{SeriesID: "LAUCN484410000000004", Year: 2020, Rate: 5000},
		{SeriesID: "LAUCN484410000000006", Year: 2020, Rate: 30000},
	}
	areas := UnemploymentRates(testNationalRates(), rates, localAreas, testCrosswalk())
	assert.Empty(t, areas)
}

func TestUnemploymentRates_UnknownSeriesSkipped(t *testing.T) {
	rates := []transform.AreaRate{
		{SeriesID: "LAUCN999990000000003", Year: 2020, Rate: 8.0},
	}
	areas := UnemploymentRates(testNationalRates(), rates, testLocalAreas(), testCrosswalk())
	assert.Empty(t, areas)
}
