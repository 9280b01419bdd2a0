package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eia860Fixture(t *testing.T) []byte {
	t.Helper()
	banner := []string{"EIA-860 Annual Electric Generator Report"}
	genHeader := []string{
		"Utility ID", "Plant Code", "Plant Name", "State", "County",
		"Generator ID", "Technology", "Energy Source 1",
		"Operating Year", "Retirement Year", "Retirement Month",
	}
	generatorBook := xlsxBytes(t, []sheetFixture{
		{
			name: "Operable",
			rows: [][]string{
				banner,
				genHeader,
				{"195", "3", "Barry", "AL", "Mobile", "4", "Conventional Steam Coal", "BIT", "1969", "", ""},
			},
		},
		{
			name: "Retired and Canceled",
			rows: [][]string{
				banner,
				genHeader,
				{"18", "26", "E C Gaston", "AL", "Shelby", "1", "Conventional Steam Coal", "BIT", "1960", "2022", "4"},
				{""},
			},
		},
	})
	return generatorBook
}

func plantFixture(t *testing.T) []byte {
	t.Helper()
	return xlsxBytes(t, []sheetFixture{{
		name: "Plant",
		rows: [][]string{
			{"EIA-860 Annual Electric Generator Report"},
			{"Utility ID", "Plant Code", "Plant Name", "Latitude", "Longitude"},
			{"195", "3", "Barry", "31.0069", "-88.0103"},
			{"18", "26", "E C Gaston", "33.2442", "-86.4567"},
		},
	}})
}

func TestEIA860(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{
		"eia860/xls/eia8602022.zip": zipBytes(t, map[string]string{
			"3_1_Generator_Y2022.xlsx": string(eia860Fixture(t)),
			"2___Plant_Y2022.xlsx":     string(plantFixture(t)),
			"LayoutY2022.xlsx":         "ignored",
		}),
	}}

	gens, plants, err := EIA860(context.Background(), f, 2022, t.TempDir(), false)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	require.Len(t, plants, 2)

	assert.Equal(t, Generator{
		ReportYear:    2022,
		UtilityID:     "195",
		PlantCode:     "3",
		PlantName:     "Barry",
		State:         "AL",
		County:        "Mobile",
		GeneratorID:   "4",
		Technology:    "Conventional Steam Coal",
		EnergySource:  "BIT",
		OperatingYear: "1969",
	}, gens[0])

	assert.True(t, gens[1].Retired)
	assert.Equal(t, "2022", gens[1].RetirementYear)

	assert.Equal(t, Plant{PlantCode: "3", Latitude: "31.0069", Longitude: "-88.0103"}, plants[0])
}

func TestEIA860_ArchiveFallback(t *testing.T) {
	// Only the archive URL has the filing.
	f := &fakeFetcher{files: map[string][]byte{
		"archive/xls/eia8602014.zip": zipBytes(t, map[string]string{
			"3_1_Generator_Y2014.xlsx": string(eia860Fixture(t)),
			"2___Plant_Y2014.xlsx":     string(plantFixture(t)),
		}),
	}}

	gens, _, err := EIA860(context.Background(), f, 2014, t.TempDir(), false)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, 2014, gens[0].ReportYear)
}
