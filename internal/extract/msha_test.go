package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minesFixture = `MINE_ID|CURRENT_MINE_NAME|COAL_METAL_IND|CURRENT_MINE_STATUS|CURRENT_STATUS_DT|FIPS_CNTY|LONGITUDE|LATITUDE
100003|Shoal Creek Mine|C|Abandoned|03/02/2018|073|-87.135833|33.748611
100058|Maxine Mine|C|Abandoned and Sealed|07/28/2010|073|-87.213056|33.594722
2600756|Gold Quarry|M|Active|01/15/2021|011|-116.35|40.85
`

func TestMines(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{
		"Mines.zip": zipBytes(t, map[string]string{"Mines.txt": minesFixture}),
	}}

	mines, err := Mines(context.Background(), f, t.TempDir(), false)
	require.NoError(t, err)
	require.Len(t, mines, 3)

	assert.Equal(t, Mine{
		MineID:       "100003",
		MineName:     "Shoal Creek Mine",
		CoalMetalInd: "C",
		Status:       "Abandoned",
		StatusDate:   "03/02/2018",
		Latitude:     "33.748611",
		Longitude:    "-87.135833",
	}, mines[0])
	assert.Equal(t, "M", mines[2].CoalMetalInd)
}

func TestMines_WrongZipContents(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{
		"Mines.zip": zipBytes(t, map[string]string{
			"Mines.txt":  minesFixture,
			"Extras.txt": "unexpected",
		}),
	}}

	_, err := Mines(context.Background(), f, t.TempDir(), false)
	require.Error(t, err)
}

func TestMines_WrongFilename(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{
		"Mines.zip": zipBytes(t, map[string]string{"Other.txt": minesFixture}),
	}}

	_, err := Mines(context.Background(), f, t.TempDir(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Mines.txt")
}
