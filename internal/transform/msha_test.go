package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
)

func validMine() extract.Mine {
	return extract.Mine{
		MineID:       "100003",
		MineName:     "SHOAL CREEK MINE",
		CoalMetalInd: "C",
		Status:       "Abandoned",
		StatusDate:   "03/02/2018",
		Latitude:     "33.748611",
		Longitude:    "-87.135833",
	}
}

func TestCoalMines(t *testing.T) {
	mines := []extract.Mine{validMine()}

	out := CoalMines(mines)
	require.Len(t, out, 1)
	assert.Equal(t, "Shoal Creek Mine", out[0].Name)
	assert.Equal(t, "abandoned", out[0].Status)
	assert.Equal(t, 2018, out[0].StatusDate.Year())
	assert.InDelta(t, 33.748611, out[0].Latitude, 1e-9)
	assert.InDelta(t, -87.135833, out[0].Longitude, 1e-9)
}

func TestCoalMines_Filters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*extract.Mine)
	}{
		{"active mine", func(m *extract.Mine) { m.Status = "Active" }},
		{"temporarily idled", func(m *extract.Mine) { m.Status = "Temporarily Idled" }},
		{"metal mine", func(m *extract.Mine) { m.CoalMetalInd = "M" }},
		{"closed before 2000", func(m *extract.Mine) { m.StatusDate = "06/15/1998" }},
		{"missing status date", func(m *extract.Mine) { m.StatusDate = "" }},
		{"missing coordinates", func(m *extract.Mine) { m.Latitude, m.Longitude = "", "" }},
		{"latitude out of range", func(m *extract.Mine) { m.Latitude = "95.0" }},
		{"longitude out of range", func(m *extract.Mine) { m.Longitude = "-190.0" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMine()
			tt.mutate(&m)
			assert.Empty(t, CoalMines([]extract.Mine{m}))
		})
	}
}

func TestCoalMines_StatusVariants(t *testing.T) {
	for _, status := range []string{"Abandoned", "Abandoned and Sealed", "NonProducing"} {
		m := validMine()
		m.Status = status
		assert.Len(t, CoalMines([]extract.Mine{m}), 1, status)
	}
}
