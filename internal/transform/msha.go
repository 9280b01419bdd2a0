package transform

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
)

// closedMineStatuses are the mine statuses that count as closures for the
// coal community criteria.
var closedMineStatuses = map[string]bool{
	"abandoned and sealed": true,
	"abandoned":            true,
	"nonproducing":         true,
}

// CoalMine is a closed coal mine with usable coordinates.
type CoalMine struct {
	MineID     string
	Name       string
	Status     string
	StatusDate time.Time
	Latitude   float64
	Longitude  float64
}

// CoalMines filters raw mine records down to closed coal mines: status
// abandoned (sealed or not) or nonproducing, coal rather than metal, status
// date in 2000 or later, and valid coordinates. Records missing coordinates
// are dropped.
func CoalMines(mines []extract.Mine) []CoalMine {
	var out []CoalMine
	for _, m := range mines {
		status := strings.ToLower(strings.TrimSpace(m.Status))
		if !closedMineStatuses[status] {
			continue
		}
		if strings.ToLower(strings.TrimSpace(m.CoalMetalInd)) != "c" {
			continue
		}

		statusDate, err := time.Parse("01/02/2006", strings.TrimSpace(m.StatusDate))
		if err != nil || statusDate.Year() < 2000 {
			continue
		}

		lat, lon, ok := parseLatLon(m.Latitude, m.Longitude)
		if !ok {
			continue
		}

		out = append(out, CoalMine{
			MineID:     m.MineID,
			Name:       titleCase(m.MineName),
			Status:     status,
			StatusDate: statusDate,
			Latitude:   lat,
			Longitude:  lon,
		})
	}

	zap.L().Info("msha: filtered closed coal mines",
		zap.Int("input", len(mines)),
		zap.Int("qualifying", len(out)),
	)
	return out
}

// parseLatLon parses coordinate strings and validates their ranges.
func parseLatLon(latStr, lonStr string) (lat, lon float64, ok bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
