package transform

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
)

// coalEnergySources are the EIA energy source codes counted as coal for
// filings before 2014, which predate the technology column. Petcoke is not
// included.
var coalEnergySources = map[string]bool{
	"ANT": true,
	"BIT": true,
	"LIG": true,
	"RC":  true,
	"SGC": true,
	"WC":  true,
	"SUB": true,
}

// coalTechnologies are the technology descriptions counted as coal for 2014
// and later filings.
var coalTechnologies = map[string]bool{
	"Conventional Steam Coal": true,
	"Coal Integrated Gasification Combined Cycle": true,
}

// CoalPlant is a retired coal generator with usable coordinates.
type CoalPlant struct {
	PlantCode   string
	UtilityID   string
	GeneratorID string
	PlantName   string
	ReportYear  int
	Latitude    float64
	Longitude   float64
}

// CoalPlants filters generator filings down to retired coal generators.
// Filings before 2014 qualify by energy source code, 2014 and later by
// technology description. The same retired generator appears in every later
// filing; only the most recent report is kept. Coordinates come from the
// plant table of the same filing year.
func CoalPlants(generators []extract.Generator, plants []extract.Plant) []CoalPlant {
	coords := make(map[string]extract.Plant, len(plants))
	for _, p := range plants {
		coords[p.PlantCode] = p
	}

	latest := make(map[string]CoalPlant)
	for _, g := range generators {
		if !g.Retired {
			continue
		}
		if g.ReportYear < 2014 {
			if !coalEnergySources[strings.ToUpper(strings.TrimSpace(g.EnergySource))] {
				continue
			}
		} else if !coalTechnologies[strings.TrimSpace(g.Technology)] {
			continue
		}

		plant, ok := coords[g.PlantCode]
		if !ok {
			continue
		}
		lat, lon, ok := parseLatLon(plant.Latitude, plant.Longitude)
		if !ok {
			continue
		}

		key := g.PlantCode + "|" + g.UtilityID + "|" + g.GeneratorID
		if prev, ok := latest[key]; ok && prev.ReportYear >= g.ReportYear {
			continue
		}
		latest[key] = CoalPlant{
			PlantCode:   g.PlantCode,
			UtilityID:   g.UtilityID,
			GeneratorID: g.GeneratorID,
			PlantName:   g.PlantName,
			ReportYear:  g.ReportYear,
			Latitude:    lat,
			Longitude:   lon,
		}
	}

	out := make([]CoalPlant, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlantCode != out[j].PlantCode {
			return plantCodeLess(out[i].PlantCode, out[j].PlantCode)
		}
		return out[i].GeneratorID < out[j].GeneratorID
	})

	zap.L().Info("eia860: filtered retired coal generators",
		zap.Int("input", len(generators)),
		zap.Int("qualifying", len(out)),
	)
	return out
}

// ProposedRetirements selects operable coal generators with a retirement
// date set in the future instead of already-retired ones. A generator
// retiring later in the current year still counts; when the retirement
// month is missing the comparison falls back to the year alone.
func ProposedRetirements(generators []extract.Generator, plants []extract.Plant, now time.Time) []CoalPlant {
	var future []extract.Generator
	for _, g := range generators {
		if g.Retired {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(g.RetirementYear))
		if err != nil || year < now.Year() {
			continue
		}
		if year == now.Year() {
			month, err := strconv.Atoi(strings.TrimSpace(g.RetirementMonth))
			if err != nil || month <= int(now.Month()) {
				continue
			}
		}
		g.Retired = true // reuse the retired-path filters below
		future = append(future, g)
	}
	return CoalPlants(future, plants)
}

// plantCodeLess orders plant codes numerically when possible.
func plantCodeLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
