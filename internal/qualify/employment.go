package qualify

import (
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// EmploymentLevel labels employment-criteria areas, which are evaluated at
// the MSA / non-MSA level rather than a Census geometry.
const EmploymentLevel = "MSA or non-MSA"

// EmploymentAreas intersects the two employment criteria: a county
// qualifies when its MSA or nonmetropolitan area meets the fossil
// employment threshold and the county's unemployment evaluation meets the
// threshold in the same year. Each county appears once.
func EmploymentAreas(fossil []FossilArea, unemployment []UnemploymentArea, namer Namer) []model.Area {
	type countyYear struct {
		geoid string
		year  int
	}
	meetsUnemployment := make(map[countyYear]bool)
	for _, u := range unemployment {
		if u.Meets {
			meetsUnemployment[countyYear{u.GeoID, u.Year}] = true
		}
	}

	seen := make(map[string]bool)
	var out []model.Area
	for _, f := range fossil {
		if !f.Meets {
			continue
		}
		if !meetsUnemployment[countyYear{f.GeoID, f.Year}] {
			continue
		}
		if seen[f.GeoID] {
			continue
		}
		seen[f.GeoID] = true

		area := model.Area{
			GeoID:    f.GeoID,
			SiteName: f.AreaTitle,
			Criteria: model.CriteriaFossilEmployment,
			Level:    EmploymentLevel,
		}
		namer.describe(&area, f.CountyIDFIPS)
		if namer.Counties != nil {
			if county, ok := namer.Counties.Get(f.CountyIDFIPS); ok {
				area.AreaGeometry = areaWKT(county.Geometry)
			}
		}
		out = append(out, area)
	}

	zap.L().Info("qualify: employment criteria evaluated",
		zap.Int("fossil_rows", len(fossil)),
		zap.Int("unemployment_rows", len(unemployment)),
		zap.Int("qualifying_counties", len(out)),
	)
	return out
}
