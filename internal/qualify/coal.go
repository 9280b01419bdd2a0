package qualify

import (
	"sort"

	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/census"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

// coalSite is a closure site feeding the coal community criteria.
type coalSite struct {
	name     string
	criteria string
	lat, lon float64
}

// CoalAreas evaluates the coal closure criteria at the atlas's geography
// level: every area containing a closed coal mine or retired coal plant
// qualifies, and so does every area adjacent to one. Sites outside every
// boundary are kept with an empty FIPS and warned about.
func CoalAreas(mines []transform.CoalMine, plants []transform.CoalPlant, atlas *census.Atlas, namer Namer) []model.Area {
	sites := make([]coalSite, 0, len(mines)+len(plants))
	for _, m := range mines {
		sites = append(sites, coalSite{m.Name, model.CriteriaCoalMine, m.Latitude, m.Longitude})
	}
	for _, p := range plants {
		sites = append(sites, coalSite{p.PlantName, model.CriteriaCoalPlant, p.Latitude, p.Longitude})
	}

	layer := atlas.Layer()
	located := map[string]map[string]bool{
		model.CriteriaCoalMine:  {},
		model.CriteriaCoalPlant: {},
	}

	var out []model.Area
	unlocated := 0
	for _, site := range sites {
		lat, lon := site.lat, site.lon
		area := model.Area{
			SiteName:     site.name,
			Criteria:     site.criteria,
			Level:        string(layer),
			Latitude:     &lat,
			Longitude:    &lon,
			SiteGeometry: pointWKT(lon, lat),
		}

		boundary := atlas.Locate(site.lon, site.lat)
		if boundary == nil {
			unlocated++
			out = append(out, area)
			continue
		}

		located[site.criteria][boundary.GeoID] = true
		fillBoundary(&area, boundary, layer, namer)
		out = append(out, area)
	}
	if unlocated > 0 {
		zap.L().Warn("qualify: sites outside every boundary",
			zap.String("layer", string(layer)),
			zap.Int("sites", unlocated),
		)
	}

	// One record per area adjacent to a closure site, per closure type.
	for _, criteria := range []string{model.CriteriaCoalMine, model.CriteriaCoalPlant} {
		adjacent := make(map[string]bool)
		for geoID := range located[criteria] {
			for _, neighbor := range atlas.Adjacent(geoID) {
				adjacent[neighbor] = true
			}
		}

		neighbors := make([]string, 0, len(adjacent))
		for geoID := range adjacent {
			neighbors = append(neighbors, geoID)
		}
		sort.Strings(neighbors)

		for _, geoID := range neighbors {
			area := model.Area{
				Criteria: model.AdjacentCriteria(criteria, layer),
				Level:    string(layer),
			}
			if boundary, ok := atlas.Get(geoID); ok {
				fillBoundary(&area, boundary, layer, namer)
			} else {
				area.GeoID = geoID
			}
			out = append(out, area)
		}
	}

	zap.L().Info("qualify: coal criteria evaluated",
		zap.String("layer", string(layer)),
		zap.Int("sites", len(sites)),
		zap.Int("areas", len(out)),
	)
	return out
}

// fillBoundary fills the geography columns of a record from its containing
// or adjacent boundary.
func fillBoundary(area *model.Area, boundary *census.Boundary, layer model.Geography, namer Namer) {
	area.GeoID = boundary.GeoID
	area.AreaGeometry = areaWKT(boundary.Geometry)

	switch layer {
	case model.GeographyTract:
		area.TractIDFIPS = boundary.GeoID
		area.TractName = boundary.Name
		if len(boundary.GeoID) >= 5 {
			namer.describe(area, boundary.GeoID[:5])
		}
	case model.GeographyCounty:
		namer.describe(area, boundary.GeoID)
		area.CountyName = boundary.Name
	}
}
