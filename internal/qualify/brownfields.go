package qualify

import (
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/census"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

// BrownfieldLevel marks brownfield records, which qualify at the site itself
// rather than over a surrounding geography.
const BrownfieldLevel = "site"

// BrownfieldAreas turns screened brownfield sites into qualifying-area
// records. The county is taken from the ZIP-to-county crosswalk; when the
// atlas resolves tracts and the site has coordinates, the containing tract
// is located as well.
func BrownfieldAreas(sites []transform.BrownfieldRecord, atlas *census.Atlas, namer Namer) []model.Area {
	out := make([]model.Area, 0, len(sites))
	unlocated := 0
	for _, site := range sites {
		area := model.Area{
			SiteName:  site.SiteName,
			Criteria:  model.CriteriaBrownfield,
			Level:     BrownfieldLevel,
			Latitude:  site.Latitude,
			Longitude: site.Longitude,
		}
		if site.CountyIDFIPS != "" {
			namer.describe(&area, site.CountyIDFIPS)
			area.GeoID = site.CountyIDFIPS
		}
		if site.Latitude != nil && site.Longitude != nil {
			area.SiteGeometry = pointWKT(*site.Longitude, *site.Latitude)
			if atlas != nil && atlas.Layer() == model.GeographyTract {
				if boundary := atlas.Locate(*site.Longitude, *site.Latitude); boundary != nil {
					area.TractIDFIPS = boundary.GeoID
					area.TractName = boundary.Name
					area.GeoID = boundary.GeoID
					area.AreaGeometry = areaWKT(boundary.Geometry)
				} else {
					unlocated++
				}
			}
		}
		out = append(out, area)
	}
	if unlocated > 0 {
		zap.L().Warn("qualify: brownfield sites outside every tract", zap.Int("sites", unlocated))
	}
	zap.L().Info("qualify: brownfield sites mapped", zap.Int("sites", len(out)))
	return out
}
