package transform

import (
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
)

// BrownfieldRecord is a brownfield site mapped to its county.
type BrownfieldRecord struct {
	SiteName     string
	CountyIDFIPS string
	Latitude     *float64
	Longitude    *float64
}

// Brownfields maps EPA sites to counties via the HUD zip-to-county
// crosswalk. Site names are title-cased. Sites whose zip code is missing
// from the crosswalk keep an empty county FIPS and are counted in a
// warning. Coordinates are optional; invalid values become nil.
func Brownfields(sites []extract.BrownfieldSite, zipToCounty map[string]string) []BrownfieldRecord {
	var out []BrownfieldRecord
	unmapped := 0
	for _, site := range sites {
		rec := BrownfieldRecord{
			SiteName:     titleCase(site.SiteName),
			CountyIDFIPS: zipToCounty[zfill(site.ZipCode, 5)],
		}
		if rec.CountyIDFIPS == "" {
			unmapped++
		}
		if lat, lon, ok := parseLatLon(site.Latitude, site.Longitude); ok {
			rec.Latitude = &lat
			rec.Longitude = &lon
		}
		out = append(out, rec)
	}

	if unmapped > 0 {
		zap.L().Warn("epa: sites with zip codes missing from the HUD crosswalk",
			zap.Int("sites", unmapped))
	}
	return out
}
