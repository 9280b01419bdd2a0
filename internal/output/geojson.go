package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// FeatureCollection converts areas into a GeoJSON feature collection. Each
// record's site point is preferred over its area polygon; records with no
// geometry at all are skipped.
func FeatureCollection(areas []model.Area) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{}
	skipped := 0
	for _, a := range areas {
		raw := a.SiteGeometry
		if raw == "" {
			raw = a.AreaGeometry
		}
		if raw == "" {
			skipped++
			continue
		}

		g, err := wkt.Unmarshal(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "output: parse geometry for %s", a.GeoID)
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   g,
			Properties: areaProperties(a),
		})
	}
	if skipped > 0 {
		zap.L().Debug("output: areas without geometry skipped", zap.Int("areas", skipped))
	}
	return fc, nil
}

func areaProperties(a model.Area) map[string]any {
	props := map[string]any{
		"geoid":               a.GeoID,
		"qualifying_criteria": a.Criteria,
		"qualifying_area":     a.Level,
	}
	setIf := func(key, val string) {
		if val != "" {
			props[key] = val
		}
	}
	setIf("tract_id_fips", a.TractIDFIPS)
	setIf("tract_name", a.TractName)
	setIf("county_id_fips", a.CountyIDFIPS)
	setIf("county_name", a.CountyName)
	setIf("state_id_fips", a.StateIDFIPS)
	setIf("state_abbr", a.StateAbbr)
	setIf("state_name", a.StateName)
	setIf("site_name", a.SiteName)
	return props
}

// WriteGeoJSON writes the areas as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, areas []model.Area) error {
	fc, err := FeatureCollection(areas)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return eris.Wrap(err, "output: encode geojson")
	}
	return nil
}

// WriteGeoJSONFile writes the areas to a GeoJSON file at path.
func WriteGeoJSONFile(path string, areas []model.Area) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "output: create %s", path)
	}
	if err := WriteGeoJSON(f, areas); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "output: close %s", path)
}
