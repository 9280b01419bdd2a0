package census

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// Boundary is one Census geometry: a state, county, or tract.
type Boundary struct {
	GeoID string
	// Name is the legal/statistical area description, e.g. "Campbell County"
	// or "Census Tract 9645".
	Name string
	// Abbr is the USPS abbreviation; populated on the state layer only.
	Abbr     string
	Geometry *geom.MultiPolygon

	bounds *geom.Bounds
}

// Bounds returns the boundary's bounding box, computing it on first use.
func (b *Boundary) Bounds() *geom.Bounds {
	if b.bounds == nil {
		b.bounds = b.Geometry.Bounds()
	}
	return b.bounds
}

// ParseShapefile reads one TIGER/Line shapefile into boundaries.
// Attribute names differ by vintage (GEOID vs GEOID10), so both are tried.
func ParseShapefile(shpPath string, layer model.Geography) ([]*Boundary, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "census: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(names ...string) func() string {
		for _, n := range names {
			if idx, ok := fieldIdx[n]; ok {
				return func() string {
					return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
				}
			}
		}
		return func() string { return "" }
	}
	geoidAttr := attr("geoid", "geoid10", "geoid20")
	nameAttr := attr("namelsad", "namelsad10", "namelsad20", "name", "name10")
	abbrAttr := attr("stusps", "stusps10")

	var boundaries []*Boundary
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		geoid := geoidAttr()
		if geoid == "" {
			skipped++
			continue
		}

		boundaries = append(boundaries, &Boundary{
			GeoID:    geoid,
			Name:     nameAttr(),
			Abbr:     abbrAttr(),
			Geometry: mp,
		})
	}

	if skipped > 0 {
		zap.L().Debug("census: skipped shapefile records",
			zap.String("layer", string(layer)),
			zap.Int("skipped", skipped),
		)
	}

	return boundaries, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Each shapefile part becomes one single-ring polygon; containment tests use
// even-odd ring counting so hole orientation does not matter.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4269)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a closed ring needs at least 4 points
			continue
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("census: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("census: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
