package qualify

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/census"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// Namer fills county and state naming columns on output records from the
// Census boundary atlases. Nil atlases leave the columns empty.
type Namer struct {
	Counties *census.Atlas
	States   *census.Atlas
}

// describe fills the county and state columns for a five digit county FIPS.
func (n Namer) describe(a *model.Area, countyFIPS string) {
	if len(countyFIPS) < 5 {
		return
	}
	a.CountyIDFIPS = countyFIPS
	a.StateIDFIPS = countyFIPS[:2]

	if n.Counties != nil {
		if county, ok := n.Counties.Get(countyFIPS); ok {
			a.CountyName = county.Name
		}
	}
	if n.States != nil {
		if state, ok := n.States.Get(countyFIPS[:2]); ok {
			a.StateName = state.Name
			a.StateAbbr = state.Abbr
		}
	}
}

// areaWKT serializes a boundary geometry, logging rather than failing on
// marshal errors.
func areaWKT(g geom.T) string {
	if g == nil {
		return ""
	}
	s, err := wkt.Marshal(g)
	if err != nil {
		zap.L().Warn("qualify: marshal area geometry", zap.Error(err))
		return ""
	}
	return s
}

// pointWKT serializes a site coordinate as a WKT point.
func pointWKT(lon, lat float64) string {
	s, err := wkt.Marshal(geom.NewPointFlat(geom.XY, []float64{lon, lat}))
	if err != nil {
		return ""
	}
	return s
}

// Combine concatenates the per-criteria outputs into the single combined
// table.
func Combine(groups ...[]model.Area) []model.Area {
	var total int
	for _, g := range groups {
		total += len(g)
	}
	out := make([]model.Area, 0, total)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
