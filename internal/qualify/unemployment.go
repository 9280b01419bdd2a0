package qualify

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

// UnemploymentArea is one county's unemployment evaluation for one year.
// MSA rates expand to the member counties through the crosswalk;
// nonmetropolitan counties carry their area's aggregated rate.
type UnemploymentArea struct {
	SeriesID     string
	Year         int
	Rate         float64
	MSACode      string
	MSAName      string
	Meets        bool
	CountyIDFIPS string
	GeoID        string
}

// UnemploymentRates evaluates the unemployment criteria: an area qualifies
// in year Y when its annual average unemployment rate is at or above the
// national annual average of year Y-1.
//
// Metropolitan areas are evaluated on their published MSA rate series and
// the verdict expands to the member counties. BLS publishes no rate series
// for nonmetropolitan areas, so those are evaluated by summing the member
// counties' unemployment and labor force levels; the area rate, truncated
// to one decimal, carries one verdict for every member county. Counties
// inside an MSA are covered by the MSA series and skipped at the county
// level.
func UnemploymentRates(
	national []transform.NationalRate,
	rates []transform.AreaRate,
	areas []transform.LocalArea,
	crosswalk []model.MSACounty,
) []UnemploymentArea {
	nationalFor := make(map[int]float64, len(national))
	for _, n := range national {
		nationalFor[n.AppliesToYear] = n.Rate
	}

	// series ID → year → annual average value
	values := make(map[string]map[int]float64, len(rates))
	for _, r := range rates {
		if values[r.SeriesID] == nil {
			values[r.SeriesID] = make(map[int]float64)
		}
		values[r.SeriesID][r.Year] = r.Rate
	}

	metroCounties := make(map[string][]model.MSACounty)
	countyRow := make(map[string]model.MSACounty)
	for _, row := range crosswalk {
		if !row.Nonmetro {
			metroCounties[row.MSACode] = append(metroCounties[row.MSACode], row)
		}
		countyRow[row.CountyIDFIPS] = row
	}

	missingMSAs := make(map[string]bool)
	var out []UnemploymentArea

	type areaYear struct {
		msaCode string
		year    int
	}
	type member struct {
		seriesID string
		fips     string
		name     string
	}
	unempSums := make(map[areaYear]float64)
	lfSums := make(map[areaYear]float64)
	members := make(map[areaYear][]member)

	for _, area := range areas {
		switch area.Level {
		case transform.LevelMetro:
			msaCode := area.MSACode()
			counties := metroCounties[msaCode]
			if len(counties) == 0 {
				if !missingMSAs[msaCode] {
					missingMSAs[msaCode] = true
					zap.L().Warn("qualify: MSA missing from county crosswalk",
						zap.String("msa_code", msaCode),
						zap.String("area", area.AreaText),
					)
				}
				continue
			}
			for year, rate := range values[area.SeriesID] {
				nationalPrev, haveNational := nationalFor[year]
				meets := haveNational && rate >= nationalPrev
				for _, county := range counties {
					out = append(out, UnemploymentArea{
						SeriesID:     area.SeriesID,
						Year:         year,
						Rate:         rate,
						MSACode:      msaCode,
						MSAName:      area.AreaText,
						Meets:        meets,
						CountyIDFIPS: county.CountyIDFIPS,
						GeoID:        county.CountyIDFIPS,
					})
				}
			}

		case transform.LevelCounty:
			countyFIPS := area.CountyFIPS()
			row, ok := countyRow[countyFIPS]
			if !ok || !row.Nonmetro {
				continue
			}
			unemp := values[area.MeasureSeriesID(transform.MeasureUnemployment)]
			laborForce := values[area.MeasureSeriesID(transform.MeasureLaborForce)]
			for year, u := range unemp {
				lf, ok := laborForce[year]
				if !ok || lf == 0 {
					continue
				}
				key := areaYear{row.MSACode, year}
				unempSums[key] += u
				lfSums[key] += lf
				members[key] = append(members[key], member{
					seriesID: area.SeriesID,
					fips:     countyFIPS,
					name:     row.MSAName,
				})
			}
		}
	}

	for key, unemp := range unempSums {
		rate := truncate1(100 * unemp / lfSums[key])
		nationalPrev, haveNational := nationalFor[key.year]
		meets := haveNational && rate >= nationalPrev
		for _, m := range members[key] {
			out = append(out, UnemploymentArea{
				SeriesID:     m.seriesID,
				Year:         key.year,
				Rate:         rate,
				MSACode:      key.msaCode,
				MSAName:      m.name,
				Meets:        meets,
				CountyIDFIPS: m.fips,
				GeoID:        m.fips,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SeriesID != out[j].SeriesID {
			return out[i].SeriesID < out[j].SeriesID
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].CountyIDFIPS < out[j].CountyIDFIPS
	})
	return out
}

// truncate1 truncates to one decimal, matching the precision of the
// published area rates.
func truncate1(v float64) float64 {
	return math.Trunc(v*10) / 10
}
