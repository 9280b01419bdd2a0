// Package qualify applies the statutory criteria to the transformed datasets
// and produces qualifying-area records.
package qualify

import (
	"sort"

	"go.uber.org/zap"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/transform"
)

// FossilShareThreshold is the direct fossil fuel employment share above
// which an area qualifies (0.17%).
const FossilShareThreshold = 0.0017

// FossilNAICSCodes are the industries counted as fossil fuel employment:
// coal mining, oil and gas extraction, support activities for mining, oil
// and gas pipeline construction, pipeline transportation, petroleum
// wholesalers, and fossil fuel electric power generation.
var FossilNAICSCodes = []string{"2121", "211", "213", "23712", "486", "4247", "22112"}

// fossilNAICSSet is FossilNAICSCodes as a lookup set.
var fossilNAICSSet = func() map[string]bool {
	set := make(map[string]bool, len(FossilNAICSCodes))
	for _, code := range FossilNAICSCodes {
		set[code] = true
	}
	return set
}()

// IsFossilIndustry reports whether a QCEW industry code counts as fossil
// fuel employment.
func IsFossilIndustry(code string) bool {
	return fossilNAICSSet[code]
}

// FossilArea is one county's fossil employment evaluation. Employment is
// aggregated at the MSA or nonmetropolitan-area level and then expanded to
// the member counties through the crosswalk, so counties of the same area
// share the area-level figures.
type FossilArea struct {
	MSACode         string
	AreaTitle       string
	Year            int
	TotalEmployees  int
	FossilEmployees int
	FossilShare     float64
	Meets           bool
	CountyIDFIPS    string
	GeoID           string
}

type areaYear struct {
	msaCode string
	year    int
}

// FossilEmployment evaluates the fossil fuel employment criteria.
//
// Total employment is the industry code "10", ownership code 0 aggregate.
// Fossil employment sums the fossil NAICS industries across ownership
// codes. MSA records aggregate directly; county records roll up into their
// nonmetropolitan area. Counties inside an MSA are covered by the MSA
// records and skipped at the county level.
func FossilEmployment(records []extract.QCEWRecord, titles map[string]string, crosswalk []model.MSACounty) []FossilArea {
	metroCounties := make(map[string][]model.MSACounty)
	nonmetroCounties := make(map[string][]model.MSACounty)
	nonmetroByCounty := make(map[string]model.MSACounty)
	areaNames := make(map[string]string)
	for _, row := range crosswalk {
		if row.Nonmetro {
			nonmetroCounties[row.MSACode] = append(nonmetroCounties[row.MSACode], row)
			nonmetroByCounty[row.CountyIDFIPS] = row
		} else {
			metroCounties[row.MSACode] = append(metroCounties[row.MSACode], row)
		}
		areaNames[row.MSACode] = row.MSAName
	}

	totals := make(map[areaYear]int)
	fossil := make(map[areaYear]int)
	titlesByCode := make(map[string]string)
	for _, rec := range records {
		title := titles[rec.AreaFIPS]
		level := transform.ClassifyAreaTitle(title)

		var msaCode string
		switch level {
		case transform.LevelMetro:
			msaCode = rec.AreaFIPS
			titlesByCode[msaCode] = title
		case transform.LevelCounty:
			countyFIPS := transform.QCEWGeoID(rec.AreaFIPS, level)
			nm, ok := nonmetroByCounty[countyFIPS]
			if !ok {
				continue // county belongs to an MSA, covered by the MSA records
			}
			msaCode = nm.MSACode
			titlesByCode[msaCode] = nm.MSAName
		default:
			continue
		}

		key := areaYear{msaCode, rec.Year}
		if rec.IndustryCode == "10" && rec.OwnCode == 0 {
			totals[key] += rec.AnnualAvgEmp
		}
		if fossilNAICSSet[rec.IndustryCode] {
			fossil[key] += rec.AnnualAvgEmp
		}
	}

	for key := range fossil {
		if _, ok := totals[key]; !ok {
			zap.L().Warn("qualify: area has fossil employment but no total employment record",
				zap.String("msa_code", key.msaCode),
				zap.Int("year", key.year),
			)
		}
	}

	var out []FossilArea
	for key, total := range totals {
		if total == 0 {
			continue
		}
		counties := metroCounties[key.msaCode]
		if len(counties) == 0 {
			counties = nonmetroCounties[key.msaCode]
		}
		if len(counties) == 0 {
			continue // no crosswalk entry, nothing to expand to
		}

		fossilEmp := fossil[key] // missing fossil employment counts as zero
		share := float64(fossilEmp) / float64(total)
		title := titlesByCode[key.msaCode]
		if title == "" {
			title = areaNames[key.msaCode]
		}
		for _, county := range counties {
			out = append(out, FossilArea{
				MSACode:         key.msaCode,
				AreaTitle:       title,
				Year:            key.year,
				TotalEmployees:  total,
				FossilEmployees: fossilEmp,
				FossilShare:     share,
				Meets:           share > FossilShareThreshold,
				CountyIDFIPS:    county.CountyIDFIPS,
				GeoID:           county.CountyIDFIPS,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MSACode != out[j].MSACode {
			return out[i].MSACode < out[j].MSACode
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].CountyIDFIPS < out[j].CountyIDFIPS
	})
	return out
}
