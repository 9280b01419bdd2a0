package transform

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/extract"
	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

// GeoLevel is the geographic level of a BLS area, derived from its title.
type GeoLevel string

const (
	LevelState      GeoLevel = "state"
	LevelCounty     GeoLevel = "county"
	LevelMetro      GeoLevel = "metropolitan_stat_area"
	LevelMicro      GeoLevel = "micropolitan_stat_area"
	LevelAggregated GeoLevel = "aggregated_stat_area"
	LevelNationwide GeoLevel = "nationwide"
	LevelUndefined  GeoLevel = "undefined"
)

// ClassifyAreaTitle derives the geographic level of a QCEW area from
// substrings of its title. Later checks override earlier ones: "Abilene, TX
// MSA" contains "MSA" and classifies as metropolitan even though county
// names also appear in some titles.
func ClassifyAreaTitle(title string) GeoLevel {
	level := LevelUndefined
	if strings.Contains(title, "Statewide") {
		level = LevelState
	}
	if strings.Contains(title, "Parish") || strings.Contains(title, "City") ||
		strings.Contains(title, "Borough") || strings.Contains(title, "County") {
		level = LevelCounty
	}
	if strings.Contains(title, "MSA") {
		level = LevelMetro
	}
	if strings.Contains(title, "MicroSA") {
		level = LevelMicro
	}
	if strings.Contains(title, "(Combined)") {
		level = LevelAggregated
	}
	if strings.Contains(title, "TOTAL") {
		level = LevelNationwide
	}
	if strings.Contains(title, "Unknown") {
		level = LevelUndefined
	}
	return level
}

// QCEWGeoID normalizes a QCEW area FIPS code into the geoid used for joins
// with the Census crosswalk: zero-filled to five digits, the MSA "C" prefix
// stripped and a trailing zero appended so C1018 becomes 10180.
func QCEWGeoID(areaFIPS string, level GeoLevel) string {
	geoid := zfill(strings.TrimSpace(areaFIPS), 5)
	geoid = strings.ReplaceAll(geoid, "C", "")
	if level == LevelMetro {
		geoid += "0"
	}
	return geoid
}

// NationalRate is the annual average national unemployment rate. The statute
// compares each area against the national rate of the previous year, so the
// rate for Year applies to criteria decisions in AppliesToYear.
type NationalRate struct {
	Year          int
	Rate          float64
	AppliesToYear int
}

// NationalAnnualAverages reduces monthly CPS observations to annual averages
// rounded to one decimal, the precision BLS publishes.
func NationalAnnualAverages(obs []extract.CPSObservation) []NationalRate {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, o := range obs {
		if !monthlyPeriod(o.Period) {
			continue
		}
		sums[o.Year] += o.Value
		counts[o.Year]++
	}

	rates := make([]NationalRate, 0, len(sums))
	for year, sum := range sums {
		rates = append(rates, NationalRate{
			Year:          year,
			Rate:          round1(sum / float64(counts[year])),
			AppliesToYear: year + 1,
		})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Year < rates[j].Year })
	return rates
}

// AreaRate is the annual average unemployment rate for one LAU series.
type AreaRate struct {
	SeriesID string
	Year     int
	Rate     float64
}

// LAUAnnualAverages reduces monthly LAU observations to annual averages.
// The published M13 annual values are skipped: they are null whenever a
// monthly value is missing, so the average is recomputed from the months
// present. Non-numeric values ("-") are dropped.
func LAUAnnualAverages(rows []extract.LAURow) []AreaRate {
	type key struct {
		seriesID string
		year     int
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, row := range rows {
		if !monthlyPeriod(row.Period) {
			continue
		}
		value, err := strconv.ParseFloat(row.Value, 64)
		if err != nil {
			continue
		}
		k := key{strings.TrimSpace(row.SeriesID), row.Year}
		sums[k] += value
		counts[k]++
	}

	rates := make([]AreaRate, 0, len(sums))
	for k, sum := range sums {
		rates = append(rates, AreaRate{
			SeriesID: k.seriesID,
			Year:     k.year,
			Rate:     round1(sum / float64(counts[k])),
		})
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].SeriesID != rates[j].SeriesID {
			return rates[i].SeriesID < rates[j].SeriesID
		}
		return rates[i].Year < rates[j].Year
	})
	return rates
}

// LAU measure codes, the last two characters of a series ID.
const (
	MeasureUnemploymentRate = "03"
	MeasureUnemployment     = "04"
	MeasureLaborForce       = "06"
)

// LocalArea is an LAU area of interest: a county or a metropolitan
// statistical area, with its unemployment rate series ID reconstructed.
type LocalArea struct {
	SeriesID  string
	AreaCode  string
	AreaText  string
	Level     GeoLevel
	StateFIPS string
	GeoID     string
}

// LAUAreaInfo filters the LAU area table down to counties (CN) and
// metropolitan statistical areas (MT) and constructs the unemployment rate
// series ID for each: "LAU" plus the area code prefix, right-padded with
// zeros to 18 characters, plus the "03" rate measure suffix.
func LAUAreaInfo(areas []extract.LAUArea) []LocalArea {
	var out []LocalArea
	for _, area := range areas {
		code := strings.TrimSpace(area.AreaCode)
		if len(code) < 10 {
			continue
		}

		var level GeoLevel
		var geoid, prefix string
		switch code[:2] {
		case "CN":
			level = LevelCounty
			geoid = code[4:7]
			prefix = code[:7]
		case "MT":
			level = LevelMetro
			geoid = code[4:10]
			prefix = code[:10]
		default:
			continue
		}

		seriesID := "LAU" + prefix
		for len(seriesID) < 18 {
			seriesID += "0"
		}
		seriesID += MeasureUnemploymentRate

		out = append(out, LocalArea{
			SeriesID:  seriesID,
			AreaCode:  code,
			AreaText:  area.AreaText,
			Level:     level,
			StateFIPS: code[2:4],
			GeoID:     geoid,
		})
	}
	return out
}

// MeasureSeriesID returns this area's series ID for another LAU measure,
// such as the unemployment or labor force levels.
func (a LocalArea) MeasureSeriesID(measure string) string {
	if len(a.SeriesID) < 2 {
		return ""
	}
	return a.SeriesID[:len(a.SeriesID)-2] + measure
}

// MSACode returns the QCEW-style MSA code for a metropolitan LAU area:
// geoid "101800" belongs to MSA C1018.
func (a LocalArea) MSACode() string {
	if a.Level != LevelMetro || len(a.GeoID) < 4 {
		return ""
	}
	return "C" + a.GeoID[:4]
}

// CountyFIPS returns the five-digit county FIPS for a county LAU area.
func (a LocalArea) CountyFIPS() string {
	if a.Level != LevelCounty {
		return ""
	}
	return a.StateFIPS + a.GeoID
}

// AreaTitles maps QCEW area codes to their display titles.
func AreaTitles(titles []extract.AreaTitle) map[string]string {
	m := make(map[string]string, len(titles))
	for _, t := range titles {
		m[t.AreaFIPS] = t.AreaTitle
	}
	return m
}

// QCEWMSACode converts a census-form metropolitan area code into the form
// QCEW uses as an area FIPS: the trailing zero dropped and a "C" prefixed,
// so 10180 becomes C1018. Codes already in QCEW form pass through.
func QCEWMSACode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.HasPrefix(code, "C") {
		return code
	}
	return "C" + strings.TrimSuffix(code, "0")
}

// MSACrosswalk reshapes the MSA definitions workbook into crosswalk rows,
// one per county. The workbook stores metropolitan codes in the census form
// (10180); they are converted to the QCEW form (C1018) so the crosswalk
// joins against QCEW area codes and LAU series directly. Counties in
// nonmetropolitan areas carry the nonmetropolitan area code unchanged.
func MSACrosswalk(defs []extract.MSADefinition) []model.MSACounty {
	var rows []model.MSACounty
	seen := make(map[string]bool)
	for _, def := range defs {
		nonmetro := strings.Contains(def.MSAName, "nonmetropolitan")
		msaCode := strings.TrimSpace(def.MSACode)
		if !nonmetro {
			msaCode = QCEWMSACode(msaCode)
		}
		countyFIPS := CombineFIPS(def.StateFIPS, def.CountyFIPS)
		dedupeKey := msaCode + "|" + countyFIPS
		if seen[dedupeKey] {
			continue // township rows repeat the county
		}
		seen[dedupeKey] = true
		rows = append(rows, model.MSACounty{
			MSACode:      msaCode,
			MSAName:      def.MSAName,
			CountyIDFIPS: countyFIPS,
			StateIDFIPS:  NormalizeStateFIPS(def.StateFIPS),
			State:        def.StateAbbr,
			Nonmetro:     nonmetro,
		})
	}
	return rows
}

func monthlyPeriod(period string) bool {
	return period >= "M01" && period <= "M12"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

