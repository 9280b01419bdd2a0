// Package model defines the domain types shared across the qualifying-area
// pipeline: geography levels, criteria labels, and the unified output record.
package model

import (
	"github.com/rotisserie/eris"
)

// Geography is the Census geometry level a criteria run resolves areas to.
type Geography string

const (
	GeographyState  Geography = "state"
	GeographyCounty Geography = "county"
	GeographyTract  Geography = "tract"
)

// ParseGeography converts a CLI flag value into a Geography.
func ParseGeography(s string) (Geography, error) {
	switch s {
	case "state":
		return GeographyState, nil
	case "county":
		return GeographyCounty, nil
	case "tract":
		return GeographyTract, nil
	default:
		return "", eris.Errorf("unknown geography %q (valid: state, county, tract)", s)
	}
}

// Criteria labels for the statutory qualifying conditions.
const (
	CriteriaCoalMine         = "coal_mine"
	CriteriaCoalPlant        = "coal_plant"
	CriteriaBrownfield       = "brownfield"
	CriteriaFossilEmployment = "fossil_fuel_employment"
)

// AdjacentCriteria returns the criteria label for an area that qualifies by
// adjacency to a closure site, e.g. "coal_mine_adjacent_tract".
func AdjacentCriteria(closure string, geography Geography) string {
	return closure + "_adjacent_" + string(geography)
}

// Area is one qualifying-area record in the combined output table.
// GeoID is the five-digit county FIPS for counties and non-MSAs, the
// eleven-digit tract FIPS for tracts, and the five-digit MSA code for
// metropolitan statistical areas.
type Area struct {
	TractIDFIPS  string   `csv:"tract_id_fips,omitempty" json:"tract_id_fips,omitempty"`
	TractName    string   `csv:"tract_name,omitempty" json:"tract_name,omitempty"`
	CountyIDFIPS string   `csv:"county_id_fips" json:"county_id_fips"`
	CountyName   string   `csv:"county_name" json:"county_name"`
	StateIDFIPS  string   `csv:"state_id_fips" json:"state_id_fips"`
	StateAbbr    string   `csv:"state_abbr" json:"state_abbr"`
	StateName    string   `csv:"state_name" json:"state_name"`
	GeoID        string   `csv:"geoid" json:"geoid"`
	SiteName     string   `csv:"site_name,omitempty" json:"site_name,omitempty"`
	Criteria     string   `csv:"qualifying_criteria" json:"qualifying_criteria"`
	Level        string   `csv:"qualifying_area" json:"qualifying_area"`
	Latitude     *float64 `csv:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude    *float64 `csv:"longitude,omitempty" json:"longitude,omitempty"`
	SiteGeometry string   `csv:"site_geometry,omitempty" json:"site_geometry,omitempty"`
	AreaGeometry string   `csv:"area_geometry,omitempty" json:"area_geometry,omitempty"`
}

// MSACounty is one row of the MSA-to-county crosswalk. Counties outside any
// metropolitan statistical area belong to a BLS nonmetropolitan area instead;
// those rows carry the nonmetropolitan area code in MSACode.
type MSACounty struct {
	MSACode      string `csv:"msa_code"`
	MSAName      string `csv:"msa_name"`
	CountyIDFIPS string `csv:"county_id_fips"`
	StateIDFIPS  string `csv:"state_id_fips"`
	State        string `csv:"state"`
	Nonmetro     bool   `csv:"nonmetro"`
}
