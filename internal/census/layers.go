// Package census downloads Census TIGER/Line boundary shapefiles and builds
// in-memory atlases that answer the two spatial questions the pipeline asks:
// which boundary contains a point, and which boundaries touch a given one.
package census

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/catalyst-cooperative/rmi-energy-communities/internal/model"
)

const (
	tigerHTTPBase = "https://www2.census.gov/geo/tiger/TIGER%d"
	tigerFTPBase  = "ftp://ftp2.census.gov/geo/tiger/TIGER%d"
)

// StateFIPS lists the state-level FIPS codes TIGER publishes tract files for:
// the fifty states, DC, and Puerto Rico.
var StateFIPS = []string{
	"01", "02", "04", "05", "06", "08", "09", "10", "11", "12",
	"13", "15", "16", "17", "18", "19", "20", "21", "22", "23",
	"24", "25", "26", "27", "28", "29", "30", "31", "32", "33",
	"34", "35", "36", "37", "38", "39", "40", "41", "42", "44",
	"45", "46", "47", "48", "49", "50", "51", "53", "54", "55",
	"56", "72",
}

// LayerURLs returns the TIGER/Line ZIP URLs for a geography level.
// State and county are single national files; tracts are one file per state.
func LayerURLs(layer model.Geography, year int) ([]string, error) {
	base := fmt.Sprintf(tigerHTTPBase, year)
	return layerURLs(layer, base, year)
}

// LayerFTPURLs returns the same product paths on the Census FTP mirror.
func LayerFTPURLs(layer model.Geography, year int) ([]string, error) {
	base := fmt.Sprintf(tigerFTPBase, year)
	return layerURLs(layer, base, year)
}

func layerURLs(layer model.Geography, base string, year int) ([]string, error) {
	switch layer {
	case model.GeographyState:
		return []string{fmt.Sprintf("%s/STATE/tl_%d_us_state.zip", base, year)}, nil
	case model.GeographyCounty:
		return []string{fmt.Sprintf("%s/COUNTY/tl_%d_us_county.zip", base, year)}, nil
	case model.GeographyTract:
		urls := make([]string, 0, len(StateFIPS))
		for _, fips := range StateFIPS {
			urls = append(urls, fmt.Sprintf("%s/TRACT/tl_%d_%s_tract.zip", base, year, fips))
		}
		return urls, nil
	default:
		return nil, eris.Errorf("census: no TIGER product for layer %q", layer)
	}
}
