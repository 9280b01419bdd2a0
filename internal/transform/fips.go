// Package transform cleans the extracted records and reshapes them into the
// typed inputs the criteria evaluation works on.
package transform

import "strings"

// NormalizeStateFIPS pads a state FIPS code to two digits.
func NormalizeStateFIPS(code string) string {
	return zfill(strings.TrimSpace(code), 2)
}

// NormalizeCountyFIPS pads a county FIPS code to three digits.
func NormalizeCountyFIPS(code string) string {
	return zfill(strings.TrimSpace(code), 3)
}

// CombineFIPS builds the five-digit county FIPS from state and county parts.
func CombineFIPS(state, county string) string {
	return NormalizeStateFIPS(state) + NormalizeCountyFIPS(county)
}

func zfill(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
