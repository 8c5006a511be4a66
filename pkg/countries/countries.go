// Package countries resolves country identifiers to ISO 3166-1 alpha-2
// codes. The phone normalizer needs an alpha-2 region to parse national
// numbers; upstream data carries countries as alpha-2, alpha-3, or free-text
// names depending on the source system.
package countries

import (
	_ "embed"
	"encoding/csv"
	"strings"
	"sync"
)

//go:embed country_codes.csv
var countryCodesCSV string

var (
	loadOnce sync.Once
	byISO    map[string]string
	byISO3   map[string]string
	byName   map[string]string
)

func load() {
	byISO = make(map[string]string)
	byISO3 = make(map[string]string)
	byName = make(map[string]string)

	reader := csv.NewReader(strings.NewReader(countryCodesCSV))
	rows, err := reader.ReadAll()
	if err != nil {
		// The table is embedded at build time; a parse failure is a
		// programming error, not an input error.
		panic("countries: invalid embedded country_codes.csv: " + err.Error())
	}

	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue // header
		}
		iso := strings.ToUpper(strings.TrimSpace(row[0]))
		byISO[strings.ToLower(iso)] = iso
		byISO3[strings.TrimSpace(row[1])] = iso
		byName[strings.TrimSpace(row[2])] = iso
	}
}

// Resolve maps an ISO alpha-2 code, ISO alpha-3 code, or English country
// name to an upper-case alpha-2 code. Matching is case-insensitive. The
// second return is false when the input is not recognized.
func Resolve(country string) (string, bool) {
	loadOnce.Do(load)

	key := strings.ToLower(strings.TrimSpace(country))
	if key == "" {
		return "", false
	}

	// Common aliases that appear in CRM exports but not in the table.
	switch key {
	case "uk", "england", "great britain":
		key = "united kingdom"
	case "usa", "u.s.", "u.s.a.", "united states of america", "america":
		key = "united states"
	}

	if iso, ok := byISO[key]; ok {
		return iso, true
	}
	if iso, ok := byISO3[key]; ok {
		return iso, true
	}
	if iso, ok := byName[key]; ok {
		return iso, true
	}

	return "", false
}
