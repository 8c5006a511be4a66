// Package match implements the record-linkage engine: per-feature
// canonicalization, candidate generation, match aggregation, policy
// filtering, and transitive grouping of matched records.
package match

import (
	"encoding/json"
	"sort"
)

// Feature is one weak-identity attribute used for matching.
type Feature string

const (
	FeatureDomain     Feature = "domain"
	FeaturePhone      Feature = "phone"
	FeatureAddress    Feature = "address"
	FeatureEntityName Feature = "entity_name"
)

// allFeatures is the fixed evaluation order. Candidate generation per feature
// is independent, so the order only affects intermediate logging.
var allFeatures = []Feature{FeatureDomain, FeaturePhone, FeatureAddress, FeatureEntityName}

// requiredRoles returns the role columns a frame must declare for this
// feature to run. Phone needs a country alongside the number to resolve
// national formats.
func (f Feature) requiredRoles(r Roles) []string {
	switch f {
	case FeatureDomain:
		return []string{r.Domain}
	case FeaturePhone:
		return []string{r.Phone, r.Country}
	case FeatureAddress:
		return []string{r.Address}
	case FeatureEntityName:
		return []string{r.EntityName}
	default:
		return nil
	}
}

// enabledOn reports whether the frame declares every role the feature needs.
func (f Feature) enabledOn(frame *Frame) bool {
	roles := f.requiredRoles(frame.Roles())
	if len(roles) == 0 {
		return false
	}
	for _, col := range roles {
		if col == "" {
			return false
		}
	}
	return true
}

// MatchTypeLabel serializes a feature set into its canonical form: the
// feature names sorted and JSON-encoded. Equal feature sets always produce an
// identical label regardless of evaluation order.
func MatchTypeLabel(features []Feature) string {
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = string(f)
	}
	sort.Strings(names)

	label, err := json.Marshal(names)
	if err != nil {
		// Marshaling a []string cannot fail.
		panic(err)
	}
	return string(label)
}

// selfMatchType is the sentinel label for a record paired with itself in
// dedupe mode.
var selfMatchType = MatchTypeLabel([]Feature{"self"})
