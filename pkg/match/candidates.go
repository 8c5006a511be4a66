package match

import (
	"github.com/Ramsey-B/clover/pkg/records"
)

// candidate is a single-feature equality hit between one left and one right
// record. Duplicates across features for the same pair are expected; the
// aggregator counts them.
type candidate struct {
	leftID  string
	rightID string
	feature Feature
}

// keyFunc derives the canonical comparison key for one row. ok is false when
// the row has no usable key for the feature, which drops it from that
// feature's candidate generation only.
type keyFunc func(row records.Row) (string, bool)

// matchFeature inner-joins two frames on canonical key equality for one
// feature. Each side has its own key function because frame columns carry the
// side suffix. Rows with a null key or a null identifier never produce a pair.
func matchFeature(left, right *Frame, feature Feature, leftKey, rightKey keyFunc) []candidate {
	index := make(map[string][]string)
	for _, row := range left.Set().Rows() {
		id, ok := left.rowID(row)
		if !ok {
			continue
		}
		k, ok := leftKey(row)
		if !ok {
			continue
		}
		index[k] = append(index[k], id)
	}

	if len(index) == 0 {
		return nil
	}

	var out []candidate
	for _, row := range right.Set().Rows() {
		id, ok := right.rowID(row)
		if !ok {
			continue
		}
		k, ok := rightKey(row)
		if !ok {
			continue
		}
		for _, leftID := range index[k] {
			out = append(out, candidate{leftID: leftID, rightID: id, feature: feature})
		}
	}

	return out
}
