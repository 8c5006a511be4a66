package match

import (
	"sort"
)

// Summary is the aggregated match evidence for one (left, right) record pair:
// how many distinct features matched and which ones.
type Summary struct {
	LeftID     string
	RightID    string
	MatchCount int
	MatchType  string    // canonical label, see MatchTypeLabel
	Features   []Feature // sorted; nil for self-pair sentinels
	Group      string    // match group id, dedupe mode only
}

// aggregate collapses per-feature candidates into one summary per distinct
// (left, right) pair. Output is sorted by pair id for determinism; the
// orchestrator applies the final evidence ordering.
func aggregate(candidates []candidate) []Summary {
	type pair struct {
		left, right string
	}

	byPair := make(map[pair]map[Feature]struct{})
	for _, c := range candidates {
		p := pair{left: c.leftID, right: c.rightID}
		features, ok := byPair[p]
		if !ok {
			features = make(map[Feature]struct{})
			byPair[p] = features
		}
		features[c.feature] = struct{}{}
	}

	summaries := make([]Summary, 0, len(byPair))
	for p, set := range byPair {
		features := make([]Feature, 0, len(set))
		for f := range set {
			features = append(features, f)
		}
		sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })

		summaries = append(summaries, Summary{
			LeftID:     p.left,
			RightID:    p.right,
			MatchCount: len(features),
			MatchType:  MatchTypeLabel(features),
			Features:   features,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LeftID != summaries[j].LeftID {
			return summaries[i].LeftID < summaries[j].LeftID
		}
		return summaries[i].RightID < summaries[j].RightID
	})

	return summaries
}

// sortByEvidence orders summaries with the strongest evidence first:
// match_count descending, then match_type descending on the serialized
// label, then pair ids ascending as a deterministic tiebreak.
func sortByEvidence(summaries []Summary) {
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.MatchCount != b.MatchCount {
			return a.MatchCount > b.MatchCount
		}
		if a.MatchType != b.MatchType {
			return a.MatchType > b.MatchType
		}
		if a.LeftID != b.LeftID {
			return a.LeftID < b.LeftID
		}
		return a.RightID < b.RightID
	})
}
