package match

// Policy controls which aggregated pairs are retained. A summary survives
// when (match_count >= Threshold OR its feature set is in Include) AND its
// feature set is not in Exclude.
type Policy struct {
	Threshold int
	Include   [][]Feature
	Exclude   [][]Feature
}

// DefaultLinkPolicy favors precision when linking two datasets: two features
// must agree, or the pair matched on domain alone.
func DefaultLinkPolicy() Policy {
	return Policy{
		Threshold: 2,
		Include:   [][]Feature{{FeatureDomain}},
	}
}

// DefaultDedupePolicy is stricter on count but allows the strong single
// identifier and any pair of weaker ones. Within one dataset, coincidental
// two-feature agreement is more common, so the allow-list is explicit.
func DefaultDedupePolicy() Policy {
	return Policy{
		Threshold: 3,
		Include: [][]Feature{
			{FeatureDomain},
			{FeatureAddress, FeatureEntityName},
			{FeatureEntityName, FeaturePhone},
			{FeatureAddress, FeaturePhone},
		},
	}
}

// labelSet canonicalizes feature combinations for O(1) membership checks.
func labelSet(combos [][]Feature) map[string]struct{} {
	set := make(map[string]struct{}, len(combos))
	for _, combo := range combos {
		set[MatchTypeLabel(combo)] = struct{}{}
	}
	return set
}

// filterSummaries applies the policy. The input order is preserved, so a
// filtered result at a higher threshold is always a subset of the result at a
// lower one.
func filterSummaries(summaries []Summary, policy Policy) []Summary {
	include := labelSet(policy.Include)
	exclude := labelSet(policy.Exclude)

	kept := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if _, rejected := exclude[s.MatchType]; rejected {
			continue
		}
		if s.MatchCount >= policy.Threshold {
			kept = append(kept, s)
			continue
		}
		if _, allowed := include[s.MatchType]; allowed {
			kept = append(kept, s)
		}
	}
	return kept
}
