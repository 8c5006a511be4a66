package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTypeLabelOrderInvariant(t *testing.T) {
	a := MatchTypeLabel([]Feature{FeatureDomain, FeaturePhone})
	b := MatchTypeLabel([]Feature{FeaturePhone, FeatureDomain})

	assert.Equal(t, a, b)
	assert.Equal(t, `["domain","phone"]`, a)
}

func TestFilterSummaries(t *testing.T) {
	summaries := []Summary{
		{LeftID: "1", RightID: "a", MatchCount: 1, MatchType: MatchTypeLabel([]Feature{FeatureDomain})},
		{LeftID: "2", RightID: "b", MatchCount: 1, MatchType: MatchTypeLabel([]Feature{FeaturePhone})},
		{LeftID: "3", RightID: "c", MatchCount: 2, MatchType: MatchTypeLabel([]Feature{FeatureAddress, FeatureEntityName})},
		{LeftID: "4", RightID: "d", MatchCount: 3, MatchType: MatchTypeLabel([]Feature{FeatureAddress, FeatureDomain, FeaturePhone})},
	}

	t.Run("threshold retains high counts", func(t *testing.T) {
		kept := filterSummaries(summaries, Policy{Threshold: 2})
		assert.Len(t, kept, 2)
		assert.Equal(t, "3", kept[0].LeftID)
		assert.Equal(t, "4", kept[1].LeftID)
	})

	t.Run("allow list rescues below threshold", func(t *testing.T) {
		policy := Policy{Threshold: 2, Include: [][]Feature{{FeatureDomain}}}
		kept := filterSummaries(summaries, policy)
		assert.Len(t, kept, 3)
		assert.Equal(t, "1", kept[0].LeftID)
	})

	t.Run("deny list rejects regardless of count", func(t *testing.T) {
		policy := Policy{
			Threshold: 2,
			Exclude:   [][]Feature{{FeatureAddress, FeatureDomain, FeaturePhone}},
		}
		kept := filterSummaries(summaries, policy)
		assert.Len(t, kept, 1)
		assert.Equal(t, "3", kept[0].LeftID)
	})

	t.Run("raising threshold never adds rows", func(t *testing.T) {
		for threshold := 1; threshold <= 4; threshold++ {
			lower := filterSummaries(summaries, Policy{Threshold: threshold})
			higher := filterSummaries(summaries, Policy{Threshold: threshold + 1})

			retained := make(map[string]bool)
			for _, s := range lower {
				retained[s.LeftID+"|"+s.RightID] = true
			}
			for _, s := range higher {
				assert.True(t, retained[s.LeftID+"|"+s.RightID])
			}
		}
	})
}

func TestDefaultPolicies(t *testing.T) {
	link := DefaultLinkPolicy()
	assert.Equal(t, 2, link.Threshold)
	assert.Contains(t, labelSet(link.Include), MatchTypeLabel([]Feature{FeatureDomain}))

	dedupe := DefaultDedupePolicy()
	assert.Equal(t, 3, dedupe.Threshold)
	assert.Contains(t, labelSet(dedupe.Include), MatchTypeLabel([]Feature{FeatureAddress, FeatureEntityName}))
}
