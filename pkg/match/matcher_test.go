package match

import (
	"bytes"
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/records"
)

func newTestMatcher() *Matcher {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return New(logger, Config{})
}

func testSet(t *testing.T, columns []string, rows []records.Row) *records.RecordSet {
	t.Helper()
	set, err := records.New(columns, rows)
	require.NoError(t, err)
	return set
}

func TestRunDomainOnlyMatch(t *testing.T) {
	left := testSet(t, []string{"id", "domain"}, []records.Row{
		{"id": records.String("1"), "domain": records.String("http://www.acme.com")},
	})
	right := testSet(t, []string{"id", "domain"}, []records.Row{
		{"id": records.String("a"), "domain": records.String("acme.com/about")},
	})

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, Roles{Index: "id", Domain: "domain"}))
	require.NoError(t, m.SetRecordSet("upload", right, Roles{Index: "id", Domain: "domain"}))

	result, err := m.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, result.Summaries, 1)
	s := result.Summaries[0]
	assert.Equal(t, "1", s.LeftID)
	assert.Equal(t, "a", s.RightID)
	assert.Equal(t, 1, s.MatchCount)
	assert.Equal(t, `["domain"]`, s.MatchType)

	require.Equal(t, 1, result.Table.Len())
	row := result.Table.Row(0)
	assert.Equal(t, records.String("1"), row.Get("id_crm"))
	assert.Equal(t, records.String("a"), row.Get("id_upload"))
	assert.Equal(t, records.String("1"), row.Get("match_count"))
	assert.Equal(t, records.String(`["domain"]`), row.Get("match_type"))
}

func TestRunPhoneUnresolvableCountry(t *testing.T) {
	left := testSet(t, []string{"id", "phone", "country"}, []records.Row{
		{"id": records.String("1"), "phone": records.String("555-1234"), "country": records.String("Zyzzania")},
	})
	right := testSet(t, []string{"id", "phone", "country"}, []records.Row{
		{"id": records.String("a"), "phone": records.String("555-1234"), "country": records.String("US")},
	})

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, Roles{Index: "id", Phone: "phone", Country: "country"}))
	require.NoError(t, m.SetRecordSet("upload", right, Roles{Index: "id", Phone: "phone", Country: "country"}))

	result, err := m.Run(context.Background(), Options{MatchCountThreshold: 1})
	require.NoError(t, err)
	assert.Empty(t, result.Summaries)
}

func TestRunMultiFeatureAggregation(t *testing.T) {
	left := testSet(t, []string{"id", "domain", "name", "address"}, []records.Row{
		{
			"id":      records.String("1"),
			"domain":  records.String("acme.com"),
			"name":    records.String("Acme Corp LLC"),
			"address": records.String("42 Main Street"),
		},
	})
	right := testSet(t, []string{"id", "domain", "name", "address"}, []records.Row{
		{
			"id":      records.String("a"),
			"domain":  records.String("https://www.acme.com"),
			"name":    records.String("LLC, Acme Corp."),
			"address": records.String("Main Street 42"),
		},
	})

	roles := Roles{Index: "id", Domain: "domain", EntityName: "name", Address: "address"}

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	result, err := m.Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, result.Summaries, 1)
	s := result.Summaries[0]
	assert.Equal(t, 3, s.MatchCount)
	assert.Equal(t, `["address","domain","entity_name"]`, s.MatchType)
}

func TestRunFeatureDisabledWhenRoleMissingOnOneSide(t *testing.T) {
	left := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("1"), "domain": records.String("acme.com"), "name": records.String("Acme")},
	})
	right := testSet(t, []string{"id", "name"}, []records.Row{
		{"id": records.String("a"), "name": records.String("Acme")},
	})

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, Roles{Index: "id", Domain: "domain", EntityName: "name"}))
	require.NoError(t, m.SetRecordSet("upload", right, Roles{Index: "id", EntityName: "name"}))

	result, err := m.Run(context.Background(), Options{MatchCountThreshold: 1})
	require.NoError(t, err)

	// Only entity_name can run; domain contributes nothing and is not an error.
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, `["entity_name"]`, result.Summaries[0].MatchType)
}

func TestRunNullSafety(t *testing.T) {
	left := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("1"), "domain": records.Null(), "name": records.Null()},
		{"id": records.String("2"), "domain": records.String("acme.com"), "name": records.String("Acme")},
	})
	right := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("a"), "domain": records.String("acme.com"), "name": records.String("Acme")},
	})

	roles := Roles{Index: "id", Domain: "domain", EntityName: "name"}

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	result, err := m.Run(context.Background(), Options{MatchCountThreshold: 1})
	require.NoError(t, err)

	for _, s := range result.Summaries {
		assert.NotEqual(t, "1", s.LeftID, "all-null row must never appear in a candidate pair")
	}
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, "2", result.Summaries[0].LeftID)
}

func TestRunDeterministic(t *testing.T) {
	left := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("1"), "domain": records.String("acme.com"), "name": records.String("Acme")},
		{"id": records.String("2"), "domain": records.String("acme.com"), "name": records.String("Beta")},
		{"id": records.String("3"), "domain": records.String("beta.io"), "name": records.String("Beta")},
	})
	right := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("a"), "domain": records.String("acme.com"), "name": records.String("Acme")},
		{"id": records.String("b"), "domain": records.String("beta.io"), "name": records.String("Beta")},
	})

	roles := Roles{Index: "id", Domain: "domain", EntityName: "name"}
	opts := Options{MatchCountThreshold: 1}

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	first, err := m.Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := m.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.Summaries, second.Summaries)

	var a, b bytes.Buffer
	require.NoError(t, first.Table.WriteCSV(&a))
	require.NoError(t, second.Table.WriteCSV(&b))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestRunSymmetric(t *testing.T) {
	one := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("1"), "domain": records.String("acme.com"), "name": records.String("Acme")},
		{"id": records.String("2"), "domain": records.String("beta.io"), "name": records.Null()},
	})
	two := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("a"), "domain": records.String("acme.com"), "name": records.String("Acme Inc")},
		{"id": records.String("b"), "domain": records.String("beta.io"), "name": records.String("Beta")},
	})

	roles := Roles{Index: "id", Domain: "domain", EntityName: "name"}
	opts := Options{MatchCountThreshold: 1}

	forward := newTestMatcher()
	require.NoError(t, forward.SetRecordSet("crm", one, roles))
	require.NoError(t, forward.SetRecordSet("upload", two, roles))
	fwd, err := forward.Run(context.Background(), opts)
	require.NoError(t, err)

	reverse := newTestMatcher()
	require.NoError(t, reverse.SetRecordSet("upload", two, roles))
	require.NoError(t, reverse.SetRecordSet("crm", one, roles))
	rev, err := reverse.Run(context.Background(), opts)
	require.NoError(t, err)

	type evidence struct {
		count int
		label string
	}
	pairs := func(summaries []Summary, swap bool) map[[2]string]evidence {
		out := make(map[[2]string]evidence)
		for _, s := range summaries {
			key := [2]string{s.LeftID, s.RightID}
			if swap {
				key = [2]string{s.RightID, s.LeftID}
			}
			out[key] = evidence{count: s.MatchCount, label: s.MatchType}
		}
		return out
	}

	assert.Equal(t, pairs(fwd.Summaries, false), pairs(rev.Summaries, true))
}

func TestRunExactDomain(t *testing.T) {
	left := testSet(t, []string{"id", "email"}, []records.Row{
		{"id": records.String("1"), "email": records.String("Jane@Acme.com")},
		{"id": records.String("2"), "email": records.String("john@acme.com")},
	})
	right := testSet(t, []string{"id", "email"}, []records.Row{
		{"id": records.String("a"), "email": records.String("jane@acme.com")},
	})

	roles := Roles{Index: "id", Domain: "email"}

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	result, err := m.Run(context.Background(), Options{ExactDomain: true})
	require.NoError(t, err)

	// Verbatim identity: only the same address matches, not the shared host.
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, "1", result.Summaries[0].LeftID)
}

func TestRunIgnoredDomains(t *testing.T) {
	left := testSet(t, []string{"id", "email"}, []records.Row{
		{"id": records.String("1"), "email": records.String("jane@gmail.com")},
		{"id": records.String("2"), "email": records.String("ops@acme.com")},
	})
	right := testSet(t, []string{"id", "email"}, []records.Row{
		{"id": records.String("a"), "email": records.String("john@gmail.com")},
		{"id": records.String("b"), "email": records.String("sales@acme.com")},
	})

	roles := Roles{Index: "id", Domain: "email"}

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	result, err := m.Run(context.Background(), Options{})
	require.NoError(t, err)

	// gmail.com is on the shared-domain denylist and produces no key.
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, "2", result.Summaries[0].LeftID)
	assert.Equal(t, "b", result.Summaries[0].RightID)
}

func TestRunEvidenceOrdering(t *testing.T) {
	left := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("1"), "domain": records.String("acme.com"), "name": records.String("Acme")},
		{"id": records.String("2"), "domain": records.String("beta.io"), "name": records.Null()},
	})
	right := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("a"), "domain": records.String("acme.com"), "name": records.String("Acme")},
		{"id": records.String("b"), "domain": records.String("beta.io"), "name": records.String("Beta")},
	})

	roles := Roles{Index: "id", Domain: "domain", EntityName: "name"}

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	result, err := m.Run(context.Background(), Options{MatchCountThreshold: 1})
	require.NoError(t, err)

	require.Len(t, result.Summaries, 2)
	assert.Equal(t, 2, result.Summaries[0].MatchCount)
	assert.Equal(t, 1, result.Summaries[1].MatchCount)
}

func TestMatcherStateMachine(t *testing.T) {
	set := testSet(t, []string{"id"}, []records.Row{
		{"id": records.String("1")},
	})
	roles := Roles{Index: "id"}

	t.Run("run before frames set", func(t *testing.T) {
		m := newTestMatcher()
		_, err := m.Run(context.Background(), Options{})
		assert.ErrorIs(t, err, ErrFramesNotSet)
	})

	t.Run("run with one frame", func(t *testing.T) {
		m := newTestMatcher()
		require.NoError(t, m.SetRecordSet("crm", set, roles))
		_, err := m.Run(context.Background(), Options{})
		assert.ErrorIs(t, err, ErrFramesNotSet)
	})

	t.Run("duplicate side name", func(t *testing.T) {
		m := newTestMatcher()
		require.NoError(t, m.SetRecordSet("crm", set, roles))
		err := m.SetRecordSet("crm", set, roles)
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("third frame rejected", func(t *testing.T) {
		m := newTestMatcher()
		require.NoError(t, m.SetRecordSet("crm", set, roles))
		require.NoError(t, m.SetRecordSet("upload", set, roles))
		err := m.SetRecordSet("extra", set, roles)
		assert.ErrorIs(t, err, ErrTooManyFrames)
	})

	t.Run("missing index column", func(t *testing.T) {
		m := newTestMatcher()
		err := m.SetRecordSet("crm", set, Roles{})
		assert.Error(t, err)
	})

	t.Run("unknown role column", func(t *testing.T) {
		m := newTestMatcher()
		err := m.SetRecordSet("crm", set, Roles{Index: "id", Domain: "nope"})
		assert.Error(t, err)
	})

	t.Run("reset allows reuse", func(t *testing.T) {
		m := newTestMatcher()
		require.NoError(t, m.SetRecordSet("crm", set, roles))
		require.NoError(t, m.SetRecordSet("upload", set, roles))
		m.Reset()
		assert.Nil(t, m.Results())
		require.NoError(t, m.SetRecordSet("crm", set, roles))
	})
}

func dedupeTestSet(t *testing.T) (*records.RecordSet, Roles) {
	t.Helper()
	set := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("A"), "domain": records.String("x.com"), "name": records.Null()},
		{"id": records.String("B"), "domain": records.String("x.com"), "name": records.String("Acme Inc")},
		{"id": records.String("C"), "domain": records.Null(), "name": records.String("Acme Inc")},
		{"id": records.String("D"), "domain": records.String("solo.dev"), "name": records.String("Solo")},
	})
	return set, Roles{Index: "id", Domain: "domain", EntityName: "name"}
}

func TestDedupeTransitiveChain(t *testing.T) {
	set, roles := dedupeTestSet(t)

	m := newTestMatcher()
	result, err := m.Dedupe(context.Background(), set, roles, Options{MatchCountThreshold: 1})
	require.NoError(t, err)

	// A matches B on domain, B matches C on entity_name; A never directly
	// matches C, yet all three land in one group.
	groups := make(map[string]string)
	for _, s := range result.Summaries {
		groups[s.LeftID] = s.Group
		groups[s.RightID] = s.Group
	}
	assert.Equal(t, "A", groups["A"])
	assert.Equal(t, "A", groups["B"])
	assert.Equal(t, "A", groups["C"])

	require.True(t, result.Groups.Len() >= 1)
	top := result.Groups.Row(0)
	assert.Equal(t, records.String("A"), top.Get("match_group"))
	assert.Equal(t, records.String("3"), top.Get("group_size"))
	assert.Equal(t, records.String("x.com"), top.Get("domain"))
	assert.Equal(t, records.String("Acme Inc"), top.Get("name"))
}

func TestDedupeSelfPairSuppression(t *testing.T) {
	set, roles := dedupeTestSet(t)

	m := newTestMatcher()
	result, err := m.Dedupe(context.Background(), set, roles, Options{MatchCountThreshold: 1})
	require.NoError(t, err)

	for _, s := range result.Summaries {
		assert.NotEqual(t, s.LeftID, s.RightID)
	}

	// D matched nothing and include_self is off, so it has no group.
	for i := 0; i < result.Groups.Len(); i++ {
		assert.NotEqual(t, records.String("D"), result.Groups.Row(i).Get("match_group"))
	}
}

func TestDedupeIncludeSelf(t *testing.T) {
	set, roles := dedupeTestSet(t)

	m := newTestMatcher()
	result, err := m.Dedupe(context.Background(), set, roles, Options{MatchCountThreshold: 1, IncludeSelf: true})
	require.NoError(t, err)

	var selfRows int
	for _, s := range result.Summaries {
		if s.LeftID == s.RightID {
			selfRows++
			assert.Equal(t, 0, s.MatchCount)
			assert.Equal(t, `["self"]`, s.MatchType)
		}
	}
	assert.Equal(t, 4, selfRows)

	// Every record appears in a group now; D is a singleton.
	var foundSolo bool
	for i := 0; i < result.Groups.Len(); i++ {
		row := result.Groups.Row(i)
		if row.Get("match_group") == records.String("D") {
			foundSolo = true
			assert.Equal(t, records.String("1"), row.Get("group_size"))
			assert.Equal(t, records.String("solo.dev"), row.Get("domain"))
		}
	}
	assert.True(t, foundSolo)
}

func TestDedupeGroupsSortedBySize(t *testing.T) {
	set, roles := dedupeTestSet(t)

	m := newTestMatcher()
	result, err := m.Dedupe(context.Background(), set, roles, Options{MatchCountThreshold: 1, IncludeSelf: true})
	require.NoError(t, err)

	require.Equal(t, 2, result.Groups.Len())
	assert.Equal(t, records.String("3"), result.Groups.Row(0).Get("group_size"))
	assert.Equal(t, records.String("1"), result.Groups.Row(1).Get("group_size"))
}

func TestDedupeUnionsMultiValuedFields(t *testing.T) {
	set := testSet(t, []string{"id", "domain", "name"}, []records.Row{
		{"id": records.String("A"), "domain": records.String("http://www.x.com/home"), "name": records.String("Acme Inc")},
		{"id": records.String("B"), "domain": records.String("x.com"), "name": records.String("Acme Holdings Inc")},
	})
	roles := Roles{Index: "id", Domain: "domain", EntityName: "name"}

	m := newTestMatcher()
	result, err := m.Dedupe(context.Background(), set, roles, Options{MatchCountThreshold: 1})
	require.NoError(t, err)

	require.Equal(t, 1, result.Groups.Len())
	row := result.Groups.Row(0)

	// Domain values are re-extracted, so the URL and the bare host collapse.
	assert.Equal(t, records.String("x.com"), row.Get("domain"))
	// Distinct names are unioned into a sorted JSON array.
	assert.Equal(t, records.String(`["Acme Holdings Inc","Acme Inc"]`), row.Get("name"))
}

func TestDedupeRequiresFreshMatcher(t *testing.T) {
	set, roles := dedupeTestSet(t)

	m := newTestMatcher()
	require.NoError(t, m.SetRecordSet("crm", set, roles))
	require.NoError(t, m.SetRecordSet("upload", set, roles))

	_, err := m.Dedupe(context.Background(), set, roles, Options{})
	assert.ErrorIs(t, err, ErrTooManyFrames)
}

func TestMatcherCustomStopwords(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	m := New(logger, Config{Stopwords: []string{"acme"}})

	left := testSet(t, []string{"id", "name"}, []records.Row{
		{"id": records.String("1"), "name": records.String("Acme Widgets")},
	})
	right := testSet(t, []string{"id", "name"}, []records.Row{
		{"id": records.String("a"), "name": records.String("Widgets")},
	})

	roles := Roles{Index: "id", EntityName: "name"}
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	result, err := m.Run(context.Background(), Options{MatchCountThreshold: 1})
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)
}

func TestRunPluralSuffixNames(t *testing.T) {
	// "Corps" singularizes into the stopword "corp", so both names reduce
	// to the same key.
	left := testSet(t, []string{"id", "name"}, []records.Row{
		{"id": records.String("1"), "name": records.String("Acme Corps")},
	})
	right := testSet(t, []string{"id", "name"}, []records.Row{
		{"id": records.String("a"), "name": records.String("Acme Corp")},
	})

	m := newTestMatcher()
	roles := Roles{Index: "id", EntityName: "name"}
	require.NoError(t, m.SetRecordSet("crm", left, roles))
	require.NoError(t, m.SetRecordSet("upload", right, roles))

	result, err := m.Run(context.Background(), Options{MatchCountThreshold: 1})
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, `["entity_name"]`, result.Summaries[0].MatchType)
}
