package match

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/records"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Configuration errors. These indicate caller misuse and fail the call
// immediately; per-row normalization failures never surface as errors.
var (
	ErrTooManyFrames = errors.New("a matcher holds at most two record sets")
	ErrDuplicateName = errors.New("record set name already registered")
	ErrFramesNotSet  = errors.New("two record sets must be registered before running")
)

// Config holds per-matcher normalization knobs. The lists are precision/
// recall tuning, not protocol; nil fields fall back to the package defaults
// in pkg/normalize.
type Config struct {
	Stopwords      []string
	IgnoredDomains []string
}

// Options is the per-run configuration surface.
type Options struct {
	// MatchCountThreshold retains any pair matching on at least this many
	// features. Zero uses the mode default (2 for link, 3 for dedupe).
	MatchCountThreshold int

	// MatchTypeIncluded lists feature combinations to retain regardless of
	// count. Nil uses the mode default.
	MatchTypeIncluded [][]Feature

	// MatchTypeExcluded lists feature combinations to always reject.
	MatchTypeExcluded [][]Feature

	// IncludeSelf keeps each record's self pair in dedupe output, marked
	// with match_count 0 and match_type ["self"]. Dedupe mode only.
	IncludeSelf bool

	// ExactDomain compares the domain column verbatim (case-folded) instead
	// of extracting a hostname. Used when the upstream value is an email
	// address to be matched as an identity.
	ExactDomain bool

	// SavePath writes the result table as CSV when non-empty.
	SavePath string
}

// Result is the output of a link run: retained pair summaries plus the
// joined result table (both sides' columns, match_count, match_type).
type Result struct {
	Summaries []Summary
	Table     *records.RecordSet
}

// DedupeResult adds the grouped view: one summarized row per match group,
// sorted by group size descending.
type DedupeResult struct {
	Summaries []Summary
	Pairs     *records.RecordSet
	Groups    *records.RecordSet
}

// GroupMembership returns group id to sorted member ids for the result.
func (r *DedupeResult) GroupMembership() map[string][]string {
	groups := make(map[string]string, len(r.Summaries))
	for _, s := range r.Summaries {
		groups[s.LeftID] = s.Group
		groups[s.RightID] = s.Group
	}
	return groupMembers(groups)
}

// Matcher orchestrates a match run over two frames. An instance is reusable
// across Reset/SetRecordSet/Run cycles but holds at most two frames at a
// time. It is not safe for concurrent use.
type Matcher struct {
	logger         ectologger.Logger
	stopwords      map[string]struct{}
	ignoredDomains map[string]struct{}
	frames         []*Frame
	results        *Result
}

// New creates a Matcher.
func New(logger ectologger.Logger, config Config) *Matcher {
	stopwords := config.Stopwords
	if stopwords == nil {
		stopwords = normalize.DefaultStopwords
	}
	ignored := config.IgnoredDomains
	if ignored == nil {
		ignored = normalize.DefaultIgnoredDomains
	}

	return &Matcher{
		logger:         logger,
		stopwords:      normalize.StopwordSet(stopwords),
		ignoredDomains: normalize.StopwordSet(ignored),
	}
}

// SetRecordSet registers one side of the match under a side name. It fails
// once two sides are registered or when the name is reused.
func (m *Matcher) SetRecordSet(name string, set *records.RecordSet, roles Roles) error {
	if len(m.frames) >= 2 {
		return ErrTooManyFrames
	}
	for _, frame := range m.frames {
		if frame.Name() == name {
			return fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}

	frame, err := NewFrame(name, set, roles)
	if err != nil {
		return err
	}
	m.frames = append(m.frames, frame)

	m.logger.WithFields(map[string]any{
		"name": name,
		"rows": set.Len(),
	}).Debug("Registered record set")

	return nil
}

// Reset clears the registered frames and the last results so the matcher can
// be reused for another run.
func (m *Matcher) Reset() {
	m.frames = nil
	m.results = nil
}

// Results returns the output of the last completed Run, or nil.
func (m *Matcher) Results() *Result {
	return m.results
}

// Run executes the pipeline over the two registered frames and returns the
// retained pairs, strongest evidence first. Re-running with the same frames
// and options produces identical output.
func (m *Matcher) Run(ctx context.Context, opts Options) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Matcher.Run")
	defer span.End()

	summaries, err := m.run(ctx, opts, false)
	if err != nil {
		return nil, err
	}

	sortByEvidence(summaries)

	table, err := m.buildTable(summaries, false)
	if err != nil {
		return nil, err
	}

	if opts.SavePath != "" {
		if err := table.SaveCSV(opts.SavePath); err != nil {
			return nil, fmt.Errorf("failed to save results: %w", err)
		}
	}

	m.results = &Result{Summaries: summaries, Table: table}
	return m.results, nil
}

// Dedupe registers the same record set as both sides, runs the pipeline with
// dedupe defaults, groups the retained pairs transitively, and summarizes
// each group into one row (union of observed non-null values per column).
func (m *Matcher) Dedupe(ctx context.Context, set *records.RecordSet, roles Roles, opts Options) (*DedupeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Matcher.Dedupe")
	defer span.End()

	if err := m.SetRecordSet("left", set, roles); err != nil {
		return nil, err
	}
	if err := m.SetRecordSet("right", set, roles); err != nil {
		return nil, err
	}

	summaries, err := m.run(ctx, opts, true)
	if err != nil {
		return nil, err
	}

	if opts.IncludeSelf {
		for _, row := range set.Rows() {
			id := row.Get(roles.Index)
			if !id.Valid {
				continue
			}
			summaries = append(summaries, Summary{
				LeftID:    id.String,
				RightID:   id.String,
				MatchType: selfMatchType,
			})
		}
	}

	groups := groupSummaries(summaries)
	for i := range summaries {
		summaries[i].Group = groups[summaries[i].LeftID]
	}

	sortByEvidence(summaries)

	pairs, err := m.buildTable(summaries, true)
	if err != nil {
		return nil, err
	}

	grouped, err := m.summarizeGroups(set, roles, groups, opts)
	if err != nil {
		return nil, err
	}

	if opts.SavePath != "" {
		if err := grouped.SaveCSV(opts.SavePath); err != nil {
			return nil, fmt.Errorf("failed to save results: %w", err)
		}
	}

	m.logger.WithContext(ctx).WithFields(map[string]any{
		"records": set.Len(),
		"pairs":   len(summaries),
		"groups":  grouped.Len(),
	}).Info("Dedupe complete")

	return &DedupeResult{Summaries: summaries, Pairs: pairs, Groups: grouped}, nil
}

// run executes candidate generation, aggregation, and filtering. In dedupe
// mode self pairs are dropped from the graph; the caller re-adds sentinels
// when requested.
func (m *Matcher) run(ctx context.Context, opts Options, dedupe bool) ([]Summary, error) {
	if len(m.frames) != 2 {
		return nil, ErrFramesNotSet
	}
	left, right := m.frames[0], m.frames[1]

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"left":  left.Name(),
		"right": right.Name(),
	})

	var candidates []candidate
	for _, feature := range allFeatures {
		if !feature.enabledOn(left) || !feature.enabledOn(right) {
			log.WithFields(map[string]any{"feature": feature}).Debug("Feature disabled, role missing on one side")
			continue
		}

		hits := matchFeature(left, right, feature, m.keyFunc(feature, left, opts), m.keyFunc(feature, right, opts))
		log.WithFields(map[string]any{
			"feature":    feature,
			"candidates": len(hits),
		}).Debug("Generated candidates")

		candidates = append(candidates, hits...)
	}

	summaries := aggregate(candidates)

	if dedupe {
		kept := summaries[:0]
		for _, s := range summaries {
			if s.LeftID != s.RightID {
				kept = append(kept, s)
			}
		}
		summaries = kept
	}

	policy := m.policy(opts, dedupe)
	retained := filterSummaries(summaries, policy)

	log.WithFields(map[string]any{
		"aggregated": len(summaries),
		"retained":   len(retained),
		"threshold":  policy.Threshold,
	}).Debug("Filtered match summaries")

	return retained, nil
}

// policy resolves the effective filter policy from the options and mode
// defaults.
func (m *Matcher) policy(opts Options, dedupe bool) Policy {
	policy := DefaultLinkPolicy()
	if dedupe {
		policy = DefaultDedupePolicy()
	}
	if opts.MatchCountThreshold > 0 {
		policy.Threshold = opts.MatchCountThreshold
	}
	if opts.MatchTypeIncluded != nil {
		policy.Include = opts.MatchTypeIncluded
	}
	if opts.MatchTypeExcluded != nil {
		policy.Exclude = opts.MatchTypeExcluded
	}
	return policy
}

// keyFunc builds the canonical key function for one feature on one frame.
func (m *Matcher) keyFunc(feature Feature, frame *Frame, opts Options) keyFunc {
	roles := frame.Roles()

	switch feature {
	case FeatureDomain:
		col := roles.Domain
		exact := opts.ExactDomain
		return func(row records.Row) (string, bool) {
			val := row.Get(col)
			if !val.Valid {
				return "", false
			}
			var key string
			var ok bool
			if exact {
				key, ok = normalize.Identity(val.String)
			} else {
				key, ok = normalize.Domain(val.String)
			}
			if !ok {
				return "", false
			}
			if _, ignored := m.ignoredDomains[key]; ignored {
				return "", false
			}
			return key, true
		}

	case FeaturePhone:
		phoneCol, countryCol := roles.Phone, roles.Country
		return func(row records.Row) (string, bool) {
			phone := row.Get(phoneCol)
			country := row.Get(countryCol)
			if !phone.Valid || !country.Valid {
				return "", false
			}
			return normalize.Phone(phone.String, country.String)
		}

	case FeatureAddress:
		col := roles.Address
		return func(row records.Row) (string, bool) {
			val := row.Get(col)
			if !val.Valid {
				return "", false
			}
			return normalize.TextBagWith(val.String, m.stopwords)
		}

	case FeatureEntityName:
		col := roles.EntityName
		return func(row records.Row) (string, bool) {
			val := row.Get(col)
			if !val.Valid {
				return "", false
			}
			return normalize.TextBagWith(val.String, m.stopwords)
		}

	default:
		return func(records.Row) (string, bool) { return "", false }
	}
}

// buildTable joins summaries back to both sides' rows. The first row wins
// when a side has duplicate identifiers; identifiers are a caller contract.
func (m *Matcher) buildTable(summaries []Summary, withGroup bool) (*records.RecordSet, error) {
	left, right := m.frames[0], m.frames[1]
	leftRows := indexRows(left)
	rightRows := indexRows(right)

	columns := append([]string(nil), left.Set().Columns()...)
	columns = append(columns, right.Set().Columns()...)
	columns = append(columns, "match_count", "match_type")
	if withGroup {
		columns = append(columns, "match_group")
	}

	rows := make([]records.Row, 0, len(summaries))
	for _, s := range summaries {
		row := make(records.Row, len(columns))
		for col, val := range leftRows[s.LeftID] {
			row[col] = val
		}
		for col, val := range rightRows[s.RightID] {
			row[col] = val
		}
		row["match_count"] = records.String(strconv.Itoa(s.MatchCount))
		row["match_type"] = records.String(s.MatchType)
		if withGroup {
			row["match_group"] = records.String(s.Group)
		}
		rows = append(rows, row)
	}

	return records.New(columns, rows)
}

// indexRows maps record identifier to row for one frame.
func indexRows(frame *Frame) map[string]records.Row {
	index := make(map[string]records.Row, frame.Set().Len())
	for _, row := range frame.Set().Rows() {
		id, ok := frame.rowID(row)
		if !ok {
			continue
		}
		if _, exists := index[id]; !exists {
			index[id] = row
		}
	}
	return index
}
