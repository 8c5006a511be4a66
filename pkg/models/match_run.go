// Package models holds the persisted and API-facing types for match runs.
package models

import (
	"encoding/json"
	"time"
)

// Match run modes.
const (
	MatchRunModeLink   = "link"
	MatchRunModeDedupe = "dedupe"
)

// MatchRun records one execution of the matching pipeline.
type MatchRun struct {
	ID         string          `db:"id" json:"id"`
	TenantID   string          `db:"tenant_id" json:"tenant_id"`
	Mode       string          `db:"mode" json:"mode"`
	LeftName   string          `db:"left_name" json:"left_name"`
	RightName  string          `db:"right_name" json:"right_name"`
	LeftCount  int             `db:"left_count" json:"left_count"`
	RightCount int             `db:"right_count" json:"right_count"`
	PairCount  int             `db:"pair_count" json:"pair_count"`
	GroupCount int             `db:"group_count" json:"group_count"`
	Threshold  int             `db:"threshold" json:"threshold"`
	Options    json.RawMessage `db:"options" json:"options"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// MatchPair is one retained pair summary belonging to a run. MatchType is the
// canonical sorted JSON label of the matched features; MatchGroup is set in
// dedupe mode only.
type MatchPair struct {
	ID         string    `db:"id" json:"id"`
	RunID      string    `db:"run_id" json:"run_id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	LeftID     string    `db:"left_id" json:"left_id"`
	RightID    string    `db:"right_id" json:"right_id"`
	MatchCount int       `db:"match_count" json:"match_count"`
	MatchType  string    `db:"match_type" json:"match_type"`
	MatchGroup *string   `db:"match_group" json:"match_group,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
