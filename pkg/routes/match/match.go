// Package match exposes the matching pipeline over HTTP. Both endpoints are
// synchronous: the record sets travel in the request body and the retained
// pairs come back in the response, with the run persisted as a side effect.
package match

import (
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/matchrun"
	"github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/match"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/records"
)

var validate = validator.New()

// Register registers match execution routes
func Register(g *echo.Group) {
	g.POST("/match", RunMatch)
	g.POST("/dedupe", RunDedupe)
}

// RolesPayload maps feature roles to column names. Index is required; a
// feature whose role is omitted does not run.
type RolesPayload struct {
	Index      string `json:"index" validate:"required"`
	Domain     string `json:"domain,omitempty"`
	Address    string `json:"address,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Country    string `json:"country,omitempty"`
	EntityName string `json:"entity_name,omitempty"`
}

func (r RolesPayload) toRoles() match.Roles {
	return match.Roles{
		Index:      r.Index,
		Domain:     r.Domain,
		Address:    r.Address,
		Phone:      r.Phone,
		Country:    r.Country,
		EntityName: r.EntityName,
	}
}

// RecordSetPayload is one side's data: column list, rows keyed by column
// name (missing or null cells are null), and the role mapping.
type RecordSetPayload struct {
	Name    string        `json:"name" validate:"required"`
	Columns []string      `json:"columns" validate:"required,min=1"`
	Rows    []records.Row `json:"rows"`
	Roles   RolesPayload  `json:"roles" validate:"required"`
}

// OptionsPayload is the per-run tuning surface.
type OptionsPayload struct {
	MatchCountThreshold int        `json:"match_count_threshold,omitempty"`
	MatchTypeIncluded   [][]string `json:"match_type_included,omitempty"`
	MatchTypeExcluded   [][]string `json:"match_type_excluded,omitempty"`
	IncludeSelf         bool       `json:"include_self,omitempty"`
	ExactDomain         bool       `json:"exact_domain,omitempty"`
}

func (o OptionsPayload) toOptions() match.Options {
	return match.Options{
		MatchCountThreshold: o.MatchCountThreshold,
		MatchTypeIncluded:   toFeatureLists(o.MatchTypeIncluded),
		MatchTypeExcluded:   toFeatureLists(o.MatchTypeExcluded),
		IncludeSelf:         o.IncludeSelf,
		ExactDomain:         o.ExactDomain,
	}
}

func toFeatureLists(lists [][]string) [][]match.Feature {
	if lists == nil {
		return nil
	}
	out := make([][]match.Feature, len(lists))
	for i, list := range lists {
		features := make([]match.Feature, len(list))
		for j, name := range list {
			features[j] = match.Feature(name)
		}
		out[i] = features
	}
	return out
}

// MatchRequest is the request body for a link run
type MatchRequest struct {
	Left    RecordSetPayload `json:"left" validate:"required"`
	Right   RecordSetPayload `json:"right" validate:"required"`
	Options OptionsPayload   `json:"options"`
}

// DedupeRequest is the request body for a dedupe run
type DedupeRequest struct {
	Records RecordSetPayload `json:"records" validate:"required"`
	Options OptionsPayload   `json:"options"`
}

// TablePayload renders a record set as columns plus rows.
type TablePayload struct {
	Columns []string      `json:"columns"`
	Rows    []records.Row `json:"rows"`
}

func toTable(rs *records.RecordSet) TablePayload {
	return TablePayload{Columns: rs.Columns(), Rows: rs.Rows()}
}

// MatchResponse is the response body for both run modes
type MatchResponse struct {
	Run    *models.MatchRun `json:"run"`
	Pairs  TablePayload     `json:"pairs"`
	Groups *TablePayload    `json:"groups,omitempty"`
}

func buildSet(payload RecordSetPayload) (*records.RecordSet, error) {
	set, err := records.New(payload.Columns, payload.Rows)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return set, nil
}

func checkSize(payload RecordSetPayload, limit int) error {
	if limit > 0 && len(payload.Rows) > limit {
		return httperror.NewHTTPError(http.StatusRequestEntityTooLarge, "record set exceeds the per-side row limit")
	}
	return nil
}

func toPairModels(summaries []match.Summary) []models.MatchPair {
	pairs := make([]models.MatchPair, 0, len(summaries))
	for _, s := range summaries {
		pair := models.MatchPair{
			LeftID:     s.LeftID,
			RightID:    s.RightID,
			MatchCount: s.MatchCount,
			MatchType:  s.MatchType,
		}
		if s.Group != "" {
			group := s.Group
			pair.MatchGroup = &group
		}
		pairs = append(pairs, pair)
	}
	return pairs
}

// RunMatch links two record sets and returns the retained pairs
func RunMatch(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req MatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	if err := checkSize(req.Left, cfg.MaxRecordsPerSide); err != nil {
		return err
	}
	if err := checkSize(req.Right, cfg.MaxRecordsPerSide); err != nil {
		return err
	}

	leftSet, err := buildSet(req.Left)
	if err != nil {
		return err
	}
	rightSet, err := buildSet(req.Right)
	if err != nil {
		return err
	}

	ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matcher := match.New(logger, match.Config{
		Stopwords:      cfg.MatchStopwords,
		IgnoredDomains: cfg.MatchIgnoredDomains,
	})
	if err := matcher.SetRecordSet(req.Left.Name, leftSet, req.Left.Roles.toRoles()); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := matcher.SetRecordSet(req.Right.Name, rightSet, req.Right.Roles.toRoles()); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := matcher.Run(ctx, req.Options.toOptions())
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	optionsJSON, _ := json.Marshal(req.Options)
	run := &models.MatchRun{
		TenantID:   tenantID,
		Mode:       models.MatchRunModeLink,
		LeftName:   req.Left.Name,
		RightName:  req.Right.Name,
		LeftCount:  leftSet.Len(),
		RightCount: rightSet.Len(),
		Threshold:  req.Options.MatchCountThreshold,
		Options:    optionsJSON,
	}

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	run, err = repo.Create(ctx, run, toPairModels(result.Summaries))
	if err != nil {
		return err
	}

	// Event emission is best effort; a broker outage never fails the run.
	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil && emitter != nil {
		if err := emitter.EmitRunCompleted(ctx, run); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Run event emission failed")
		}
	}

	return c.JSON(http.StatusOK, MatchResponse{
		Run:   run,
		Pairs: toTable(result.Table),
	})
}

// RunDedupe deduplicates one record set and returns the pairs plus the
// grouped summary
func RunDedupe(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req DedupeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	if err := checkSize(req.Records, cfg.MaxRecordsPerSide); err != nil {
		return err
	}

	set, err := buildSet(req.Records)
	if err != nil {
		return err
	}

	ctx, logger, err := ectoinject.GetContext[ectologger.Logger](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matcher := match.New(logger, match.Config{
		Stopwords:      cfg.MatchStopwords,
		IgnoredDomains: cfg.MatchIgnoredDomains,
	})

	result, err := matcher.Dedupe(ctx, set, req.Records.Roles.toRoles(), req.Options.toOptions())
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	membership := result.GroupMembership()

	optionsJSON, _ := json.Marshal(req.Options)
	run := &models.MatchRun{
		TenantID:   tenantID,
		Mode:       models.MatchRunModeDedupe,
		LeftName:   req.Records.Name,
		RightName:  req.Records.Name,
		LeftCount:  set.Len(),
		RightCount: set.Len(),
		GroupCount: len(membership),
		Threshold:  req.Options.MatchCountThreshold,
		Options:    optionsJSON,
	}

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	run, err = repo.Create(ctx, run, toPairModels(result.Summaries))
	if err != nil {
		return err
	}

	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil && emitter != nil {
		if err := emitter.EmitRunCompleted(ctx, run); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Run event emission failed")
		}
		if err := emitter.EmitGroupsFormed(ctx, run, membership); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Group event emission failed")
		}
	}

	groups := toTable(result.Groups)
	return c.JSON(http.StatusOK, MatchResponse{
		Run:    run,
		Pairs:  toTable(result.Pairs),
		Groups: &groups,
	})
}
