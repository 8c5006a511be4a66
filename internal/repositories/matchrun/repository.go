// Package matchrun persists match runs and their retained pair summaries.
// The engine never reads this back; it is an audit/retrieval sink.
package matchrun

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/internal/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles match run persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a run and its pairs in one transaction.
func (r *Repository) Create(ctx context.Context, run *models.MatchRun, pairs []models.MatchPair) (*models.MatchRun, error) {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"tenant_id": run.TenantID,
		"mode":      run.Mode,
		"pairs":     len(pairs),
	})

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = time.Now().UTC()
	run.PairCount = len(pairs)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_runs")
	sb.Cols("id", "tenant_id", "mode", "left_name", "right_name", "left_count", "right_count", "pair_count", "group_count", "threshold", "options", "created_at")
	sb.Values(run.ID, run.TenantID, run.Mode, run.LeftName, run.RightName, run.LeftCount, run.RightCount, run.PairCount, run.GroupCount, run.Threshold, run.Options, run.CreatedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to insert match run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match run")
	}

	if len(pairs) > 0 {
		pb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		pb.InsertInto("match_pairs")
		pb.Cols("id", "run_id", "tenant_id", "left_id", "right_id", "match_count", "match_type", "match_group", "created_at")
		for i := range pairs {
			pairs[i].ID = uuid.New().String()
			pairs[i].RunID = run.ID
			pairs[i].TenantID = run.TenantID
			pairs[i].CreatedAt = run.CreatedAt
			pb.Values(pairs[i].ID, pairs[i].RunID, pairs[i].TenantID, pairs[i].LeftID, pairs[i].RightID, pairs[i].MatchCount, pairs[i].MatchType, pairs[i].MatchGroup, pairs[i].CreatedAt)
		}

		pairQuery, pairArgs := pb.Build()
		if _, err := tx.ExecContext(ctx, pairQuery, pairArgs...); err != nil {
			log.WithError(err).Error("Failed to insert match pairs")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to store match pairs")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit match run")
	}

	log.WithFields(map[string]any{"id": run.ID}).Info("Stored match run")
	return run, nil
}

// Get retrieves a match run by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.MatchRun, error) {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "mode", "left_name", "right_name", "left_count", "right_count", "pair_count", "group_count", "threshold", "options", "created_at")
	sb.From("match_runs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var run models.MatchRun
	if err := r.db.GetContext(ctx, &run, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match run %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match run")
	}

	return &run, nil
}

// List retrieves match runs for a tenant, newest first.
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]models.MatchRun, int, error) {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("match_runs")
	countSb.Where(countSb.Equal("tenant_id", tenantID))

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count match runs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count match runs")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "mode", "left_name", "right_name", "left_count", "right_count", "pair_count", "group_count", "threshold", "options", "created_at")
	sb.From("match_runs")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var runs []models.MatchRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match runs")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match runs")
	}

	return runs, totalCount, nil
}

// ListPairs retrieves the retained pairs for a run, strongest evidence first.
func (r *Repository) ListPairs(ctx context.Context, tenantID string, runID string) ([]models.MatchPair, error) {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.ListPairs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "run_id", "tenant_id", "left_id", "right_id", "match_count", "match_type", "match_group", "created_at")
	sb.From("match_pairs")
	sb.Where(
		sb.Equal("run_id", runID),
		sb.Equal("tenant_id", tenantID),
	)
	sb.OrderBy("match_count DESC", "match_type DESC", "left_id ASC", "right_id ASC")

	query, args := sb.Build()
	var pairs []models.MatchPair
	if err := r.db.SelectContext(ctx, &pairs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match pairs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match pairs")
	}

	return pairs, nil
}

// Delete removes a run and its pairs.
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "matchrun.Repository.Delete")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	pb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	pb.DeleteFrom("match_pairs")
	pb.Where(
		pb.Equal("run_id", id),
		pb.Equal("tenant_id", tenantID),
	)
	pairQuery, pairArgs := pb.Build()
	if _, err := tx.ExecContext(ctx, pairQuery, pairArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete match pairs")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete match run")
	}

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("match_runs")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)
	query, args := sb.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete match run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete match run")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match run %s not found", id))
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit delete")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted match run")
	return nil
}
