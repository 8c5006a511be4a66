package matchrun

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/matchrun"
	"github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
)

// Register registers match run retrieval routes
func Register(g *echo.Group) {
	g.GET("", ListMatchRuns)
	g.GET("/:id", GetMatchRun)
	g.GET("/:id/pairs", ListMatchPairs)
	g.DELETE("/:id", DeleteMatchRun)
}

// ListResponse is a paginated list of match runs
type ListResponse struct {
	Runs       []models.MatchRun `json:"runs"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int               `json:"total_count"`
}

// ListMatchRuns lists match runs for the tenant, newest first
func ListMatchRuns(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	runs, total, err := repo.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ListResponse{
		Runs:       runs,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	})
}

// GetMatchRun gets a match run by ID
func GetMatchRun(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	run, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, run)
}

// ListMatchPairs lists the retained pairs for a run, strongest evidence first
func ListMatchPairs(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// 404 when the run does not exist, empty list when it has no pairs.
	if _, err := repo.Get(ctx, tenantID, id); err != nil {
		return err
	}

	pairs, err := repo.ListPairs(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, pairs)
}

// DeleteMatchRun deletes a match run and its pairs
func DeleteMatchRun(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*matchrun.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
