package admin

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/festivo-app/festivo/internal/views"
)

var viewEngine *views.Engine

// InitViews hands the admin surface the rebuild engine at wiring time.
func InitViews(e *views.Engine) {
	viewEngine = e
}

// POST /admin/views/backfill
func RunBackfill(c echo.Context) error {
	if viewEngine == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "view engine not configured"})
	}

	var req struct {
		Kind            string `json:"kind"` // client | supplier
		BatchSize       int    `json:"batch_size,omitempty"`
		Parallelism     int    `json:"parallelism,omitempty"`
		SkipFresherThan string `json:"skip_fresher_than,omitempty"` // e.g. "30m"
	}
	if err := c.Bind(&req); err != nil || req.Kind == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind is required (client or supplier)"})
	}

	opts := views.BackfillOptions{
		Kind:        req.Kind,
		BatchSize:   req.BatchSize,
		Parallelism: req.Parallelism,
	}
	if req.SkipFresherThan != "" {
		d, err := time.ParseDuration(req.SkipFresherThan)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "skip_fresher_than must be a duration like 30m"})
		}
		opts.SkipFresherThan = d
	}

	report, err := viewEngine.Backfill(c.Request().Context(), opts)
	if err != nil {
		log.Printf("[admin] backfill %s: %v", req.Kind, err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

// GET /admin/views/stale?threshold=6h&limit=100
func ListStaleViews(c echo.Context) error {
	if viewEngine == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "view engine not configured"})
	}

	threshold := 6 * time.Hour
	if t := c.QueryParam("threshold"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "threshold must be a duration like 6h"})
		}
		threshold = d
	}
	limit := 100

	stale, err := viewEngine.FreshnessAudit(c.Request().Context(), threshold, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to audit freshness"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"threshold": threshold.String(),
		"count":     len(stale),
		"stale":     stale,
	})
}
