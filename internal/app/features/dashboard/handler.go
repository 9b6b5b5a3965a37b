// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratawatch/internal/app/features/errors"
	"github.com/dalemusser/stratawatch/internal/app/system/aggregate"
	"github.com/dalemusser/stratawatch/internal/app/system/jsonutil"
	"github.com/dalemusser/stratawatch/internal/app/system/timeouts"
	"github.com/dalemusser/stratawatch/internal/app/system/viewdata"
	"github.com/dalemusser/stratawatch/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler handles the dashboard page and its JSON endpoints.
type Handler struct {
	Svc    *aggregate.Service
	ErrLog *errorsfeature.ErrorLogger
	Log    *zap.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(svc *aggregate.Service, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:    svc,
		ErrLog: errLog,
		Log:    logger,
	}
}

// ServeDashboard handles GET / - the statistics dashboard page.
// The page renders stat cards from a first statistics query; the chart is
// filled in client-side from /api/graph-data.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	period := r.URL.Query().Get("period")
	if _, err := aggregate.ParsePeriod(period); err != nil {
		period = string(aggregate.Period7d)
	}

	stats, err := h.Svc.Statistics(ctx, time.Now().UTC())
	if err != nil {
		h.ErrLog.Log(r, "failed to load statistics", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := DashboardVM{
		BaseVM:         viewdata.NewBaseVM(r, "Login Statistics"),
		SelectedPeriod: period,
		Periods:        []string{"24h", "7d", "30d", "all"},
		Cards: []StatCardVM{
			{Label: "Today", Value: stats.TodayCount},
			{Label: "This Week", Value: stats.WeekCount},
			{Label: "This Month", Value: stats.MonthCount},
			{Label: "All Time", Value: stats.TotalCount},
		},
	}
	if stats.FirstEvent != nil {
		data.FirstEvent = models.FormatUTC(*stats.FirstEvent)
	}
	if stats.LastEvent != nil {
		data.LastEvent = models.FormatUTC(*stats.LastEvent)
	}

	templates.Render(w, r, "dashboard/index", data)
}

// ServeStatistics handles GET /api/statistics.
func (h *Handler) ServeStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	stats, err := h.Svc.Statistics(ctx, time.Now().UTC())
	if err != nil {
		h.ErrLog.Log(r, "failed to load statistics", err)
		jsonutil.InternalError(w, "failed to load statistics")
		return
	}

	jsonutil.OK(w, statisticsJSON(stats))
}

// ServeGraphData handles GET /api/graph-data?period=24h|7d|30d|all.
func (h *Handler) ServeGraphData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	raw := r.URL.Query().Get("period")
	if raw == "" {
		raw = string(aggregate.Period7d)
	}
	period, err := aggregate.ParsePeriod(raw)
	if err != nil {
		jsonutil.BadRequest(w, "invalid period parameter")
		return
	}

	series, err := h.Svc.SeriesForPeriod(ctx, period, time.Now().UTC())
	if err != nil {
		if errors.Is(err, aggregate.ErrInvalidRange) {
			jsonutil.BadRequest(w, "invalid range")
			return
		}
		h.ErrLog.Log(r, "failed to load graph data", err)
		jsonutil.InternalError(w, "failed to load graph data")
		return
	}

	jsonutil.OK(w, graphJSON(series, period))
}
