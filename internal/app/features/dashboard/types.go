// internal/app/features/dashboard/types.go
package dashboard

import (
	"github.com/dalemusser/stratawatch/internal/app/system/aggregate"
	"github.com/dalemusser/stratawatch/internal/app/system/viewdata"
	"github.com/dalemusser/stratawatch/internal/domain/models"
)

// StatCardVM represents a single statistic card.
type StatCardVM struct {
	Label string
	Value int64
}

// DashboardVM is the view model for the dashboard page.
type DashboardVM struct {
	viewdata.BaseVM
	SelectedPeriod string
	Periods        []string
	Cards          []StatCardVM
	FirstEvent     string
	LastEvent      string
}

// StatisticsResponse is the /api/statistics body. No field is ever omitted;
// first_event and last_event are null when no events exist.
type StatisticsResponse struct {
	TodayCount  int64   `json:"today_count"`
	WeekCount   int64   `json:"week_count"`
	MonthCount  int64   `json:"month_count"`
	TotalCount  int64   `json:"total_count"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	FirstEvent  *string `json:"first_event"`
	LastEvent   *string `json:"last_event"`
}

// DataPointJSON is one chart bucket in /api/graph-data.
type DataPointJSON struct {
	Bucket    string `json:"bucket"`
	Count     int64  `json:"count"`
	Timestamp string `json:"timestamp"`
}

// DateRangeJSON is the covered range of a graph response.
type DateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GraphResponse is the /api/graph-data body.
type GraphResponse struct {
	DataPoints       []DataPointJSON `json:"dataPoints"`
	Period           string          `json:"period"`
	AggregationLevel string          `json:"aggregationLevel"`
	TotalEvents      int64           `json:"totalEvents"`
	DateRange        DateRangeJSON   `json:"dateRange"`
}

func statisticsJSON(stats models.LoginStatistics) StatisticsResponse {
	resp := StatisticsResponse{
		TodayCount:  stats.TodayCount,
		WeekCount:   stats.WeekCount,
		MonthCount:  stats.MonthCount,
		TotalCount:  stats.TotalCount,
		PeriodStart: models.FormatUTC(stats.PeriodStart),
		PeriodEnd:   models.FormatUTC(stats.PeriodEnd),
	}
	if stats.FirstEvent != nil {
		s := models.FormatUTC(*stats.FirstEvent)
		resp.FirstEvent = &s
	}
	if stats.LastEvent != nil {
		s := models.FormatUTC(*stats.LastEvent)
		resp.LastEvent = &s
	}
	return resp
}

func graphJSON(series models.GraphSeries, period aggregate.Period) GraphResponse {
	resp := GraphResponse{
		// Empty series still serialize as [], not null.
		DataPoints:       make([]DataPointJSON, 0, len(series.DataPoints)),
		Period:           string(period),
		AggregationLevel: string(series.Level),
		TotalEvents:      series.TotalEvents,
		DateRange: DateRangeJSON{
			Start: models.FormatUTC(series.RangeStart),
			End:   models.FormatUTC(series.RangeEnd),
		},
	}
	for _, dp := range series.DataPoints {
		resp.DataPoints = append(resp.DataPoints, DataPointJSON{
			Bucket:    dp.Bucket,
			Count:     dp.Count,
			Timestamp: models.FormatUTC(dp.Timestamp),
		})
	}
	return resp
}
