package projections

import (
	"time"

	"fitadmin/internal/adapters/http/perf"
)

// DefaultPerfWindow is the lookback used when none is given.
const DefaultPerfWindow = time.Hour

// GetPerfQuery carries query parameters.
type GetPerfQuery struct {
	Window time.Duration
	TopN   int
}

// QueryGetPerf summarises recent request and query timings.
// PRE: collector may be nil
func QueryGetPerf(query GetPerfQuery, collector *perf.Collector, now time.Time) perf.Snapshot {
	if query.Window <= 0 {
		query.Window = DefaultPerfWindow
	}
	if query.TopN <= 0 {
		query.TopN = 10
	}
	if collector == nil {
		return perf.Snapshot{Since: now.Add(-query.Window)}
	}
	return collector.Snapshot(now.Add(-query.Window), query.TopN)
}
