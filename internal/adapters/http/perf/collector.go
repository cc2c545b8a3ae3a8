// Package perf keeps in-process timing data for the admin perf endpoint and
// exports prometheus metrics for scraping.
package perf

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize bounds how many timings the collector remembers.
const DefaultRingSize = 10000

// EntryKind tells request timings from query timings.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is one timed request or query.
type Entry struct {
	Kind     EntryKind
	Name     string // route pattern or query label, e.g. "GET /api/members", "SELECT payment"
	Status   int    // response status; zero for queries
	Duration time.Duration
	At       time.Time
}

// Collector remembers the most recent timings in a fixed ring.
// Record is safe for concurrent use; once full, the oldest entry is replaced.
type Collector struct {
	mu    sync.Mutex
	ring  []Entry
	next  int
	total atomic.Int64
}

// NewCollector allocates a collector holding up to size entries.
// A non-positive size means DefaultRingSize.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{ring: make([]Entry, size)}
}

// Record stores e. Recording to a nil collector does nothing.
func (c *Collector) Record(e Entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ring[c.next] = e
	c.next = (c.next + 1) % len(c.ring)
	c.mu.Unlock()
	c.total.Add(1)
}

// TotalRecorded counts every Record call, including overwritten entries.
func (c *Collector) TotalRecorded() int64 {
	if c == nil {
		return 0
	}
	return c.total.Load()
}

// Snapshot is the aggregated view served by the admin perf endpoint.
type Snapshot struct {
	Since          time.Time  `json:"since"`
	TotalRecorded  int64      `json:"total_recorded"`
	Requests       int        `json:"requests"`
	Queries        int        `json:"queries"`
	ClientErrors   int        `json:"client_errors"`
	ErrorResponses int        `json:"error_responses"`
	RequestP50Ms   float64    `json:"request_p50_ms"`
	RequestP95Ms   float64    `json:"request_p95_ms"`
	RequestP99Ms   float64    `json:"request_p99_ms"`
	SlowestRoutes  []NameStat `json:"slowest_routes"`
	SlowestQueries []NameStat `json:"slowest_queries"`
}

// NameStat is the timing summary for one route or query label.
type NameStat struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	TotalMs float64 `json:"total_ms"`
}

type statSet map[string]*NameStat

func (s statSet) observe(name string, ms float64) {
	st := s[name]
	if st == nil {
		st = &NameStat{Name: name}
		s[name] = st
	}
	st.Count++
	st.TotalMs += ms
	st.MaxMs = math.Max(st.MaxMs, ms)
}

// slowest returns up to n stats ordered by average, slowest first.
func (s statSet) slowest(n int) []NameStat {
	out := make([]NameStat, 0, len(s))
	for _, st := range s {
		st.AvgMs = st.TotalMs / float64(st.Count)
		out = append(out, *st)
	}
	slices.SortFunc(out, func(a, b NameStat) int {
		if c := cmp.Compare(b.AvgMs, a.AvgMs); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Snapshot summarises entries recorded at or after since. It copies and
// sorts the ring, so keep it off request hot paths.
// PRE: topN > 0
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	entries := slices.Clone(c.ring)
	c.mu.Unlock()

	snap := Snapshot{Since: since, TotalRecorded: c.TotalRecorded()}
	routes, queries := statSet{}, statSet{}
	var latencies []float64

	for _, e := range entries {
		if e.At.IsZero() || e.At.Before(since) {
			continue
		}
		ms := float64(e.Duration.Microseconds()) / 1000
		if e.Kind == KindQuery {
			snap.Queries++
			queries.observe(e.Name, ms)
			continue
		}
		snap.Requests++
		switch {
		case e.Status >= 500:
			snap.ErrorResponses++
		case e.Status >= 400:
			snap.ClientErrors++
		}
		latencies = append(latencies, ms)
		routes.observe(e.Name, ms)
	}

	snap.SlowestRoutes = routes.slowest(topN)
	snap.SlowestQueries = queries.slowest(topN)
	slices.Sort(latencies)
	snap.RequestP50Ms = percentile(latencies, 0.50)
	snap.RequestP95Ms = percentile(latencies, 0.95)
	snap.RequestP99Ms = percentile(latencies, 0.99)
	return snap
}

// percentile linearly interpolates the q quantile of an ascending slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
