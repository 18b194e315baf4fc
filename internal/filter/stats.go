package filter

import (
	"math"
	"sort"
	"sync"
	"time"
)

// RouteStats is a point-in-time summary of one route's traffic.
type RouteStats struct {
	Route        string  `json:"route"`
	RequestCount int64   `json:"request_count"`
	ErrorCount   int64   `json:"error_count"`
	Status2xx    int64   `json:"status_2xx"`
	Status3xx    int64   `json:"status_3xx"`
	Status4xx    int64   `json:"status_4xx"`
	Status5xx    int64   `json:"status_5xx"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MinLatencyMs float64 `json:"min_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
}

// maxLatencySamples bounds per-route memory; the newest samples win.
const maxLatencySamples = 10000

// statsAccumulator accumulates counts and latencies for one route.
type statsAccumulator struct {
	requestCount int64
	errorCount   int64
	status2xx    int64
	status3xx    int64
	status4xx    int64
	status5xx    int64
	latencies    []float64
}

func (a *statsAccumulator) add(status int, latencyMs float64) {
	a.requestCount++

	if latencyMs > 0 {
		if len(a.latencies) >= maxLatencySamples {
			a.latencies = a.latencies[1:]
		}
		a.latencies = append(a.latencies, latencyMs)
	}

	switch {
	case status >= 200 && status < 300:
		a.status2xx++
	case status >= 300 && status < 400:
		a.status3xx++
	case status >= 400 && status < 500:
		a.status4xx++
	case status >= 500:
		a.status5xx++
		a.errorCount++
	}
}

func (a *statsAccumulator) snapshot(route string) RouteStats {
	stats := RouteStats{
		Route:        route,
		RequestCount: a.requestCount,
		ErrorCount:   a.errorCount,
		Status2xx:    a.status2xx,
		Status3xx:    a.status3xx,
		Status4xx:    a.status4xx,
		Status5xx:    a.status5xx,
	}

	if len(a.latencies) > 0 {
		sorted := append([]float64(nil), a.latencies...)
		sort.Float64s(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.MinLatencyMs = sorted[0]
		stats.MaxLatencyMs = sorted[len(sorted)-1]
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}

	return stats
}

// percentile calculates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	index := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	weight := index - float64(lower)

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// StatsFilter records per-route request counts, status classes, and latency
// percentiles. It is a pure post-hook: requests short-circuited earlier in
// the chain never reach it, so it measures handler traffic only.
type StatsFilter struct {
	mu     sync.Mutex
	routes map[string]*statsAccumulator
}

// NewStatsFilter creates the filter.
func NewStatsFilter() *StatsFilter {
	return &StatsFilter{routes: make(map[string]*statsAccumulator)}
}

// Name implements Filter.
func (f *StatsFilter) Name() string { return "stats" }

// Post records the finished request.
func (f *StatsFilter) Post(ctx *Context, resp *Response) {
	var latencyMs float64
	if !ctx.Start.IsZero() {
		latencyMs = float64(time.Since(ctx.Start)) / float64(time.Millisecond)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	acc := f.routes[ctx.RoutePath]
	if acc == nil {
		acc = &statsAccumulator{}
		f.routes[ctx.RoutePath] = acc
	}
	acc.add(resp.StatusCode, latencyMs)
}

// Snapshot returns current stats for every observed route, sorted by route.
func (f *StatsFilter) Snapshot() []RouteStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]RouteStats, 0, len(f.routes))
	for route, acc := range f.routes {
		result = append(result, acc.snapshot(route))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Route < result[j].Route })
	return result
}
