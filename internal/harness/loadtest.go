package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"
)

// LoadConfig drives RunLoad against a running lookup service.
type LoadConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Queries     []string
	MinScore    float64
	Limit       int
}

// LoadStats collects per-request outcomes from concurrent workers.
type LoadStats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newLoadStats() *LoadStats {
	return &LoadStats{
		latencies:   make([]time.Duration, 0, 4096),
		statusCodes: make(map[int]int64),
	}
}

func (s *LoadStats) record(d time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

// LoadReport summarises a load run.
type LoadReport struct {
	Duration    time.Duration
	Total       int64
	Success     int64
	Errors      int64
	Min         time.Duration
	Avg         time.Duration
	P50         time.Duration
	P90         time.Duration
	P95         time.Duration
	P99         time.Duration
	Max         time.Duration
	StdDev      time.Duration
	StatusCodes map[int]int64
}

func (r LoadReport) RequestsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Total) / r.Duration.Seconds()
}

// RunLoad issues lookups from cfg.Concurrency workers, cycling through
// cfg.Queries, until cfg.Duration elapses or ctx is done.
func RunLoad(ctx context.Context, client *http.Client, cfg LoadConfig) (LoadReport, error) {
	if len(cfg.Queries) == 0 {
		return LoadReport{}, errors.New("load test needs at least one query")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	stats := newLoadStats()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	for worker := range cfg.Concurrency {
		wg.Go(func() {
			for i := worker; ctx.Err() == nil; i++ {
				target := lookupURL(cfg, cfg.Queries[i%len(cfg.Queries)])
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				t0 := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(t0)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.record(elapsed, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
		})
	}
	wg.Wait()
	return stats.report(time.Since(start)), nil
}

func lookupURL(cfg LoadConfig, query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("min", strconv.FormatFloat(cfg.MinScore, 'g', -1, 64))
	if cfg.Limit > 0 {
		v.Set("limit", strconv.Itoa(cfg.Limit))
	}
	return cfg.BaseURL + "/api/v1/lookup?" + v.Encode()
}

func (s *LoadStats) report(elapsed time.Duration) LoadReport {
	r := LoadReport{
		Duration:    elapsed,
		Total:       s.totalRequests.Load(),
		Success:     s.successCount.Load(),
		Errors:      s.errorCount.Load(),
		StatusCodes: make(map[int]int64),
	}
	s.mu.Lock()
	latencies := slices.Clone(s.latencies)
	for code, n := range s.statusCodes {
		r.StatusCodes[code] = n
	}
	s.mu.Unlock()
	if len(latencies) == 0 {
		return r
	}

	slices.Sort(latencies)
	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	r.Avg = sum / time.Duration(len(latencies))
	r.Min = latencies[0]
	r.Max = latencies[len(latencies)-1]
	r.P50 = percentile(latencies, 50)
	r.P90 = percentile(latencies, 90)
	r.P95 = percentile(latencies, 95)
	r.P99 = percentile(latencies, 99)

	var sumSquared float64
	for _, l := range latencies {
		diff := float64(l - r.Avg)
		sumSquared += diff * diff
	}
	r.StdDev = time.Duration(math.Sqrt(sumSquared / float64(len(latencies))))
	return r
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

// Print writes the report as aligned text.
func (r LoadReport) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "requests\t%d\n", r.Total)
	fmt.Fprintf(tw, "successful\t%d\n", r.Success)
	fmt.Fprintf(tw, "errors\t%d\n", r.Errors)
	fmt.Fprintf(tw, "requests/sec\t%.2f\n", r.RequestsPerSecond())
	for _, row := range []struct {
		name string
		d    time.Duration
	}{
		{"min", r.Min}, {"avg", r.Avg}, {"p50", r.P50}, {"p90", r.P90},
		{"p95", r.P95}, {"p99", r.P99}, {"max", r.Max}, {"stddev", r.StdDev},
	} {
		fmt.Fprintf(tw, "%s\t%s\n", row.name, row.d)
	}
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(tw, "status %d\t%d\n", code, r.StatusCodes[code])
	}
	return tw.Flush()
}
