// Package storm runs bounded batches of independent probes in parallel.
package storm

import (
	"context"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config bounds a probe storm: pool size, per-probe jitter window, and the
// per-probe timeout that keeps one stuck probe from blocking aggregation.
type Config struct {
	Workers      int
	MinJitter    time.Duration
	MaxJitter    time.Duration
	ProbeTimeout time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxJitter < c.MinJitter {
		c.MaxJitter = c.MinJitter
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	return c
}

// ProbeFunc performs one unit of work against a target and returns the
// resolved value. The context carries the per-probe timeout.
type ProbeFunc func(ctx context.Context, target string) (string, error)

// Result is the single outcome a probe produces. A failed probe yields
// Success=false and the error text; it never aborts sibling probes.
type Result struct {
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Value     string    `json:"value,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Summary aggregates a completed storm. It is derived data, recomputed
// fresh each run and independent of completion order; modules copy it into
// their own serializable summary records.
type Summary struct {
	Total      int
	Successful int
	Failed     int
	Elapsed    time.Duration
	Parent     string
}

// Expand draws n targets round-robin from the candidate list.
func Expand(candidates []string, n int) []string {
	if len(candidates) == 0 || n <= 0 {
		return nil
	}
	targets := make([]string, n)
	for i := range targets {
		targets[i] = candidates[i%len(candidates)]
	}
	return targets
}

// Executor runs fixed-size batches of independent probes in parallel.
type Executor struct {
	cfg Config
}

// New creates an executor with defaults applied.
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg.withDefaults()}
}

// Run executes all targets across the worker pool and returns one result
// per target in completion order, plus the aggregate summary. Probe
// failures are absorbed into their results; Run itself never fails.
func (e *Executor) Run(ctx context.Context, targets []string, probe ProbeFunc) ([]Result, Summary) {
	start := time.Now()

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(targets))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for _, target := range targets {
		target := target
		g.Go(func() error {
			e.sleepJitter(ctx)

			probeCtx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
			value, err := probe(probeCtx, target)
			cancel()

			res := Result{
				Target:    target,
				Timestamp: time.Now().UTC(),
				Success:   err == nil,
				Value:     value,
			}
			if err != nil {
				res.Value = ""
				res.Error = err.Error()
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	g.Wait() //nolint:errcheck // probe errors are captured per-result

	summary := Summary{
		Total:   len(targets),
		Elapsed: time.Since(start),
		Parent:  parentExe(),
	}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		}
	}
	summary.Failed = summary.Total - summary.Successful

	return results, summary
}

// sleepJitter delays the probe by a random amount inside the configured
// window so the batch does not fire as one synchronized burst.
func (e *Executor) sleepJitter(ctx context.Context) {
	window := e.cfg.MaxJitter - e.cfg.MinJitter
	d := e.cfg.MinJitter
	if window > 0 {
		d += time.Duration(rand.Int63n(int64(window)))
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func parentExe() string {
	exe, err := os.Executable()
	if err != nil {
		return "<unknown>"
	}
	return exe
}
