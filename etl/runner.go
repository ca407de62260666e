package etl

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/metrics"
	"golang.org/x/sync/errgroup"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Interval slept between cycles.
	Interval time.Duration
	// BatchSize of record extraction and loading.
	BatchSize int
	// Parallel runs the pipelines of a cycle concurrently.
	Parallel bool
}

// Runner drives Pipelines through repeated cycles. Within a cycle, each
// pipeline resolves its changed identifiers, then extracts, transforms,
// and loads their records. A failed pipeline doesn't affect others, and
// the identifiers of a failed cycle are carried into the pipeline's next
// cycle.
type Runner struct {
	cfg       RunnerConfig
	resolver  *Resolver
	pipelines []*pipelineRun
}

type pipelineRun struct {
	Pipeline
	pending []string
}

// NewRunner returns a Runner of |pipelines|.
func NewRunner(cfg RunnerConfig, resolver *Resolver, pipelines ...Pipeline) *Runner {
	var r = &Runner{cfg: cfg, resolver: resolver}
	for _, p := range pipelines {
		r.pipelines = append(r.pipelines, &pipelineRun{Pipeline: p})
	}
	return r
}

// Run cycles until |ctx| is done. A cycle in progress isn't interrupted:
// cancellation is observed only between cycles.
func (r *Runner) Run(ctx context.Context) error {
	for {
		r.Cycle(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			return nil
		case <-timeAfter(r.cfg.Interval):
		}
	}
}

// Cycle runs a single cycle of every pipeline, returning the errors of
// failed pipelines keyed on pipeline name.
func (r *Runner) Cycle(ctx context.Context) map[string]error {
	var failed = make(map[string]error)
	var mu sync.Mutex
	var record = func(p *pipelineRun) {
		if err := r.cycle(ctx, p); err != nil {
			mu.Lock()
			failed[p.Name] = err
			mu.Unlock()
		}
	}

	if !r.cfg.Parallel {
		for _, p := range r.pipelines {
			record(p)
		}
		return failed
	}

	var eg errgroup.Group
	for _, p := range r.pipelines {
		var p = p
		eg.Go(func() error { record(p); return nil })
	}
	_ = eg.Wait()
	return failed
}

// Pending returns the identifiers carried over from a failed cycle of the
// named pipeline.
func (r *Runner) Pending(name string) []string {
	for _, p := range r.pipelines {
		if p.Name == name {
			return p.pending
		}
	}
	return nil
}

func (r *Runner) cycle(ctx context.Context, p *pipelineRun) (err error) {
	var started = timeNow()
	var logger = log.WithField("pipeline", p.Name)

	defer func() {
		r.observe(p, Idle)
		metrics.CarryOverIDs.WithLabelValues(p.Name).Set(float64(len(p.pending)))
		metrics.CycleDurationSeconds.WithLabelValues(p.Name).Observe(timeNow().Sub(started).Seconds())

		if err != nil {
			metrics.CycleTotal.WithLabelValues(p.Name, metrics.Fail).Inc()
			logger.WithFields(log.Fields{
				"err":       err,
				"carryOver": len(p.pending),
			}).Error("pipeline cycle abandoned")
		} else {
			metrics.CycleTotal.WithLabelValues(p.Name, metrics.Ok).Inc()
		}
	}()

	r.observe(p, Resolving)
	var ids, rErr = r.resolver.Resolve(ctx, p.Filters)
	metrics.ChangedIDsTotal.WithLabelValues(p.Name).Add(float64(len(ids)))

	ids = union(p.pending, ids)
	if rErr != nil {
		p.pending = ids
		return rErr
	} else if len(ids) == 0 {
		logger.Debug("no changes")
		return nil
	}

	var extracted, loaded, pErr = p.Projection.Project(ctx, ids, r.cfg.BatchSize, func(s State) { r.observe(p, s) })
	metrics.ExtractedRowsTotal.WithLabelValues(p.Name).Add(float64(extracted))

	if pErr != nil {
		p.pending = ids
		return pErr
	}
	p.pending = nil

	logger.WithFields(log.Fields{
		"changed":   len(ids),
		"extracted": extracted,
		"loaded":    loaded,
		"took":      timeNow().Sub(started),
	}).Info("pipeline cycle complete")
	return nil
}

func (r *Runner) observe(p *pipelineRun, s State) {
	log.WithFields(log.Fields{"pipeline": p.Name, "state": s}).Trace("pipeline state")
	metrics.PipelineState.WithLabelValues(p.Name).Set(float64(s))
}

// union returns the distinct elements of |a| followed by those of |b|.
func union(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	var out = make([]string, 0, len(a)+len(b))
	var seen = make(map[string]struct{}, len(a)+len(b))

	for _, s := range [][]string{a, b} {
		for _, id := range s {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

var (
	timeNow   = time.Now
	timeAfter = time.After
)
