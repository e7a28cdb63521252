package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"chartgallery/internal/domain"
	"chartgallery/internal/metrics"
	"chartgallery/internal/store"
)

// BatchRequest describes one generate submission.
type BatchRequest struct {
	Symbols []string
	Years   float64
	Days    int
	Start   time.Time
	End     time.Time
	Now     time.Time
}

// Outcome is the result of one symbol in a batch. Exactly one of Artifact and
// Err is set.
type Outcome struct {
	Symbol   string
	Artifact *Artifact
	Err      error
	Duration time.Duration
}

// Batch runs a pipeline over many symbols, isolating per-symbol failures.
type Batch struct {
	pipeline *Pipeline
	runs     store.RunStore // optional
	workers  int
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithRunStore records every outcome in rs.
func WithRunStore(rs store.RunStore) BatchOption {
	return func(b *Batch) { b.runs = rs }
}

// WithWorkers bounds how many symbols run at once. Values below 1 mean 1.
func WithWorkers(n int) BatchOption {
	return func(b *Batch) { b.workers = n }
}

// WithMetrics observes every outcome.
func WithMetrics(m *metrics.Metrics) BatchOption {
	return func(b *Batch) { b.metrics = m }
}

// WithLogger sets the batch logger.
func WithLogger(log *slog.Logger) BatchOption {
	return func(b *Batch) { b.log = log }
}

// NewBatch creates a batch runner around p.
func NewBatch(p *Pipeline, opts ...BatchOption) *Batch {
	b := &Batch{pipeline: p, workers: 1, log: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	b.log = b.log.With("component", "batch")
	return b
}

// NormalizeSymbols trims and upper-cases symbols, dropping empty entries.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Run executes the pipeline for every symbol and returns outcomes in input
// order. A failing symbol never stops the others; only ctx cancellation does,
// in which case the remaining symbols report the context error.
func (b *Batch) Run(ctx context.Context, req BatchRequest) []Outcome {
	symbols := NormalizeSymbols(req.Symbols)
	outcomes := make([]Outcome, len(symbols))
	batchID := uuid.NewString()

	log := b.log.With("batch", batchID)
	log.Info("batch started", "symbols", len(symbols), "years", req.Years,
		"days", req.Days, "workers", b.workers)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, sym := range symbols {
		g.Go(func() error {
			outcomes[i] = b.runOne(ctx, log, batchID, sym, req)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	log.Info("batch finished", "ok", len(outcomes)-failed, "failed", failed,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return outcomes
}

func (b *Batch) runOne(ctx context.Context, log *slog.Logger, batchID, symbol string, req BatchRequest) Outcome {
	started := time.Now()
	var (
		art *Artifact
		err error
	)
	if err = ctx.Err(); err == nil {
		art, err = b.pipeline.Run(ctx, Request{
			Symbol: symbol,
			Years:  req.Years,
			Days:   req.Days,
			Start:  req.Start,
			End:    req.End,
			Now:    req.Now,
		})
	}
	out := Outcome{Symbol: symbol, Artifact: art, Err: err, Duration: time.Since(started)}

	run := &domain.Run{
		ID:        uuid.NewString(),
		BatchID:   batchID,
		Symbol:    symbol,
		Years:     req.Years,
		Days:      req.Days,
		Status:    domain.RunStatusOK,
		StartedAt: started,
		Duration:  out.Duration,
	}
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Stage = StageOf(err)
		run.Reason = err.Error()
		log.Warn("symbol failed", "symbol", symbol, "stage", run.Stage, "err", err)
	} else {
		run.Artifact = art.Filename
	}
	b.metrics.ObserveRun(string(run.Status), run.Stage, out.Duration)

	if b.runs != nil {
		// Recorded even when ctx is already cancelled.
		if rerr := b.runs.RecordRun(context.WithoutCancel(ctx), run); rerr != nil {
			log.Error("recording run", "symbol", symbol, "err", rerr)
		}
	}
	return out
}

// StageOf returns the failing stage recorded in err, or "" when err is not a
// *Failure.
func StageOf(err error) string {
	var f *Failure
	if errors.As(err, &f) {
		return f.Stage
	}
	return ""
}
