package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/observability"
)

// Batch hydrolinks a fixed set of observations with bounded concurrency.
type Batch struct {
	linker     Linker
	workers    int
	logger     *slog.Logger
	metrics    *observability.Metrics
	onProgress func(done, total int)
}

// NewBatch creates a batch runner that links up to workers points at once.
func NewBatch(linker Linker, workers int, logger *slog.Logger, metrics *observability.Metrics) *Batch {
	return &Batch{
		linker:  linker,
		workers: max(workers, 1),
		logger:  logger,
		metrics: metrics,
	}
}

// OnProgress registers fn to be called after each point completes.
// fn may be called from several goroutines at once.
func (b *Batch) OnProgress(fn func(done, total int)) {
	b.onProgress = fn
}

// Run links every observation and returns one record per input, in input
// order. Points that fail to link are returned as failed records. The only
// error is the context's, in which case the results are discarded.
func (b *Batch) Run(ctx context.Context, points []domain.Observation, opts domain.Options) ([]domain.Hydrolink, error) {
	results := make([]domain.Hydrolink, len(points))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, obs := range points {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			hl, err := link(gctx, b.linker, obs, opts, b.logger, b.metrics)
			if err != nil {
				return err
			}
			results[i] = hl
			if b.onProgress != nil {
				b.onProgress(int(done.Add(1)), len(points))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.logger.Info("batch complete", "points", len(points), "linked", countLinked(results))
	return results, nil
}

func countLinked(records []domain.Hydrolink) int {
	var n int
	for _, hl := range records {
		if hl.Linked() {
			n++
		}
	}
	return n
}
