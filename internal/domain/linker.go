package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// Linker hydrolinks observations using an NHD map service.
// It holds no per-point state and is safe for concurrent use.
type Linker struct {
	service  NHDService
	defaults Options
	logger   *slog.Logger
}

// NewLinker creates a Linker. defaults fill any option left unset per call.
func NewLinker(service NHDService, defaults Options, logger *slog.Logger) *Linker {
	return &Linker{
		service:  service,
		defaults: defaults,
		logger:   logger,
	}
}

// Link hydrolinks a single observation. The returned record is always
// populated: on failure its Status is StatusFailed, Message describes the
// problem and the same error is returned for the caller to inspect.
func (l *Linker) Link(ctx context.Context, obs Observation, opts Options) (Hydrolink, error) {
	opts = opts.Merge(l.defaults)

	hl := Hydrolink{
		SourceID:        obs.SourceID,
		SourceWaterName: NormalizeWaterName(obs.WaterName),
		SourceLat:       obs.Lat,
		SourceLon:       obs.Lon,
		BufferMeters:    obs.BufferMeters,
		Version:         opts.Version,
		Method:          opts.Method,
		HydroType:       opts.HydroType,
	}

	if err := opts.Validate(); err != nil {
		return fail(hl, err)
	}

	p, err := NewPoint(obs)
	if err != nil {
		return fail(hl, err)
	}
	hl.SourceLat = p.Lat()
	hl.SourceLon = p.Lon()

	flowlines, err := l.candidateFlowlines(ctx, p, opts, &hl)
	if err != nil {
		return fail(hl, err)
	}
	if len(flowlines) == 0 {
		return fail(hl, fmt.Errorf("id %s: %w", p.SourceID, ErrNoFlowlines))
	}

	candidates := make([]Candidate, 0, len(flowlines))
	for _, f := range flowlines {
		c, err := Evaluate(f, p.Location, p.WaterName)
		if err != nil {
			return fail(hl, fmt.Errorf("id %s: %w: %w", p.SourceID, ErrFlowlineEvaluation, err))
		}
		candidates = append(candidates, c)
	}

	ranked := RankCandidates(candidates)
	hl.ClosestConfluenceMeters = ClosestConfluence(ranked, p.Location)
	hl.FlowlineCount = len(ranked)
	hl.NameMatchCount = CountNameMatches(ranked, opts.SimilarityCutoff)

	var selected Candidate
	switch opts.Method {
	case MethodClosest:
		selected, err = SelectClosest(ranked)
	default:
		selected, err = SelectNameMatch(ranked, opts.SimilarityCutoff)
	}
	if err != nil {
		return fail(hl, fmt.Errorf("id %s: %w", p.SourceID, err))
	}

	hl.Flowline = &selected
	hl.Status = StatusSuccess
	hl.ProcessedAt = clock.Now()
	return hl, nil
}

// candidateFlowlines queries flowlines in the point's waterbody when linking
// to waterbodies and the point lies in one, otherwise flowlines within the buffer.
func (l *Linker) candidateFlowlines(ctx context.Context, p Point, opts Options, hl *Hydrolink) ([]Flowline, error) {
	if opts.HydroType == HydroWaterbody {
		wb, err := l.service.WaterbodyAt(ctx, opts.Version, p.Location)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.logger.Warn("waterbody query failed", "source_id", p.SourceID, "error", err)
			return nil, fmt.Errorf("id %s: %w: %w", p.SourceID, ErrWaterbodyRequest, err)
		}
		if wb != nil {
			hl.Waterbody = wb
			flowlines, err := l.service.FlowlinesInWaterbody(ctx, opts.Version, wb.PermanentID)
			return flowlines, l.flowlineErr(ctx, p, err)
		}
	}

	flowlines, err := l.service.FlowlinesNear(ctx, opts.Version, p.Location, p.BufferMeters)
	return flowlines, l.flowlineErr(ctx, p, err)
}

func (l *Linker) flowlineErr(ctx context.Context, p Point, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	l.logger.Warn("flowline query failed", "source_id", p.SourceID, "error", err)
	return fmt.Errorf("id %s: %w: %w", p.SourceID, ErrFlowlineRequest, err)
}

func fail(hl Hydrolink, err error) (Hydrolink, error) {
	hl.Status = StatusFailed
	hl.Message = err.Error()
	hl.Flowline = nil
	hl.ProcessedAt = clock.Now()
	return hl, err
}
