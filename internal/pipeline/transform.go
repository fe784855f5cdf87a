package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/couchcryptid/hydrolink/internal/observability"
)

// Linker hydrolinks a single observation. *domain.Linker implements it.
type Linker interface {
	Link(ctx context.Context, obs domain.Observation, opts domain.Options) (domain.Hydrolink, error)
}

// LinkRequest is the JSON form of an observation accepted from Kafka and HTTP.
// Option fields override the service defaults for this point only.
type LinkRequest struct {
	ID               string   `json:"id"`
	Lat              *float64 `json:"lat"`
	Lon              *float64 `json:"lon"`
	CRS              int      `json:"crs,omitempty"`
	WaterName        string   `json:"water_name,omitempty"`
	BufferMeters     *int     `json:"buffer_m,omitempty"`
	NHDVersion       string   `json:"nhd_version,omitempty"`
	Method           string   `json:"method,omitempty"`
	HydroType        string   `json:"hydro_type,omitempty"`
	SimilarityCutoff float64  `json:"similarity_cutoff,omitempty"`
}

// ErrInvalidRequest reports a request missing required fields or not valid JSON.
var ErrInvalidRequest = errors.New("invalid observation")

// DecodeLinkRequest parses a JSON observation. A missing buffer takes
// defaultBuffer; a missing id falls back to fallbackID.
func DecodeLinkRequest(data []byte, fallbackID string, defaultBuffer int) (domain.Observation, domain.Options, error) {
	var req LinkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.Observation{}, domain.Options{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return req.Observation(fallbackID, defaultBuffer)
}

// Observation validates required fields and splits the request into the
// observation and its per-point options.
func (r LinkRequest) Observation(fallbackID string, defaultBuffer int) (domain.Observation, domain.Options, error) {
	id := r.ID
	if id == "" {
		id = fallbackID
	}
	if id == "" {
		return domain.Observation{}, domain.Options{}, fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	if r.Lat == nil || r.Lon == nil {
		return domain.Observation{}, domain.Options{}, fmt.Errorf("%w: id %s: lat and lon are required", ErrInvalidRequest, id)
	}

	buffer := defaultBuffer
	if r.BufferMeters != nil {
		buffer = *r.BufferMeters
	}

	obs := domain.Observation{
		SourceID:     id,
		Lat:          *r.Lat,
		Lon:          *r.Lon,
		CRS:          r.CRS,
		WaterName:    r.WaterName,
		BufferMeters: buffer,
	}
	opts := domain.Options{
		Version:          domain.NHDVersion(r.NHDVersion),
		Method:           domain.Method(r.Method),
		HydroType:        domain.HydroType(r.HydroType),
		SimilarityCutoff: r.SimilarityCutoff,
	}
	return obs, opts, nil
}

// LinkTransformer implements Transformer by decoding JSON observations and
// hydrolinking them.
type LinkTransformer struct {
	linker        Linker
	defaultBuffer int
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewTransformer creates a LinkTransformer. defaultBuffer applies to messages
// without a buffer_m field.
func NewTransformer(linker Linker, defaultBuffer int, logger *slog.Logger, metrics *observability.Metrics) *LinkTransformer {
	return &LinkTransformer{
		linker:        linker,
		defaultBuffer: defaultBuffer,
		logger:        logger,
		metrics:       metrics,
	}
}

func (t *LinkTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.Hydrolink, error) {
	obs, opts, err := DecodeLinkRequest(raw.Value, string(raw.Key), t.defaultBuffer)
	if err != nil {
		return domain.Hydrolink{}, err
	}
	return link(ctx, t.linker, obs, opts, t.logger, t.metrics)
}

// link runs the linker and records metrics. Only context errors are returned;
// other failures are carried by the failed record.
func link(ctx context.Context, linker Linker, obs domain.Observation, opts domain.Options, logger *slog.Logger, metrics *observability.Metrics) (domain.Hydrolink, error) {
	start := time.Now()
	hl, err := linker.Link(ctx, obs, opts)
	metrics.LinkDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return hl, ctxErr
		}
		logger.Info("point not hydrolinked", "source_id", obs.SourceID, "error", err)
	}
	metrics.PointsLinked.WithLabelValues(string(hl.Version), string(hl.Status)).Inc()
	return hl, nil
}
