package domain

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

// Status reports whether a point was hydrolinked.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Hydrolink is the address of a point on the NHD together with the measures
// of certainty gathered while choosing it.
type Hydrolink struct {
	SourceID        string     `json:"source_id"`
	SourceWaterName string     `json:"source_water_name,omitempty"`
	SourceLat       float64    `json:"source_lat_nad83"`
	SourceLon       float64    `json:"source_lon_nad83"`
	BufferMeters    int        `json:"source_buffer_meters"`
	Version         NHDVersion `json:"nhd_version"`
	Method          Method     `json:"method"`
	HydroType       HydroType  `json:"hydro_type"`

	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`

	ClosestConfluenceMeters *float64 `json:"closest_confluence_meters,omitempty"`
	FlowlineCount           int      `json:"total_count_flowlines_in_buffer"`
	NameMatchCount          int      `json:"count_name_match_in_buffer"`

	Flowline  *Candidate `json:"flowline,omitempty"`
	Waterbody *Waterbody `json:"waterbody,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// Linked reports whether the record holds a selected flowline.
func (h Hydrolink) Linked() bool {
	return h.Status == StatusSuccess && h.Flowline != nil
}

// NHDService queries NHD features from a hydrography map service.
type NHDService interface {
	// FlowlinesNear returns flowlines within bufferMeters of p.
	FlowlinesNear(ctx context.Context, version NHDVersion, p orb.Point, bufferMeters int) ([]Flowline, error)

	// FlowlinesInWaterbody returns flowlines inside the waterbody with the given permanent identifier.
	FlowlinesInWaterbody(ctx context.Context, version NHDVersion, waterbodyID string) ([]Flowline, error)

	// WaterbodyAt returns the waterbody containing p, or nil when p is not in one.
	WaterbodyAt(ctx context.Context, version NHDVersion, p orb.Point) (*Waterbody, error)
}
