package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Observation is a point to hydrolink as supplied by the user.
type Observation struct {
	SourceID     string  `json:"id"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	CRS          int     `json:"crs,omitempty"`
	WaterName    string  `json:"water_name,omitempty"`
	BufferMeters int     `json:"buffer_m,omitempty"`
}

// Point is a validated observation in NAD83 coordinates.
type Point struct {
	SourceID     string
	Location     orb.Point // lon, lat (EPSG:4269)
	WaterName    string    // empty when the source had no usable name
	BufferMeters int
}

// Lat returns the NAD83 latitude.
func (p Point) Lat() float64 { return p.Location.Lat() }

// Lon returns the NAD83 longitude.
func (p Point) Lon() float64 { return p.Location.Lon() }

// NewPoint validates the buffer, converts coordinates to NAD83 and checks
// them against the United States bounding box (including Puerto Rico and the
// Virgin Islands). The box is loose and mainly catches missing values, zeros
// and positive longitudes.
func NewPoint(obs Observation) (Point, error) {
	if obs.BufferMeters > MaxBufferMeters {
		return Point{}, fmt.Errorf("id %s: %w", obs.SourceID, ErrBufferTooLarge)
	}
	if obs.BufferMeters < 0 {
		return Point{}, fmt.Errorf("id %s: %w", obs.SourceID, ErrNegativeBuffer)
	}

	crs := obs.CRS
	if crs == 0 {
		crs = EPSGNAD83
	}
	loc, err := ToNAD83(obs.Lon, obs.Lat, crs)
	if err != nil {
		return Point{}, fmt.Errorf("id %s: %w", obs.SourceID, err)
	}
	if !InUSBounds(loc) {
		return Point{}, fmt.Errorf("id %s: %w", obs.SourceID, ErrOutsideUS)
	}

	return Point{
		SourceID:     obs.SourceID,
		Location:     loc,
		WaterName:    NormalizeWaterName(obs.WaterName),
		BufferMeters: obs.BufferMeters,
	}, nil
}

// InUSBounds reports whether a NAD83 point falls in the general US bounding box.
func InUSBounds(p orb.Point) bool {
	return p.Lat() > 17.5 && p.Lat() < 71.5 && p.Lon() < -64.0 && p.Lon() > -178.5
}

// NormalizeWaterName returns "" for names that carry no information:
// blank strings and the "nan"/"none" placeholders spreadsheets produce.
func NormalizeWaterName(name string) string {
	trimmed := strings.TrimSpace(name)
	switch strings.ToLower(trimmed) {
	case "", "nan", "none", "null":
		return ""
	}
	return name
}
