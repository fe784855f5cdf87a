package domain

import "fmt"

// NHDVersion selects the hydrography dataset to link against.
type NHDVersion string

const (
	NHDHighRes NHDVersion = "nhdhr"
	NHDPlusV2  NHDVersion = "nhdplusv2"
)

// Method selects how the hydrolinked flowline is chosen among candidates.
type Method string

const (
	MethodNameMatch Method = "name_match"
	MethodClosest   Method = "closest"
)

// HydroType is the NHD feature type a point is linked to.
type HydroType string

const (
	HydroFlowline  HydroType = "flowline"
	HydroWaterbody HydroType = "waterbody"
)

const (
	// MaxBufferMeters bounds the candidate search radius.
	MaxBufferMeters = 2000
	// DefaultBufferMeters is used when an observation does not carry a buffer.
	DefaultBufferMeters = 1000
	// DefaultSimilarityCutoff is the lowest name similarity counted as a match.
	DefaultSimilarityCutoff = 0.6
)

// Options controls a hydrolink run.
type Options struct {
	Version          NHDVersion `json:"nhd_version"`
	Method           Method     `json:"method"`
	HydroType        HydroType  `json:"hydro_type"`
	SimilarityCutoff float64    `json:"similarity_cutoff"`
}

// DefaultOptions links to NHDHR flowlines by name match.
func DefaultOptions() Options {
	return Options{
		Version:          NHDHighRes,
		Method:           MethodNameMatch,
		HydroType:        HydroFlowline,
		SimilarityCutoff: DefaultSimilarityCutoff,
	}
}

// Validate reports ErrInvalidOptions for unknown values or a cutoff outside [0.6, 1.0].
func (o Options) Validate() error {
	switch o.Version {
	case NHDHighRes, NHDPlusV2:
	default:
		return fmt.Errorf("%w: unknown nhd version %q (nhdhr or nhdplusv2)", ErrInvalidOptions, o.Version)
	}
	switch o.Method {
	case MethodNameMatch, MethodClosest:
	default:
		return fmt.Errorf("%w: unknown method %q (name_match or closest)", ErrInvalidOptions, o.Method)
	}
	switch o.HydroType {
	case HydroFlowline, HydroWaterbody:
	default:
		return fmt.Errorf("%w: unknown hydro type %q (flowline or waterbody)", ErrInvalidOptions, o.HydroType)
	}
	if o.SimilarityCutoff < 0.6 || o.SimilarityCutoff > 1.0 {
		return fmt.Errorf("%w: similarity cutoff %g must be between 0.6 and 1.0", ErrInvalidOptions, o.SimilarityCutoff)
	}
	return nil
}

// Merge fills zero-valued fields of o from defaults.
func (o Options) Merge(defaults Options) Options {
	if o.Version == "" {
		o.Version = defaults.Version
	}
	if o.Method == "" {
		o.Method = defaults.Method
	}
	if o.HydroType == "" {
		o.HydroType = defaults.HydroType
	}
	if o.SimilarityCutoff == 0 {
		o.SimilarityCutoff = defaults.SimilarityCutoff
	}
	return o
}
