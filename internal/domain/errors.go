package domain

import "errors"

// Errors reported for a single point. They are wrapped with the source id, so
// compare with errors.Is.
var (
	ErrBufferTooLarge     = errors.New("maximum buffer is 2000 meters, reduce buffer")
	ErrNegativeBuffer     = errors.New("buffer must be zero or greater")
	ErrUnsupportedCRS     = errors.New("issues handling provided coordinate system or coordinates, consider using a common crs like 4269 (NAD83) or 4326 (WGS84)")
	ErrOutsideUS          = errors.New("coordinates are outside of the bounding box of the United States")
	ErrWaterbodyRequest   = errors.New("waterbody request failed, possibly service call issue")
	ErrFlowlineRequest    = errors.New("flowline request failed")
	ErrNoFlowlines        = errors.New("no flowlines selected, try increasing buffer")
	ErrFlowlineEvaluation = errors.New("flowline evaluation failed")
	ErrAmbiguousSnap      = errors.New("multiple flowlines with same snap distance")
	ErrInvalidOptions     = errors.New("invalid hydrolink options")
)

// ErrRecordNotFound is returned by result stores for unknown source ids.
var ErrRecordNotFound = errors.New("hydrolink record not found")
