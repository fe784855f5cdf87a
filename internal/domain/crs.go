package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// EPSG codes accepted for input coordinates.
const (
	EPSGNAD83       = 4269
	EPSGWGS84       = 4326
	EPSGWebMercator = 3857
	EPSGConusAlbers = 5070
)

// Projections run on their own ellipsoid with no datum shift. WGS84 input is
// taken as NAD83; the shift is below a meter across CONUS.
var (
	conusAlbers = wgs84.NAD83().AlbersEqualAreaConic(-96, 23, 29.5, 45.5, 0, 0)
	webMercator = wgs84.WebMercator()
)

// ToNAD83 converts x/y in the given EPSG system to a NAD83 lon/lat point.
func ToNAD83(x, y float64, epsg int) (orb.Point, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return orb.Point{}, fmt.Errorf("%w: non-finite coordinate", ErrUnsupportedCRS)
	}
	switch epsg {
	case EPSGNAD83, EPSGWGS84:
		return orb.Point{x, y}, nil
	case EPSGWebMercator:
		return unproject(webMercator, x, y), nil
	case EPSGConusAlbers:
		return unproject(conusAlbers, x, y), nil
	default:
		return orb.Point{}, fmt.Errorf("%w: epsg:%d", ErrUnsupportedCRS, epsg)
	}
}

// ToConusAlbers projects a NAD83 lon/lat point to EPSG:5070 meters.
func ToConusAlbers(p orb.Point) orb.Point {
	x, y := conusAlbers.Projection.FromLonLat(p.Lon(), p.Lat(), conusAlbers.Datum)
	return orb.Point{x, y}
}

// DistanceMeters is the EPSG:5070 planar distance between two NAD83 points.
func DistanceMeters(a, b orb.Point) float64 {
	pa := ToConusAlbers(a)
	pb := ToConusAlbers(b)
	return math.Hypot(pa[0]-pb[0], pa[1]-pb[1])
}

func unproject(crs wgs84.ProjectedReferenceSystem, x, y float64) orb.Point {
	lon, lat := crs.Projection.ToLonLat(x, y, crs.Datum)
	return orb.Point{lon, lat}
}
