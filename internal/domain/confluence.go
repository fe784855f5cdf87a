package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// ClosestConfluence returns the distance in meters from p to the nearest
// confluence among the candidates, or nil when there is none. A confluence is
// a terminal node shared by three or more flowlines. Nodes are compared by
// their WKT text so vertices digitized identically in different features
// coincide.
func ClosestConfluence(candidates []Candidate, p orb.Point) *float64 {
	counts := make(map[string]int)
	points := make(map[string]orb.Point)
	for _, c := range candidates {
		for _, n := range c.TerminalNodes {
			key := wkt.MarshalString(n)
			counts[key]++
			points[key] = n
		}
	}

	var closest *float64
	for key, n := range counts {
		if n <= 2 {
			continue
		}
		d := DistanceMeters(points[key], p)
		if closest == nil || d < *closest {
			closest = &d
		}
	}
	return closest
}
