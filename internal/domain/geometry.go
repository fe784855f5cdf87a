package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Vertex is a flowline vertex with its NHD measure.
type Vertex struct {
	X, Y, M float64
}

// Point drops the measure.
func (v Vertex) Point() orb.Point { return orb.Point{v.X, v.Y} }

// LineString converts vertices to a planar line.
func LineString(vertices []Vertex) orb.LineString {
	ls := make(orb.LineString, len(vertices))
	for i, v := range vertices {
		ls[i] = v.Point()
	}
	return ls
}

// Project returns the distance along line to the point on line closest to p.
// Distances are planar in the line's own units. When two segments are equally
// close, the earlier one wins.
func Project(line orb.LineString, p orb.Point) float64 {
	if len(line) < 2 {
		return 0
	}

	var (
		best     = math.Inf(1)
		along    float64
		traveled float64
	)
	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		segLen := planar.Distance(a, b)
		t := segmentParam(a, b, p)
		c := orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
		if d := planar.Distance(c, p); d < best {
			best = d
			along = traveled + t*segLen
		}
		traveled += segLen
	}
	return along
}

// Interpolate returns the point at distance d along line, clamped to its ends.
func Interpolate(line orb.LineString, d float64) orb.Point {
	if len(line) == 0 {
		return orb.Point{}
	}
	if d <= 0 {
		return line[0]
	}
	var traveled float64
	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		segLen := planar.Distance(a, b)
		if segLen > 0 && traveled+segLen >= d {
			t := (d - traveled) / segLen
			return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
		}
		traveled += segLen
	}
	return line[len(line)-1]
}

// segmentParam returns t in [0,1] for the projection of p onto segment ab.
func segmentParam(a, b, p orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	return math.Max(0, math.Min(1, t))
}
