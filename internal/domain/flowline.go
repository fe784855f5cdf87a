package domain

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// Flowline is an NHD flowline feature as returned by a map service.
// NHDPlusV2 carries ComID and TerminalFlag; NHDHR carries PermanentID.
type Flowline struct {
	GNISName     string   `json:"gnis_name,omitempty"`
	LengthKm     float64  `json:"length_km"`
	PermanentID  string   `json:"permanent_identifier,omitempty"`
	ReachCode    string   `json:"reachcode"`
	ComID        int64    `json:"comid,omitempty"`
	TerminalFlag *int     `json:"terminal_flag,omitempty"`
	Vertices     []Vertex `json:"-"`
}

// Waterbody is the NHD waterbody containing a point.
type Waterbody struct {
	PermanentID string `json:"permanent_identifier"`
	GNISName    string `json:"gnis_name,omitempty"`
	ReachCode   string `json:"reachcode"`
	FType       int    `json:"ftype,omitempty"`
	ComID       int64  `json:"comid,omitempty"`
}

// Candidate is a flowline evaluated against a point.
type Candidate struct {
	Flowline
	NameSimilarity

	SnapPoint     orb.Point   `json:"-"`
	SnapMeters    float64     `json:"meters_from_flowline"`
	Measure       *float64    `json:"measure"`
	ClosestOrder  int         `json:"closest_flowline_order"`
	TerminalNodes []orb.Point `json:"-"`
}

var errEmptyGeometry = errors.New("flowline has no vertices")

// Evaluate snaps p to the flowline and computes the measure, snap distance,
// terminal nodes and name similarity against waterName.
func Evaluate(f Flowline, p orb.Point, waterName string) (Candidate, error) {
	if len(f.Vertices) == 0 {
		return Candidate{}, errEmptyGeometry
	}

	line := LineString(f.Vertices)
	snap := Interpolate(line, Project(line, p))

	return Candidate{
		Flowline:       f,
		NameSimilarity: CompareNames(f.GNISName, waterName),
		SnapPoint:      snap,
		SnapMeters:     DistanceMeters(snap, p),
		Measure:        FlowlineMeasure(f.Vertices, snap),
		TerminalNodes:  TerminalNodes(f.Vertices),
	}, nil
}

// FlowlineMeasure returns the NHD measure at snap, a point on the flowline.
// Measures are interpolated linearly between the minimum and maximum vertex
// measures by distance along the line, honoring the digitized direction.
// It returns nil when the line has no length between its extreme nodes.
func FlowlineMeasure(vertices []Vertex, snap orb.Point) *float64 {
	if len(vertices) == 0 {
		return nil
	}
	minV, maxV := measureExtremes(vertices)
	line := LineString(vertices)

	toSnap := Project(line, snap)
	toMin := Project(line, minV.Point())
	toMax := Project(line, maxV.Point())
	total := math.Max(toMin, toMax)
	span := maxV.M - minV.M

	var m float64
	switch {
	case toMin > toMax:
		m = maxV.M - span*toSnap/total
	case total != 0:
		m = span*toSnap/total + minV.M
	default:
		return nil
	}
	return &m
}

// TerminalNodes returns the distinct vertices holding the minimum or maximum
// measure of the flowline.
func TerminalNodes(vertices []Vertex) []orb.Point {
	if len(vertices) == 0 {
		return nil
	}
	minV, maxV := measureExtremes(vertices)
	seen := make(map[orb.Point]struct{}, 2)
	var nodes []orb.Point
	for _, v := range vertices {
		if v.M != minV.M && v.M != maxV.M {
			continue
		}
		p := v.Point()
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		nodes = append(nodes, p)
	}
	return nodes
}

// measureExtremes returns the first vertex with the lowest and the first with
// the highest measure.
func measureExtremes(vertices []Vertex) (minV, maxV Vertex) {
	minV, maxV = vertices[0], vertices[0]
	for _, v := range vertices[1:] {
		if v.M < minV.M {
			minV = v
		}
		if v.M > maxV.M {
			maxV = v
		}
	}
	return minV, maxV
}
