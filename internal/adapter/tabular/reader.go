// Package tabular reads point observations from CSV files and point
// shapefiles, and appends hydrolink records to CSV files.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/hydrolink/internal/domain"
)

// NoStreamName disables water names when given as the stream name field.
const NoStreamName = "None"

var (
	ErrUnsupportedFile = errors.New("file type not accepted, only .csv and .shp are accepted")
	ErrMissingField    = errors.New("field not found, verify field names and rerun")
)

// Fields names the input columns holding each observation attribute.
// Field names are case sensitive.
type Fields struct {
	ID         string
	Lat        string
	Lon        string
	StreamName string
}

// DefaultFields matches the column names used by the command line defaults.
func DefaultFields() Fields {
	return Fields{ID: "id", Lat: "y", Lon: "x", StreamName: "stream"}
}

// Input describes how rows become observations. CRS and BufferMeters apply to
// every row.
type Input struct {
	Fields       Fields
	CRS          int
	BufferMeters int
}

// ReadFile reads observations from a .csv or .shp file.
func (in Input) ReadFile(path string) ([]domain.Observation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		return in.ReadCSV(f)
	case ".shp":
		return in.ReadShapefile(path)
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFile)
	}
}

// ReadCSV reads ISO-8859-1 encoded CSV with a header row.
func (in Input) ReadCSV(r io.Reader) ([]domain.Observation, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx, err := in.columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []domain.Observation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		obs, err := in.observation(func(col string) string {
			if i := idx[col]; i < len(rec) {
				return rec[i]
			}
			return ""
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, obs)
	}
	return out, nil
}

// ReadShapefile reads attributes from the shapefile's dBase table. When the
// latitude or longitude field is absent the point geometry is used instead.
func (in Input) ReadShapefile(path string) ([]domain.Observation, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	fields := r.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.String()
	}

	geomLat := !contains(header, in.Fields.Lat)
	geomLon := !contains(header, in.Fields.Lon)
	check := in
	if geomLat {
		check.Fields.Lat = ""
	}
	if geomLon {
		check.Fields.Lon = ""
	}
	idx, err := check.columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []domain.Observation
	for r.Next() {
		n, shape := r.Shape()
		pt, ok := shape.(*shp.Point)
		if (geomLat || geomLon) && !ok {
			return nil, fmt.Errorf("record %d: shapefile must contain point geometries", n)
		}
		obs, err := in.observation(func(col string) string {
			switch {
			case col == in.Fields.Lat && geomLat:
				return strconv.FormatFloat(pt.Y, 'f', -1, 64)
			case col == in.Fields.Lon && geomLon:
				return strconv.FormatFloat(pt.X, 'f', -1, 64)
			}
			return strings.Trim(r.ReadAttribute(n, idx[col]), " \x00")
		})
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
		out = append(out, obs)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile: %w", err)
	}
	return out, nil
}

func (in Input) columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range []string{in.Fields.ID, in.Fields.Lat, in.Fields.Lon} {
		if col == "" {
			continue
		}
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if in.streamEnabled() {
		if _, ok := idx[in.Fields.StreamName]; !ok {
			missing = append(missing, in.Fields.StreamName)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (in Input) streamEnabled() bool {
	return in.Fields.StreamName != "" && in.Fields.StreamName != NoStreamName
}

func (in Input) observation(value func(col string) string) (domain.Observation, error) {
	id := strings.TrimSpace(value(in.Fields.ID))
	lat, err := strconv.ParseFloat(strings.TrimSpace(value(in.Fields.Lat)), 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("id %s: invalid latitude: %w", id, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(value(in.Fields.Lon)), 64)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("id %s: invalid longitude: %w", id, err)
	}

	obs := domain.Observation{
		SourceID:     id,
		Lat:          lat,
		Lon:          lon,
		CRS:          in.CRS,
		BufferMeters: in.BufferMeters,
	}
	if in.streamEnabled() {
		obs.WaterName = value(in.Fields.StreamName)
	}
	return obs, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
