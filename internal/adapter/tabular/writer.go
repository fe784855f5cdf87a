package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/couchcryptid/hydrolink/internal/domain"
)

type column struct {
	name  string
	value func(hl domain.Hydrolink) string
}

// Header returns the output column names for an NHD version.
func Header(version domain.NHDVersion) []string {
	cols := columnsFor(version)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// Row formats a record in Header order. Failed records carry only the source
// fields and the message.
func Row(hl domain.Hydrolink) []string {
	cols := columnsFor(hl.Version)
	row := make([]string, len(cols))
	for i, c := range cols {
		if !hl.Linked() && !sourceColumns[c.name] {
			continue
		}
		row[i] = c.value(hl)
	}
	return row
}

// AppendCSV appends records to the CSV file at path, creating it if needed.
// The header is written only when the file is new or empty.
func AppendCSV(path string, version domain.NHDVersion, records []domain.Hydrolink) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header(version)); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, hl := range records {
		if hl.Version != version {
			return fmt.Errorf("id %s: record is %s, output is %s", hl.SourceID, hl.Version, version)
		}
		if err := w.Write(Row(hl)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return f.Close()
}

var sourceColumns = map[string]bool{
	"source id":            true,
	"source lat nad83":     true,
	"source lon nad83":     true,
	"source buffer meters": true,
	"source water name":    true,
	"hydrolink message":    true,
}

func columnsFor(version domain.NHDVersion) []column {
	prefix := string(version) + " "
	cols := []column{
		{"source id", func(hl domain.Hydrolink) string { return hl.SourceID }},
		{"source lat nad83", func(hl domain.Hydrolink) string { return formatFloat(hl.SourceLat) }},
		{"source lon nad83", func(hl domain.Hydrolink) string { return formatFloat(hl.SourceLon) }},
		{"source buffer meters", func(hl domain.Hydrolink) string { return strconv.Itoa(hl.BufferMeters) }},
		{"closest confluence meters", func(hl domain.Hydrolink) string { return formatOptional(hl.ClosestConfluenceMeters) }},
		{"closest flowline order", func(hl domain.Hydrolink) string { return strconv.Itoa(hl.Flowline.ClosestOrder) }},
		{"total count flowlines in buffer", func(hl domain.Hydrolink) string { return strconv.Itoa(hl.FlowlineCount) }},
		{"count name match in buffer", func(hl domain.Hydrolink) string { return strconv.Itoa(hl.NameMatchCount) }},
		{"source water name", func(hl domain.Hydrolink) string { return hl.SourceWaterName }},
		{"cleaned source water name", func(hl domain.Hydrolink) string { return hl.Flowline.CleanedName }},
		{"flowline name similarity", func(hl domain.Hydrolink) string { return formatFloat(hl.Flowline.Score) }},
		{"flowline name similarity message", func(hl domain.Hydrolink) string { return hl.Flowline.NameSimilarity.Message }},
		{prefix + "flowline gnis name", func(hl domain.Hydrolink) string { return hl.Flowline.GNISName }},
	}

	switch version {
	case domain.NHDPlusV2:
		cols = append(cols,
			column{prefix + "comid", func(hl domain.Hydrolink) string { return strconv.FormatInt(hl.Flowline.ComID, 10) }},
			column{prefix + "flowline length km", func(hl domain.Hydrolink) string { return formatFloat(hl.Flowline.LengthKm) }},
			column{prefix + "flowline reachcode", func(hl domain.Hydrolink) string { return hl.Flowline.ReachCode }},
			column{"meters from flowline", func(hl domain.Hydrolink) string { return formatFloat(hl.Flowline.SnapMeters) }},
			column{prefix + "flowline measure", func(hl domain.Hydrolink) string { return formatOptional(hl.Flowline.Measure) }},
			column{prefix + "terminal flag", func(hl domain.Hydrolink) string { return formatOptionalInt(hl.Flowline.TerminalFlag) }},
			column{prefix + "waterbody permanent identifier", waterbody(func(wb *domain.Waterbody) string { return wb.PermanentID })},
			column{prefix + "waterbody gnis name", waterbody(func(wb *domain.Waterbody) string { return wb.GNISName })},
			column{prefix + "waterbody reachcode", waterbody(func(wb *domain.Waterbody) string { return wb.ReachCode })},
			column{prefix + "waterbody ftype", waterbody(func(wb *domain.Waterbody) string { return strconv.Itoa(wb.FType) })},
			column{prefix + "waterbody comid", waterbody(func(wb *domain.Waterbody) string { return strconv.FormatInt(wb.ComID, 10) })},
		)
	default:
		cols = append(cols,
			column{prefix + "flowline length km", func(hl domain.Hydrolink) string { return formatFloat(hl.Flowline.LengthKm) }},
			column{prefix + "flowline permanent identifier", func(hl domain.Hydrolink) string { return hl.Flowline.PermanentID }},
			column{prefix + "flowline reachcode", func(hl domain.Hydrolink) string { return hl.Flowline.ReachCode }},
			column{"meters from flowline", func(hl domain.Hydrolink) string { return formatFloat(hl.Flowline.SnapMeters) }},
			column{prefix + "flowline measure", func(hl domain.Hydrolink) string { return formatOptional(hl.Flowline.Measure) }},
			column{prefix + "waterbody permanent identifier", waterbody(func(wb *domain.Waterbody) string { return wb.PermanentID })},
			column{prefix + "waterbody gnis name", waterbody(func(wb *domain.Waterbody) string { return wb.GNISName })},
			column{prefix + "waterbody reachcode", waterbody(func(wb *domain.Waterbody) string { return wb.ReachCode })},
		)
	}

	return append(cols, column{"hydrolink message", func(hl domain.Hydrolink) string { return hl.Message }})
}

func waterbody(value func(wb *domain.Waterbody) string) func(hl domain.Hydrolink) string {
	return func(hl domain.Hydrolink) string {
		if hl.Waterbody == nil {
			return ""
		}
		return value(hl.Waterbody)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptional(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatOptionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
