package tabular_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hydrolink/internal/adapter/tabular"
	"github.com/couchcryptid/hydrolink/internal/domain"
)

func defaultInput() tabular.Input {
	return tabular.Input{Fields: tabular.DefaultFields(), CRS: 4269, BufferMeters: 1000}
}

func TestReadCSV(t *testing.T) {
	// "Rivi\xe8re" is ISO-8859-1 for Rivière.
	data := "id,y,x,stream,notes\n" +
		"a,42.7284,-84.5026,Red Cedar River,\n" +
		"b,41.485054,-72.522365,Rivi\xe8re Rouge,extra\n"

	obs, err := defaultInput().ReadCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, domain.Observation{
		SourceID: "a", Lat: 42.7284, Lon: -84.5026, CRS: 4269, WaterName: "Red Cedar River", BufferMeters: 1000,
	}, obs[0])
	assert.Equal(t, "Rivière Rouge", obs[1].WaterName)
}

func TestReadCSV_NoStreamName(t *testing.T) {
	in := defaultInput()
	in.Fields.StreamName = tabular.NoStreamName

	obs, err := in.ReadCSV(strings.NewReader("id,y,x\na,42.7,-84.5\n"))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Empty(t, obs[0].WaterName)
}

func TestReadCSV_CustomFields(t *testing.T) {
	in := tabular.Input{
		Fields: tabular.Fields{ID: "SiteID", Lat: "Latitude", Lon: "Longitude", StreamName: "Water"},
		CRS:    4326,
	}
	obs, err := in.ReadCSV(strings.NewReader("Longitude,Latitude,SiteID,Water\n-84.5,42.7,s1,Grand River\n"))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "s1", obs[0].SourceID)
	assert.InDelta(t, 42.7, obs[0].Lat, 1e-9)
	assert.InDelta(t, -84.5, obs[0].Lon, 1e-9)
	assert.Equal(t, 4326, obs[0].CRS)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"missing fields", "id,lat,lon,stream\na,1,2,x\n", "verify field names"},
		{"missing stream field", "id,y,x\na,1,2\n", "stream"},
		{"bad latitude", "id,y,x,stream\na,north,2,x\n", "line 2: id a: invalid latitude"},
		{"empty file", "", "read csv header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := defaultInput().ReadCSV(strings.NewReader(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := defaultInput().ReadCSV(strings.NewReader("id,lat,lon,stream\n"))
	assert.ErrorIs(t, err, tabular.ErrMissingField)
}

func TestReadFile_RejectsOtherExtensions(t *testing.T) {
	_, err := defaultInput().ReadFile(filepath.Join(t.TempDir(), "points.xlsx"))
	assert.ErrorIs(t, err, tabular.ErrUnsupportedFile)
}

func TestReadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.CSV")
	require.NoError(t, os.WriteFile(path, []byte("id,y,x,stream\na,42.7,-84.5,Red Cedar\n"), 0o600))

	obs, err := defaultInput().ReadFile(path)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "Red Cedar", obs[0].WaterName)
}

func writeShapefile(t *testing.T, path string, fields []shp.Field, rows [][]any, points []shp.Point) {
	t.Helper()
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields(fields))
	for i := range points {
		n := w.Write(&points[i])
		for j, v := range rows[i] {
			require.NoError(t, w.WriteAttribute(int(n), j, v))
		}
	}
	w.Close()

	// go-shp v0.1.1 creates the attribute table as "<base>dbf".
	base := strings.TrimSuffix(path, filepath.Ext(path))
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

func TestReadShapefile_FromGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	writeShapefile(t, path,
		[]shp.Field{shp.StringField("id", 10), shp.StringField("stream", 40)},
		[][]any{{"a", "Red Cedar River"}, {"b", ""}},
		[]shp.Point{{X: -84.5026, Y: 42.7284}, {X: -72.522365, Y: 41.485054}},
	)

	obs, err := defaultInput().ReadFile(path)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "a", obs[0].SourceID)
	assert.InDelta(t, 42.7284, obs[0].Lat, 1e-9)
	assert.InDelta(t, -84.5026, obs[0].Lon, 1e-9)
	assert.Equal(t, "Red Cedar River", obs[0].WaterName)
	assert.Empty(t, obs[1].WaterName)
}

func TestReadShapefile_FromAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	writeShapefile(t, path,
		[]shp.Field{shp.StringField("id", 10), shp.FloatField("y", 12, 6), shp.FloatField("x", 12, 6), shp.StringField("stream", 40)},
		[][]any{{"a", 42.7284, -84.5026, "Grand River"}},
		[]shp.Point{{X: 0, Y: 0}},
	)

	obs, err := defaultInput().ReadShapefile(path)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "a", obs[0].SourceID)
	assert.InDelta(t, 42.7284, obs[0].Lat, 1e-9)
	assert.InDelta(t, -84.5026, obs[0].Lon, 1e-9)
	assert.Equal(t, "Grand River", obs[0].WaterName)
	assert.Equal(t, 1000, obs[0].BufferMeters)
}

func TestReadShapefile_MissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	writeShapefile(t, path,
		[]shp.Field{shp.StringField("name", 10)},
		[][]any{{"a"}},
		[]shp.Point{{X: -84.5, Y: 42.7}},
	)

	_, err := defaultInput().ReadShapefile(path)
	assert.ErrorIs(t, err, tabular.ErrMissingField)
}

// --- output ---

func linkedRecord(version domain.NHDVersion) domain.Hydrolink {
	measure := 37.0
	confluence := 812.5
	flag := 0
	return domain.Hydrolink{
		SourceID:                "a",
		SourceWaterName:         "Red Cedar Rv",
		SourceLat:               42.7284,
		SourceLon:               -84.5026,
		BufferMeters:            500,
		Version:                 version,
		Status:                  domain.StatusSuccess,
		ClosestConfluenceMeters: &confluence,
		FlowlineCount:           2,
		NameMatchCount:          1,
		Flowline: &domain.Candidate{
			Flowline: domain.Flowline{
				GNISName: "Red Cedar River", LengthKm: 1.5, PermanentID: "pid-1",
				ReachCode: "04050004000123", ComID: 12345, TerminalFlag: &flag,
			},
			NameSimilarity: domain.NameSimilarity{Score: 1, Message: "exact match", CleanedName: "red cedar river"},
			SnapMeters:     12.25,
			Measure:        &measure,
			ClosestOrder:   1,
		},
		Waterbody: &domain.Waterbody{PermanentID: "wb-1", GNISName: "Lake Lansing", ReachCode: "04050004001234", FType: 390, ComID: 999},
	}
}

func readCSVFile(t *testing.T, path string) []map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	var out []map[string]string
	for _, rec := range rows[1:] {
		m := make(map[string]string, len(rec))
		for i, v := range rec {
			m[rows[0][i]] = v
		}
		out = append(out, m)
	}
	return out
}

func TestHeader_PrefixesVersion(t *testing.T) {
	hr := tabular.Header(domain.NHDHighRes)
	assert.Contains(t, hr, "nhdhr flowline reachcode")
	assert.Contains(t, hr, "nhdhr flowline permanent identifier")
	assert.NotContains(t, hr, "nhdhr comid")
	assert.Equal(t, "source id", hr[0])
	assert.Equal(t, "hydrolink message", hr[len(hr)-1])

	mr := tabular.Header(domain.NHDPlusV2)
	assert.Contains(t, mr, "nhdplusv2 comid")
	assert.Contains(t, mr, "nhdplusv2 terminal flag")
	assert.Contains(t, mr, "nhdplusv2 waterbody ftype")
	assert.Contains(t, mr, "closest confluence meters")
}

func TestAppendCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	failed := domain.Hydrolink{
		SourceID: "b", Version: domain.NHDHighRes, Status: domain.StatusFailed,
		BufferMeters: 3000, Message: "maximum buffer is 2000 meters, reduce buffer",
		FlowlineCount: 4,
	}

	require.NoError(t, tabular.AppendCSV(path, domain.NHDHighRes, []domain.Hydrolink{linkedRecord(domain.NHDHighRes)}))
	require.NoError(t, tabular.AppendCSV(path, domain.NHDHighRes, []domain.Hydrolink{failed}))

	rows := readCSVFile(t, path)
	require.Len(t, rows, 2, "header written once")

	assert.Equal(t, "04050004000123", rows[0]["nhdhr flowline reachcode"])
	assert.Equal(t, "37", rows[0]["nhdhr flowline measure"])
	assert.Equal(t, "12.25", rows[0]["meters from flowline"])
	assert.Equal(t, "812.5", rows[0]["closest confluence meters"])
	assert.Equal(t, "wb-1", rows[0]["nhdhr waterbody permanent identifier"])
	assert.Equal(t, "red cedar river", rows[0]["cleaned source water name"])

	assert.Equal(t, "b", rows[1]["source id"])
	assert.Equal(t, "3000", rows[1]["source buffer meters"])
	assert.Empty(t, rows[1]["total count flowlines in buffer"])
	assert.Equal(t, "maximum buffer is 2000 meters, reduce buffer", rows[1]["hydrolink message"])
}

func TestAppendCSV_MedRes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, tabular.AppendCSV(path, domain.NHDPlusV2, []domain.Hydrolink{linkedRecord(domain.NHDPlusV2)}))

	rows := readCSVFile(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, "12345", rows[0]["nhdplusv2 comid"])
	assert.Equal(t, "0", rows[0]["nhdplusv2 terminal flag"])
	assert.Equal(t, "390", rows[0]["nhdplusv2 waterbody ftype"])
}

func TestAppendCSV_EmptyExistingFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	require.NoError(t, tabular.AppendCSV(path, domain.NHDHighRes, []domain.Hydrolink{linkedRecord(domain.NHDHighRes)}))
	assert.Len(t, readCSVFile(t, path), 1)
}

func TestAppendCSV_VersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	err := tabular.AppendCSV(path, domain.NHDHighRes, []domain.Hydrolink{linkedRecord(domain.NHDPlusV2)})
	assert.ErrorContains(t, err, "record is nhdplusv2")
}
