package domain_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/hydrolink/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type fakeService struct {
	near       []domain.Flowline
	inWB       []domain.Flowline
	waterbody  *domain.Waterbody
	err        error
	wbErr      error
	nearCalls  int
	wbIDs      []string
	lastBuffer int
}

func (f *fakeService) FlowlinesNear(ctx context.Context, _ domain.NHDVersion, _ orb.Point, bufferMeters int) ([]domain.Flowline, error) {
	f.nearCalls++
	f.lastBuffer = bufferMeters
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.near, f.err
}

func (f *fakeService) FlowlinesInWaterbody(_ context.Context, _ domain.NHDVersion, id string) ([]domain.Flowline, error) {
	f.wbIDs = append(f.wbIDs, id)
	return f.inWB, f.err
}

func (f *fakeService) WaterbodyAt(_ context.Context, _ domain.NHDVersion, _ orb.Point) (*domain.Waterbody, error) {
	return f.waterbody, f.wbErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fixtures ---

var fixedTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(fixedTime))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// horizontal returns an east-west flowline through lat.
func horizontal(name, reach string, lat float64) domain.Flowline {
	return domain.Flowline{
		GNISName:  name,
		ReachCode: reach,
		LengthKm:  1.6,
		Vertices: []domain.Vertex{
			{X: -84.510, Y: lat, M: 0},
			{X: -84.500, Y: lat, M: 50},
			{X: -84.490, Y: lat, M: 100},
		},
	}
}

func observation() domain.Observation {
	return domain.Observation{
		SourceID:     "2",
		Lat:          42.7284,
		Lon:          -84.5026,
		WaterName:    "Red Cedar Rv",
		BufferMeters: 500,
	}
}

// The creek passes closer to the observation than the river does.
func twoStreams() []domain.Flowline {
	return []domain.Flowline{
		horizontal("Red Cedar River", "04050004000123", 42.7290),
		horizontal("Sycamore Creek", "04050004000456", 42.7280),
	}
}

func newLinker(svc domain.NHDService) *domain.Linker {
	return domain.NewLinker(svc, domain.DefaultOptions(), discardLogger())
}

// --- tests ---

func TestLinker_NameMatch(t *testing.T) {
	freezeClock(t)
	svc := &fakeService{near: twoStreams()}

	hl, err := newLinker(svc).Link(context.Background(), observation(), domain.Options{})
	require.NoError(t, err)

	assert.True(t, hl.Linked())
	assert.Equal(t, domain.StatusSuccess, hl.Status)
	assert.Equal(t, "Red Cedar River", hl.Flowline.GNISName)
	assert.Equal(t, 2, hl.Flowline.ClosestOrder)
	assert.Equal(t, 2, hl.FlowlineCount)
	assert.Equal(t, 1, hl.NameMatchCount)
	assert.Nil(t, hl.ClosestConfluenceMeters)
	assert.Equal(t, domain.NHDHighRes, hl.Version)
	assert.Equal(t, domain.MethodNameMatch, hl.Method)
	assert.Equal(t, fixedTime, hl.ProcessedAt)
	assert.Equal(t, 500, svc.lastBuffer)
	require.NotNil(t, hl.Flowline.Measure)
	assert.InDelta(t, 37.0, *hl.Flowline.Measure, 1e-6)
}

func TestLinker_Closest(t *testing.T) {
	svc := &fakeService{near: twoStreams()}

	hl, err := newLinker(svc).Link(context.Background(), observation(), domain.Options{Method: domain.MethodClosest})
	require.NoError(t, err)
	assert.Equal(t, "Sycamore Creek", hl.Flowline.GNISName)
	assert.Equal(t, 1, hl.Flowline.ClosestOrder)
	assert.Less(t, hl.Flowline.SnapMeters, 60.0)
}

func TestLinker_ClosestAmbiguous(t *testing.T) {
	freezeClock(t)
	a := horizontal("Red Cedar River", "1", 42.7290)
	b := horizontal("Red Cedar River Overflow", "2", 42.7290)
	svc := &fakeService{near: []domain.Flowline{a, b}}
	linker := newLinker(svc)

	hl, err := linker.Link(context.Background(), observation(), domain.Options{Method: domain.MethodClosest})
	require.ErrorIs(t, err, domain.ErrAmbiguousSnap)
	assert.Equal(t, domain.StatusFailed, hl.Status)
	assert.Contains(t, hl.Message, "use name_match method")
	assert.Nil(t, hl.Flowline)
	assert.Equal(t, fixedTime, hl.ProcessedAt)

	// Name matching breaks the tie.
	hl, err = linker.Link(context.Background(), observation(), domain.Options{})
	require.NoError(t, err)
	assert.Equal(t, "1", hl.Flowline.ReachCode)
}

func TestLinker_Confluence(t *testing.T) {
	junction := domain.Vertex{X: -84.500, Y: 42.7290, M: 0}
	upstream := func(name string, x float64) domain.Flowline {
		return domain.Flowline{
			GNISName: name,
			Vertices: []domain.Vertex{{X: x, Y: 42.7350, M: 100}, junction},
		}
	}
	svc := &fakeService{near: []domain.Flowline{
		upstream("Red Cedar River", -84.505),
		upstream("Sycamore Creek", -84.495),
		{GNISName: "Red Cedar River", Vertices: []domain.Vertex{{X: -84.500, Y: 42.7290, M: 100}, {X: -84.500, Y: 42.7200, M: 0}}},
	}}

	hl, err := newLinker(svc).Link(context.Background(), observation(), domain.Options{})
	require.NoError(t, err)
	require.NotNil(t, hl.ClosestConfluenceMeters)
	want := domain.DistanceMeters(orb.Point{-84.500, 42.7290}, orb.Point{-84.5026, 42.7284})
	assert.InDelta(t, want, *hl.ClosestConfluenceMeters, 1e-6)
}

func TestLinker_Waterbody(t *testing.T) {
	wb := &domain.Waterbody{PermanentID: "{ABC-123}", GNISName: "Lake Lansing", ReachCode: "04050004004567", FType: 390}

	t.Run("point in waterbody uses its flowlines", func(t *testing.T) {
		svc := &fakeService{
			waterbody: wb,
			inWB:      []domain.Flowline{horizontal("", "04050004004567", 42.7284)},
		}
		hl, err := newLinker(svc).Link(context.Background(), observation(), domain.Options{HydroType: domain.HydroWaterbody})
		require.NoError(t, err)
		assert.Equal(t, []string{"{ABC-123}"}, svc.wbIDs)
		assert.Zero(t, svc.nearCalls)
		assert.Equal(t, wb, hl.Waterbody)
		assert.Equal(t, domain.NameMsgNoGNIS, hl.Flowline.Message)
	})

	t.Run("point outside waterbody falls back to buffer", func(t *testing.T) {
		svc := &fakeService{near: twoStreams()}
		hl, err := newLinker(svc).Link(context.Background(), observation(), domain.Options{HydroType: domain.HydroWaterbody})
		require.NoError(t, err)
		assert.Equal(t, 1, svc.nearCalls)
		assert.Nil(t, hl.Waterbody)
	})

	t.Run("waterbody query error", func(t *testing.T) {
		svc := &fakeService{wbErr: errors.New("503 service unavailable")}
		hl, err := newLinker(svc).Link(context.Background(), observation(), domain.Options{HydroType: domain.HydroWaterbody})
		require.ErrorIs(t, err, domain.ErrWaterbodyRequest)
		assert.Contains(t, hl.Message, "id 2")
	})
}

func TestLinker_Failures(t *testing.T) {
	tests := []struct {
		name    string
		svc     *fakeService
		mutate  func(*domain.Observation)
		opts    domain.Options
		wantErr error
	}{
		{
			name:    "no flowlines in buffer",
			svc:     &fakeService{},
			wantErr: domain.ErrNoFlowlines,
		},
		{
			name:    "service error",
			svc:     &fakeService{err: errors.New("connection reset")},
			wantErr: domain.ErrFlowlineRequest,
		},
		{
			name:    "buffer too large",
			svc:     &fakeService{near: twoStreams()},
			mutate:  func(o *domain.Observation) { o.BufferMeters = 2500 },
			wantErr: domain.ErrBufferTooLarge,
		},
		{
			name:    "outside the US",
			svc:     &fakeService{near: twoStreams()},
			mutate:  func(o *domain.Observation) { o.Lat, o.Lon = 51.5, -0.12 },
			wantErr: domain.ErrOutsideUS,
		},
		{
			name:    "flowline without geometry",
			svc:     &fakeService{near: []domain.Flowline{{GNISName: "Red Cedar River"}}},
			wantErr: domain.ErrFlowlineEvaluation,
		},
		{
			name:    "unknown version",
			svc:     &fakeService{near: twoStreams()},
			opts:    domain.Options{Version: "nhdplusv3"},
			wantErr: domain.ErrInvalidOptions,
		},
		{
			name:    "cutoff below minimum",
			svc:     &fakeService{near: twoStreams()},
			opts:    domain.Options{SimilarityCutoff: 0.3},
			wantErr: domain.ErrInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := observation()
			if tt.mutate != nil {
				tt.mutate(&obs)
			}
			hl, err := newLinker(tt.svc).Link(context.Background(), obs, tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.StatusFailed, hl.Status)
			assert.Equal(t, err.Error(), hl.Message)
			assert.Equal(t, "2", hl.SourceID)
			assert.False(t, hl.Linked())
		})
	}
}

func TestLinker_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hl, err := newLinker(&fakeService{near: twoStreams()}).Link(ctx, observation(), domain.Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrFlowlineRequest)
	assert.Equal(t, domain.StatusFailed, hl.Status)
}
