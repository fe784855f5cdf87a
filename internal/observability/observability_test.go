package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/hydrolink/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })

	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.Same(t, logger.Handler(), slog.Default().Handler())
}

func TestNewCLILogger_WritesToGivenWriter(t *testing.T) {
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })

	tests := []struct {
		name   string
		cfg    config.Config
		want   string
		hidden bool
	}{
		{"json", config.Config{LogLevel: "info", LogFormat: "json"}, `"msg":"point linked"`, false},
		{"text", config.Config{LogLevel: "debug", LogFormat: "text"}, "msg=\"point linked\"", false},
		{"warning level", config.Config{LogLevel: "warning", LogFormat: "text"}, "", true},
		{"unknown level", config.Config{LogLevel: "loud", LogFormat: "text"}, "level=INFO", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewCLILogger(&tt.cfg, &buf)
			logger.Info("point linked", "source_id", "a")

			if tt.hidden {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tt.want)
			assert.Same(t, logger.Handler(), slog.Default().Handler())
		})
	}
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.PointsLinked.WithLabelValues("nhdhr", "success").Inc()
	m.NHDCache.WithLabelValues("flowlines", "hit").Add(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			values[f.GetName()] += metric.GetCounter().GetValue()
		}
	}
	assert.InDelta(t, 1.0, values["hydrolink_points_total"], 0)
	assert.InDelta(t, 2.0, values["hydrolink_nhd_cache_total"], 0)
}
