package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/hydrolink/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("site-1"),
		Value:     []byte(`{"id":"site-1","lat":42.7284,"lon":-84.5026}`),
		Topic:     "point-observations",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("field-survey")},
		},
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("site-1"), raw.Key)
	assert.JSONEq(t, `{"id":"site-1","lat":42.7284,"lon":-84.5026}`, string(raw.Value))
	assert.Equal(t, "point-observations", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "field-survey", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	measure := 37.0
	hl := domain.Hydrolink{
		SourceID:  "site-1",
		Version:   domain.NHDHighRes,
		Method:    domain.MethodNameMatch,
		HydroType: domain.HydroFlowline,
		Status:    domain.StatusSuccess,
		Flowline: &domain.Candidate{
			Flowline: domain.Flowline{GNISName: "Red Cedar River", ReachCode: "04050004000123"},
			Measure:  &measure,
		},
		ProcessedAt: now,
	}

	msg, err := serializeToMessage(hl)
	require.NoError(t, err)

	assert.Equal(t, []byte("site-1"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "status", msg.Headers[0].Key)
	assert.Equal(t, []byte("success"), msg.Headers[0].Value)
	assert.Equal(t, "nhd_version", msg.Headers[1].Key)
	assert.Equal(t, []byte("nhdhr"), msg.Headers[1].Value)
	assert.Equal(t, "processed_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "site-1", body["source_id"])
	flowline, ok := body["flowline"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "04050004000123", flowline["reachcode"])
	assert.InDelta(t, 37.0, flowline["measure"], 1e-9)
}

func TestSerializeToMessage_Failed(t *testing.T) {
	msg, err := serializeToMessage(domain.Hydrolink{
		SourceID: "site-2",
		Status:   domain.StatusFailed,
		Message:  "id site-2: no flowlines selected, try increasing buffer",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("failed"), msg.Headers[0].Value)
	assert.NotContains(t, string(msg.Value), `"flowline"`)
}
