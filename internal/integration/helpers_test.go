//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	"github.com/paulmach/orb"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/hydrolink/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the test and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("hydrolink-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// stubNHD serves two parallel east-west flowlines around every queried point:
// the named river just north of it and an unnamed creek further south.
type stubNHD struct{}

func (stubNHD) FlowlinesNear(_ context.Context, _ domain.NHDVersion, p orb.Point, _ int) ([]domain.Flowline, error) {
	return []domain.Flowline{
		horizontal("Red Cedar River", "04050004000123", p, 0.001),
		horizontal("", "04050004000456", p, -0.003),
	}, nil
}

func (stubNHD) FlowlinesInWaterbody(context.Context, domain.NHDVersion, string) ([]domain.Flowline, error) {
	return nil, nil
}

func (stubNHD) WaterbodyAt(context.Context, domain.NHDVersion, orb.Point) (*domain.Waterbody, error) {
	return nil, nil
}

func horizontal(name, reachcode string, p orb.Point, dLat float64) domain.Flowline {
	return domain.Flowline{
		GNISName:  name,
		ReachCode: reachcode,
		LengthKm:  1.6,
		Vertices: []domain.Vertex{
			{X: p.Lon() - 0.01, Y: p.Lat() + dLat, M: 100},
			{X: p.Lon() + 0.01, Y: p.Lat() + dLat, M: 0},
		},
	}
}

func newLinker() *domain.Linker {
	return domain.NewLinker(stubNHD{}, domain.DefaultOptions(), discardLogger())
}
