package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hydrolink/internal/config"
	"github.com/couchcryptid/hydrolink/internal/domain"
)

// Writer produces hydrolink records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes hydrolink records in a single WriteMessages call. Records
// are keyed by source id so updates for a point land on one partition.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.Hydrolink) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write hydrolinks: %w", err)
	}
	w.logger.Debug("wrote hydrolinks", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Hydrolink into a Kafka message.
func serializeToMessage(hl domain.Hydrolink) (kafkago.Message, error) {
	data, err := json.Marshal(hl)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize hydrolink: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(hl.SourceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(hl.Status)},
			{Key: "nhd_version", Value: []byte(hl.Version)},
			{Key: "processed_at", Value: []byte(hl.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
