package domain

import (
	"context"
	"time"
)

// RawMessage is an undecoded observation read from a message broker.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string

	// Commit acknowledges the message. Nil when the source does not track offsets.
	Commit func(ctx context.Context) error
}
