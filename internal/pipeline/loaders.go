package pipeline

import (
	"context"

	"github.com/couchcryptid/hydrolink/internal/domain"
)

// Loaders fans a batch out to several loaders in order, stopping at the first error.
type Loaders []BatchLoader

func (ls Loaders) LoadBatch(ctx context.Context, records []domain.Hydrolink) error {
	for _, l := range ls {
		if err := l.LoadBatch(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
