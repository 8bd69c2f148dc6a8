package postgres

import (
	"context"
	"log/slog"

	"github.com/alfredjeanlab/issuegraph/internal/model"
	"github.com/alfredjeanlab/issuegraph/internal/store"
)

// Recorder is a store.Source that fetches from an upstream source and
// writes every full record it sees into the mirror. Mirror write failures
// are logged, never returned.
type Recorder struct {
	upstream store.Source
	mirror   *Mirror
	logger   *slog.Logger
}

var _ store.Source = (*Recorder)(nil)

// NewRecorder wraps upstream so fetched items are mirrored.
func NewRecorder(upstream store.Source, mirror *Mirror, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{upstream: upstream, mirror: mirror, logger: logger}
}

func (r *Recorder) GetItem(ctx context.Context, key string) (*model.Item, error) {
	item, err := r.upstream.GetItem(ctx, key)
	if err != nil {
		return nil, err
	}
	r.save(ctx, item)
	return item, nil
}

func (r *Recorder) QueryItems(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	items, err := r.upstream.QueryItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		r.save(ctx, item)
	}
	return items, nil
}

func (r *Recorder) save(ctx context.Context, item *model.Item) {
	if err := r.mirror.SaveItem(ctx, item); err != nil {
		r.logger.Warn("mirroring item failed", "key", item.Key, "err", err)
	}
}
