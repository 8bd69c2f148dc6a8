// Package store holds the per-run item store: a memoizing cache of item
// records in front of a Source, plus the authoritative identity → depth map
// written by the graph walker.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/alfredjeanlab/issuegraph/internal/model"
)

// ErrNotFound is returned by sources that have no record for a key.
var ErrNotFound = errors.New("item not found")

// Source defines the fetch interface for item records. Implementations are
// the tracker's REST API and the PostgreSQL mirror.
type Source interface {
	GetItem(ctx context.Context, key string) (*model.Item, error)
	QueryItems(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error)
}

// ItemStore memoizes fetched items for the duration of one run. It is safe
// for concurrent use; concurrent fetches of the same key share one request.
type ItemStore struct {
	source Source
	flight singleflight.Group

	mu     sync.RWMutex
	items  map[string]*model.Item
	order  []string
	depths map[string]int
}

// New returns an empty store backed by source.
func New(source Source) *ItemStore {
	return &ItemStore{
		source: source,
		items:  make(map[string]*model.Item),
		depths: make(map[string]int),
	}
}

// Get returns the cached record for key, or nil.
func (s *ItemStore) Get(key string) *model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[key]
}

// Put caches item. A full record is never replaced by a partial one.
func (s *ItemStore) Put(item *model.Item) {
	if item == nil || item.Key == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(item)
}

func (s *ItemStore) putLocked(item *model.Item) {
	existing, ok := s.items[item.Key]
	if !ok {
		s.order = append(s.order, item.Key)
	} else if item.Partial && !existing.Partial {
		return
	}
	s.items[item.Key] = item
}

// GetOrFetch returns the cached record for key, fetching it from the source
// when it is missing or only partially known. Fetch errors are returned as-is.
func (s *ItemStore) GetOrFetch(ctx context.Context, key string) (*model.Item, error) {
	if item := s.Get(key); item != nil && !item.Partial {
		return item, nil
	}
	v, err, _ := s.flight.Do(key, func() (any, error) {
		if item := s.Get(key); item != nil && !item.Partial {
			return item, nil
		}
		item, err := s.source.GetItem(ctx, key)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		item.Partial = false
		s.Put(item)
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Item), nil
}

// Query runs filter against the source and caches every returned item.
func (s *ItemStore) Query(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	items, err := s.source.QueryItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Item, 0, len(items))
	for _, item := range items {
		if item == nil || item.Key == "" {
			continue
		}
		if existing, ok := s.items[item.Key]; ok && !existing.Partial {
			out = append(out, existing)
			continue
		}
		s.putLocked(item)
		out = append(out, item)
	}
	return out, nil
}

// Depth returns the minimum depth at which key has been visited.
func (s *ItemStore) Depth(key string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.depths[key]
	return d, ok
}

// RecordDepth lowers the recorded depth of key to depth if depth is smaller
// (or nothing was recorded yet) and returns the resulting depth. Depths only
// ever decrease.
func (s *ItemStore) RecordDepth(key string, depth int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.depths[key]; ok && d <= depth {
		return d
	}
	s.depths[key] = depth
	return depth
}

// Depths returns a copy of the identity → depth map.
func (s *ItemStore) Depths() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.depths))
	for k, v := range s.depths {
		out[k] = v
	}
	return out
}

// Items returns every cached record in first-seen order.
func (s *ItemStore) Items() []*model.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Item, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.items[key])
	}
	return out
}

// Len returns the number of cached records.
func (s *ItemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
