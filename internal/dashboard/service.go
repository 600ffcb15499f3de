package dashboard

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jgoulah/velocount/internal/dataset"
	"github.com/jgoulah/velocount/internal/source"
)

// Service holds the current dataset and rebuilds it on demand. Readers share
// one immutable Dataset; a refresh swaps the pointer.
type Service struct {
	builder     *dataset.Builder
	invalidator source.Invalidator

	mu sync.RWMutex
	ds *dataset.Dataset

	refreshMu sync.Mutex
}

// NewService builds the initial dataset. inv may be nil when the data source
// has no cache to drop.
func NewService(ctx context.Context, builder *dataset.Builder, inv source.Invalidator) (*Service, error) {
	ds, err := builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building dataset: %w", err)
	}

	return &Service{
		builder:     builder,
		invalidator: inv,
		ds:          ds,
	}, nil
}

// Dataset returns the current dataset
func (s *Service) Dataset() *dataset.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

// Refresh drops cached source data and rebuilds. On failure the previous
// dataset stays in place.
func (s *Service) Refresh(ctx context.Context) (*dataset.Dataset, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(); err != nil {
			return nil, fmt.Errorf("invalidating cache: %w", err)
		}
	}

	ds, err := s.builder.Build(ctx)
	if err != nil {
		log.Printf("Refresh failed, keeping snapshot %s: %v", s.Dataset().SnapshotID, err)
		return nil, err
	}

	s.mu.Lock()
	s.ds = ds
	s.mu.Unlock()

	log.Printf("Dataset refreshed: snapshot %s, %d locations, %d aggregates", ds.SnapshotID, len(ds.Locations), len(ds.Aggregates))
	return ds, nil
}
