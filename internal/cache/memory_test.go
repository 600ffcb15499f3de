package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jgoulah/velocount/internal/source"
	"github.com/jgoulah/velocount/pkg/models"
)

type countingSource struct {
	calls       atomic.Int32
	invalidated atomic.Int32
	err         error
}

func (s *countingSource) Load(ctx context.Context) (*source.Snapshot, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return source.NewSnapshot([]models.CounterLocation{{Name: "Berri1"}}, nil), nil
}

func (s *countingSource) Invalidate() error {
	s.invalidated.Add(1)
	return nil
}

func TestMemoryLoadsOnce(t *testing.T) {
	src := &countingSource{}
	cache := NewMemory(src)

	first, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	second, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if first != second {
		t.Error("Expected cached snapshot to be reused")
	}
	if src.calls.Load() != 1 {
		t.Errorf("Expected 1 fetch, got %d", src.calls.Load())
	}
	if !cache.Cached() {
		t.Error("Expected cache to report a held snapshot")
	}
}

func TestMemoryConcurrentColdLoad(t *testing.T) {
	src := &countingSource{}
	cache := NewMemory(src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(context.Background()); err != nil {
				t.Errorf("Load returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if src.calls.Load() != 1 {
		t.Errorf("Expected concurrent loads to share one fetch, got %d", src.calls.Load())
	}
}

func TestMemoryInvalidate(t *testing.T) {
	src := &countingSource{}
	cache := NewMemory(src)

	first, _ := cache.Load(context.Background())
	if err := cache.Invalidate(); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}
	if cache.Cached() {
		t.Error("Expected cache to be empty after invalidation")
	}
	if src.invalidated.Load() != 1 {
		t.Error("Expected invalidation to reach the wrapped source")
	}

	second, _ := cache.Load(context.Background())
	if first == second {
		t.Error("Expected a fresh snapshot after invalidation")
	}
	if src.calls.Load() != 2 {
		t.Errorf("Expected 2 fetches, got %d", src.calls.Load())
	}
}

func TestMemoryDoesNotCacheFailures(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	cache := NewMemory(src)

	if _, err := cache.Load(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
	src.err = nil
	if _, err := cache.Load(context.Background()); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if src.calls.Load() != 2 {
		t.Errorf("Expected 2 fetches, got %d", src.calls.Load())
	}
}
