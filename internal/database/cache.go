package database

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jgoulah/velocount/internal/source"
)

// Cache keeps the last fetched snapshot on disk so restarts skip the network
type Cache struct {
	db   *DB
	next source.DataSource
	mu   sync.Mutex
}

// NewCache wraps a data source with the SQLite snapshot store
func NewCache(db *DB, next source.DataSource) *Cache {
	return &Cache{db: db, next: next}
}

// Load returns the stored snapshot, fetching and storing it when absent
func (c *Cache) Load(ctx context.Context) (*source.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.db.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("reading cached snapshot: %w", err)
	}
	if snap != nil {
		log.Printf("Using cached snapshot %s from %s", snap.ID, snap.FetchedAt.Format("2006-01-02 15:04:05 MST"))
		return snap, nil
	}

	snap, err = c.next.Load(ctx)
	if err != nil {
		return nil, err
	}

	// Serve the fetched snapshot even if storing it fails
	if err := c.db.SaveSnapshot(snap); err != nil {
		log.Printf("Warning: could not cache snapshot %s: %v", snap.ID, err)
	}
	return snap, nil
}

// Invalidate drops the stored snapshot
func (c *Cache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.ClearSnapshot(); err != nil {
		return fmt.Errorf("clearing cached snapshot: %w", err)
	}
	if inv, ok := c.next.(source.Invalidator); ok {
		return inv.Invalidate()
	}
	return nil
}
