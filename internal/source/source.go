package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/velocount/pkg/models"
)

// Error kinds, matched with errors.Is
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSchemaMismatch    = errors.New("schema mismatch")
)

// DataSource loads the raw location and count tables
type DataSource interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Invalidator is implemented by caching data sources
type Invalidator interface {
	Invalidate() error
}

// Snapshot is the raw result of one retrieval. Locations carry the names as
// published; no alias normalization has been applied yet.
type Snapshot struct {
	ID           uuid.UUID
	FetchedAt    time.Time
	Locations    []models.CounterLocation
	Observations []models.CountObservation
}

// NewSnapshot stamps a fresh snapshot
func NewSnapshot(locations []models.CounterLocation, observations []models.CountObservation) *Snapshot {
	return &Snapshot{
		ID:           uuid.New(),
		FetchedAt:    time.Now().UTC(),
		Locations:    locations,
		Observations: observations,
	}
}

// Error describes a failed retrieval or an unexpected CSV layout
type Error struct {
	Kind   error // ErrSourceUnavailable or ErrSchemaMismatch
	URL    string
	Column string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Kind, e.URL)
	if e.Column != "" {
		msg += fmt.Sprintf(" (column %q)", e.Column)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error kind
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func unavailable(url string, err error) error {
	return &Error{Kind: ErrSourceUnavailable, URL: url, Err: err}
}

func schemaMismatch(url, column string) error {
	return &Error{Kind: ErrSchemaMismatch, URL: url, Column: column}
}
