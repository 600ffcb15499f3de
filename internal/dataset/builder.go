package dataset

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/jgoulah/velocount/internal/source"
	"github.com/jgoulah/velocount/pkg/models"
)

// Builder turns raw source tables into a Dataset
type Builder struct {
	source source.DataSource
}

// NewBuilder creates a builder reading from the given data source
func NewBuilder(src source.DataSource) *Builder {
	return &Builder{source: src}
}

// Build loads the raw tables and derives the monthly aggregates. Any
// retrieval or schema failure aborts the build.
func (b *Builder) Build(ctx context.Context) (*Dataset, error) {
	snap, err := b.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}

	ds := FromSnapshot(snap)
	if unmatched := ds.Unmatched(); len(unmatched) > 0 {
		log.Printf("%d counter locations have no count data: %v", len(unmatched), unmatched)
	}
	return ds, nil
}

// FromSnapshot builds a Dataset from an already loaded snapshot. The snapshot
// is not modified.
func FromSnapshot(snap *source.Snapshot) *Dataset {
	ds := &Dataset{
		SnapshotID:   snap.ID,
		FetchedAt:    snap.FetchedAt,
		Locations:    normalizeLocations(snap.Locations),
		Aggregates:   make(map[models.AggregateKey]models.MonthlyAggregate),
		Observations: len(snap.Observations),
		counters:     make(map[string]bool),
	}

	observations := normalizeObservations(snap.Observations)
	if len(observations) == 0 {
		return ds
	}

	type accumulator struct {
		sum float64
		n   int
	}
	acc := make(map[models.AggregateKey]*accumulator)

	for _, obs := range observations {
		ds.counters[obs.CounterName] = true
		if obs.Count == nil {
			continue
		}

		period := models.MonthOf(obs.Timestamp)
		key := models.AggregateKey{CounterName: obs.CounterName, Year: period.Year, Month: period.Month}
		a, ok := acc[key]
		if !ok {
			a = &accumulator{}
			acc[key] = a
		}
		a.sum += *obs.Count
		a.n++
	}

	for key, a := range acc {
		ds.Aggregates[key] = models.MonthlyAggregate{
			CounterName: key.CounterName,
			Year:        key.Year,
			Month:       key.Month,
			MeanCount:   a.sum / float64(a.n),
			Samples:     a.n,
		}
	}

	// Every calendar month between the first and last reading, including
	// months where no counter reported.
	first := models.MonthOf(observations[0].Timestamp)
	last := models.MonthOf(observations[len(observations)-1].Timestamp)
	for m := first; !last.Before(m); m = m.Next() {
		ds.months = append(ds.months, m)
	}

	return ds
}

// normalizeLocations applies the alias table, drops duplicate canonical names
// (first occurrence wins) and sorts by canonical name
func normalizeLocations(raw []models.CounterLocation) []models.CounterLocation {
	seen := make(map[string]bool, len(raw))
	result := make([]models.CounterLocation, 0, len(raw))

	for _, loc := range raw {
		loc.Name = Canonical(loc.Name)
		if seen[loc.Name] {
			log.Printf("Dropping duplicate counter location %q", loc.Name)
			continue
		}
		seen[loc.Name] = true
		result = append(result, loc)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// normalizeObservations applies the alias table to counter names and orders
// the concatenated sources by timestamp
func normalizeObservations(raw []models.CountObservation) []models.CountObservation {
	result := make([]models.CountObservation, len(raw))
	for i, obs := range raw {
		obs.CounterName = Canonical(obs.CounterName)
		result[i] = obs
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}
