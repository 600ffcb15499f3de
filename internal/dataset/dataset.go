package dataset

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/velocount/pkg/models"
)

// Dataset is the built, read-only view over counter locations and their
// monthly aggregates. It is safe for concurrent readers.
type Dataset struct {
	SnapshotID   uuid.UUID
	FetchedAt    time.Time
	Locations    []models.CounterLocation
	Aggregates   map[models.AggregateKey]models.MonthlyAggregate
	Observations int

	months   []models.Month
	counters map[string]bool
}

// Months returns the months covered by the count data in chronological order
func (d *Dataset) Months() []models.Month {
	result := make([]models.Month, len(d.months))
	copy(result, d.months)
	return result
}

// HasMonth reports whether m lies within the covered range
func (d *Dataset) HasMonth(m models.Month) bool {
	if len(d.months) == 0 {
		return false
	}
	return !m.Before(d.months[0]) && !d.months[len(d.months)-1].Before(m)
}

// MapRows joins every location with its aggregate for the given month.
// Locations without an aggregate are left out; a month without data yields
// an empty slice.
func (d *Dataset) MapRows(year, month int) []models.MapRow {
	rows := make([]models.MapRow, 0, len(d.Locations))
	for _, loc := range d.Locations {
		agg, ok := d.Aggregates[models.AggregateKey{CounterName: loc.Name, Year: year, Month: month}]
		if !ok {
			continue
		}
		rows = append(rows, models.MapRow{
			Name:      loc.Name,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Counts:    agg.MeanCount,
		})
	}
	return rows
}

// Missing returns the locations left out of MapRows for the given month
func (d *Dataset) Missing(year, month int) []string {
	names := []string{}
	for _, loc := range d.Locations {
		if _, ok := d.Aggregates[models.AggregateKey{CounterName: loc.Name, Year: year, Month: month}]; !ok {
			names = append(names, loc.Name)
		}
	}
	return names
}

// Unmatched returns the locations that never appear as a count column
func (d *Dataset) Unmatched() []string {
	var names []string
	for _, loc := range d.Locations {
		if !d.counters[loc.Name] {
			names = append(names, loc.Name)
		}
	}
	return names
}

// Counters returns the counter names present in the count data, sorted
func (d *Dataset) Counters() []string {
	names := make([]string, 0, len(d.counters))
	for name := range d.counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Location looks up a counter location, accepting alias names
func (d *Dataset) Location(name string) (models.CounterLocation, bool) {
	name = Canonical(name)
	for _, loc := range d.Locations {
		if loc.Name == name {
			return loc, true
		}
	}
	return models.CounterLocation{}, false
}

// Series returns the aggregates of one counter in chronological order
func (d *Dataset) Series(name string) []models.MonthlyAggregate {
	name = Canonical(name)

	var result []models.MonthlyAggregate
	for _, m := range d.months {
		if agg, ok := d.Aggregates[models.AggregateKey{CounterName: name, Year: m.Year, Month: m.Month}]; ok {
			result = append(result, agg)
		}
	}
	return result
}

// SortedAggregates returns every aggregate ordered by month, then counter name
func (d *Dataset) SortedAggregates() []models.MonthlyAggregate {
	result := make([]models.MonthlyAggregate, 0, len(d.Aggregates))
	for _, agg := range d.Aggregates {
		result = append(result, agg)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Period() != b.Period() {
			return a.Period().Before(b.Period())
		}
		return a.CounterName < b.CounterName
	})
	return result
}
