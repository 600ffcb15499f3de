package dataset

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jgoulah/velocount/internal/source"
	"github.com/jgoulah/velocount/pkg/models"
)

type staticSource struct {
	snap  *source.Snapshot
	err   error
	calls int
}

func (s *staticSource) Load(ctx context.Context) (*source.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func count(v float64) *float64 {
	return &v
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func testSnapshot() *source.Snapshot {
	locations := []models.CounterLocation{
		{Name: "Rachel/Papineau", AltName: "Rachel", Latitude: 45.5377, Longitude: -73.5749},
		{Name: "Brebeuf", AltName: "Rue Brébeuf", Latitude: 45.5274, Longitude: -73.5740},
		{Name: "Berri1", AltName: "Berri", Latitude: 45.5209, Longitude: -73.5628},
		{Name: "Offline", AltName: "Never reported", Latitude: 45.5, Longitude: -73.6},
		{Name: "Berri1", AltName: "Duplicate", Latitude: 0, Longitude: 0},
	}

	// Sources arrive unordered, as concatenated yearly files do
	observations := []models.CountObservation{
		{CounterName: "Berri1", Timestamp: day(2018, 3, 1), Count: count(30)},
		{CounterName: "Brébeuf", Timestamp: day(2018, 1, 1), Count: count(10)},
		{CounterName: "Brébeuf", Timestamp: day(2018, 1, 2), Count: nil},
		{CounterName: "Brébeuf", Timestamp: day(2018, 1, 3), Count: count(21)},
		{CounterName: "Berri1", Timestamp: day(2018, 1, 1), Count: count(100)},
		{CounterName: "Berri1", Timestamp: day(2018, 1, 2), Count: count(150)},
		{CounterName: "Berri1", Timestamp: day(2018, 1, 3), Count: count(125)},
		{CounterName: "Rachel / Papineau", Timestamp: day(2018, 1, 15), Count: nil},
		{CounterName: "Brébeuf", Timestamp: day(2018, 3, 5), Count: count(7)},
		{CounterName: "Parc", Timestamp: day(2018, 1, 4), Count: count(3)},
	}

	return source.NewSnapshot(locations, observations)
}

func buildTestDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := NewBuilder(&staticSource{snap: testSnapshot()}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return ds
}

func TestCanonicalIdempotent(t *testing.T) {
	names := []string{"Berri1", "", "Unknown counter"}
	for k, v := range Aliases() {
		names = append(names, k, v)
	}

	for _, name := range names {
		once := Canonical(name)
		if twice := Canonical(once); twice != once {
			t.Errorf("Canonical not idempotent for %q: %q then %q", name, once, twice)
		}
	}

	if got := Canonical("Brebeuf"); got != "Brébeuf" {
		t.Errorf("Expected Brebeuf -> Brébeuf, got %q", got)
	}
	if got := Canonical("Berri1"); got != "Berri1" {
		t.Errorf("Expected unknown names to pass through, got %q", got)
	}
}

func TestLocationsNormalizedSortedAndUnique(t *testing.T) {
	ds := buildTestDataset(t)

	want := []string{"Berri1", "Brébeuf", "Offline", "Rachel / Papineau"}
	if len(ds.Locations) != len(want) {
		t.Fatalf("Expected %d locations, got %d: %+v", len(want), len(ds.Locations), ds.Locations)
	}
	for i, name := range want {
		if ds.Locations[i].Name != name {
			t.Errorf("Location %d: expected %q, got %q", i, name, ds.Locations[i].Name)
		}
	}

	if ds.Locations[0].AltName != "Berri" {
		t.Errorf("Expected first Berri1 occurrence to win, got %+v", ds.Locations[0])
	}
}

func TestAliasedLocationJoinsCountColumn(t *testing.T) {
	ds := buildTestDataset(t)

	for _, m := range []int{1, 3} {
		var matches int
		for _, row := range ds.MapRows(2018, m) {
			if row.Name == "Brébeuf" {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("Expected one Brébeuf row for 2018-%02d, got %d", m, matches)
		}
	}
}

func TestMapRowCountsAreMonthlyMeans(t *testing.T) {
	ds := buildTestDataset(t)

	want := map[string]float64{
		"Berri1":  125,  // (100+150+125)/3
		"Brébeuf": 15.5, // (10+21)/2, absent reading ignored
	}

	rows := ds.MapRows(2018, 1)
	if len(rows) != len(want) {
		t.Fatalf("Expected %d rows, got %d: %+v", len(want), len(rows), rows)
	}
	for _, row := range rows {
		expected, ok := want[row.Name]
		if !ok {
			t.Errorf("Unexpected row %q", row.Name)
			continue
		}
		if math.Abs(row.Counts-expected) > 1e-9 {
			t.Errorf("%s: expected mean %v, got %v", row.Name, expected, row.Counts)
		}
	}

	agg := ds.Aggregates[models.AggregateKey{CounterName: "Berri1", Year: 2018, Month: 1}]
	if agg.Samples != 3 {
		t.Errorf("Expected 3 samples for Berri1 January, got %d", agg.Samples)
	}
}

func TestMapRowsAreSubsetOfLocations(t *testing.T) {
	ds := buildTestDataset(t)

	names := make(map[string]bool)
	for _, loc := range ds.Locations {
		names[loc.Name] = true
	}

	for _, m := range ds.Months() {
		for _, row := range ds.MapRows(m.Year, m.Month) {
			if !names[row.Name] {
				t.Errorf("Row %q for %s is not a known location", row.Name, m)
			}
			if math.IsNaN(row.Counts) {
				t.Errorf("Row %q for %s has no count", row.Name, m)
			}
		}
	}

	// Parc has counts but no location, so it never appears
	for _, row := range ds.MapRows(2018, 1) {
		if row.Name == "Parc" {
			t.Error("Count column without location should not produce a row")
		}
	}
}

func TestRowsWithoutAggregateExcluded(t *testing.T) {
	ds := buildTestDataset(t)

	for _, row := range ds.MapRows(2018, 1) {
		if row.Name == "Offline" || row.Name == "Rachel / Papineau" {
			t.Errorf("Location without aggregate emitted: %+v", row)
		}
	}

	missing := ds.Missing(2018, 1)
	if len(missing) != 2 || missing[0] != "Offline" || missing[1] != "Rachel / Papineau" {
		t.Errorf("Expected Offline and Rachel / Papineau missing, got %v", missing)
	}

	unmatched := ds.Unmatched()
	if len(unmatched) != 1 || unmatched[0] != "Offline" {
		t.Errorf("Expected only Offline unmatched, got %v", unmatched)
	}
}

func TestMonthOutsideRangeYieldsEmptyRows(t *testing.T) {
	ds := buildTestDataset(t)

	rows := ds.MapRows(1999, 7)
	if rows == nil || len(rows) != 0 {
		t.Errorf("Expected empty non-nil rows, got %#v", rows)
	}
	if ds.HasMonth(models.Month{Year: 1999, Month: 7}) {
		t.Error("1999-07 should be outside the covered range")
	}
}

func TestMonthsAreContiguousAndChronological(t *testing.T) {
	ds := buildTestDataset(t)

	months := ds.Months()
	want := []models.Month{{Year: 2018, Month: 1}, {Year: 2018, Month: 2}, {Year: 2018, Month: 3}}
	if len(months) != len(want) {
		t.Fatalf("Expected months %v, got %v", want, months)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Errorf("Month %d: expected %s, got %s", i, want[i], months[i])
		}
	}

	// February has no readings at all: an empty map, not an error
	if rows := ds.MapRows(2018, 2); len(rows) != 0 {
		t.Errorf("Expected no rows for gap month, got %+v", rows)
	}
	if !ds.HasMonth(models.Month{Year: 2018, Month: 2}) {
		t.Error("Gap month should still be within range")
	}
}

func TestSeriesAndSortedAggregates(t *testing.T) {
	ds := buildTestDataset(t)

	series := ds.Series("Brebeuf")
	if len(series) != 2 || series[0].Month != 1 || series[1].Month != 3 {
		t.Errorf("Unexpected Brébeuf series: %+v", series)
	}

	all := ds.SortedAggregates()
	if len(all) != len(ds.Aggregates) {
		t.Fatalf("Expected %d aggregates, got %d", len(ds.Aggregates), len(all))
	}
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.Period().Before(prev.Period()) {
			t.Errorf("Aggregates out of order at %d: %s after %s", i, cur.Period(), prev.Period())
		}
		if cur.Period() == prev.Period() && cur.CounterName < prev.CounterName {
			t.Errorf("Aggregates within %s not sorted by name", cur.Period())
		}
	}
}

func TestBuildPropagatesSourceErrors(t *testing.T) {
	srcErr := &source.Error{Kind: source.ErrSourceUnavailable, URL: "http://example.test/x.csv"}
	src := &staticSource{err: srcErr}

	ds, err := NewBuilder(src).Build(context.Background())
	if ds != nil {
		t.Error("Expected no dataset on failure")
	}
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestEmptySnapshot(t *testing.T) {
	ds := FromSnapshot(source.NewSnapshot(nil, nil))

	if len(ds.Months()) != 0 {
		t.Errorf("Expected no months, got %v", ds.Months())
	}
	if rows := ds.MapRows(2018, 1); len(rows) != 0 {
		t.Errorf("Expected no rows, got %v", rows)
	}
}
