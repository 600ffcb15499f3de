package models

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2018-05")
	if err != nil {
		t.Fatalf("ParseMonth returned error: %v", err)
	}
	if m.Year != 2018 || m.Month != 5 {
		t.Errorf("Expected 2018-05, got %+v", m)
	}
	if m.String() != "2018-05" {
		t.Errorf("String() = %s", m.String())
	}

	for _, bad := range []string{"", "2018", "2018-13", "May 2018"} {
		if _, err := ParseMonth(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestMonthNextAndBefore(t *testing.T) {
	dec := Month{Year: 2017, Month: 12}
	jan := dec.Next()
	if jan != (Month{Year: 2018, Month: 1}) {
		t.Errorf("Expected 2018-01 after 2017-12, got %s", jan)
	}
	if !dec.Before(jan) || jan.Before(dec) || jan.Before(jan) {
		t.Error("Before ordering is wrong")
	}
	if !jan.Start().Equal(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected start %v", jan.Start())
	}
}

func TestMonthOf(t *testing.T) {
	m := MonthOf(time.Date(2016, 2, 29, 23, 59, 0, 0, time.UTC))
	if m != (Month{Year: 2016, Month: 2}) {
		t.Errorf("Expected 2016-02, got %s", m)
	}
	if !m.Valid() || (Month{Year: 2016, Month: 0}).Valid() {
		t.Error("Valid() is wrong")
	}
}

func TestAggregateKey(t *testing.T) {
	agg := MonthlyAggregate{CounterName: "Berri1", Year: 2018, Month: 3, MeanCount: 1}
	if agg.Key() != (AggregateKey{CounterName: "Berri1", Year: 2018, Month: 3}) {
		t.Errorf("Unexpected key %+v", agg.Key())
	}
	if agg.Period().String() != "2018-03" {
		t.Errorf("Unexpected period %s", agg.Period())
	}
}
