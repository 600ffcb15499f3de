package models

import (
	"fmt"
	"time"
)

// CounterLocation is a bicycle counter with its position
type CounterLocation struct {
	Name      string  `json:"name"`     // Canonical name, used as the join key
	AltName   string  `json:"alt_name"` // Descriptive name from the locations dataset
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CountObservation is a single reading of one counter. Count is nil when the
// source cell was empty.
type CountObservation struct {
	CounterName string    `json:"counter_name"`
	Timestamp   time.Time `json:"timestamp"`
	Count       *float64  `json:"count"`
}

// MonthlyAggregate is the mean of all present readings of a counter within one
// calendar month
type MonthlyAggregate struct {
	CounterName string  `json:"counter_name"`
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	MeanCount   float64 `json:"mean_count"`
	Samples     int     `json:"samples"`
}

// Key returns the aggregate's lookup key
func (a MonthlyAggregate) Key() AggregateKey {
	return AggregateKey{CounterName: a.CounterName, Year: a.Year, Month: a.Month}
}

// Period returns the calendar month the aggregate covers
func (a MonthlyAggregate) Period() Month {
	return Month{Year: a.Year, Month: a.Month}
}

// AggregateKey identifies one MonthlyAggregate
type AggregateKey struct {
	CounterName string
	Year        int
	Month       int
}

// MapRow is a counter location joined with its aggregate for the displayed month
type MapRow struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Counts    float64 `json:"counts"`
}

// Month is a calendar month
type Month struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MonthOf returns the calendar month containing t
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonth parses a YYYY-MM string
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q (use YYYY-MM)", s)
	}
	return MonthOf(t), nil
}

// String formats the month as YYYY-MM
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Start returns midnight UTC on the first day of the month
func (m Month) Start() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// Before reports whether m is strictly earlier than other
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Valid reports whether the month number is in 1..12
func (m Month) Valid() bool {
	return m.Month >= 1 && m.Month <= 12
}
