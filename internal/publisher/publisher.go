package publisher

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jgoulah/velocount/internal/config"
	"github.com/jgoulah/velocount/internal/dataset"
	"github.com/jgoulah/velocount/pkg/models"
)

// Sink exports monthly aggregates to an external system
type Sink interface {
	Name() string
	Publish(ctx context.Context, records []Record) error
	Close()
}

// Record is an aggregate together with the location of its counter
type Record struct {
	Aggregate models.MonthlyAggregate
	Location  models.CounterLocation
}

// Payload is the JSON document sent to MQTT and Kafka
type Payload struct {
	Counter   string  `json:"counter"`
	AltName   string  `json:"alt_name,omitempty"`
	Month     string  `json:"month"`
	MeanCount float64 `json:"mean_count"`
	Samples   int     `json:"samples"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewPayload builds the wire payload for a record
func NewPayload(r Record) Payload {
	return Payload{
		Counter:   r.Aggregate.CounterName,
		AltName:   r.Location.AltName,
		Month:     r.Aggregate.Period().String(),
		MeanCount: r.Aggregate.MeanCount,
		Samples:   r.Aggregate.Samples,
		Latitude:  r.Location.Latitude,
		Longitude: r.Location.Longitude,
	}
}

// Records selects the aggregates in [since, until] whose counter has a known
// location, ordered by month then counter. Nil bounds are open.
func Records(ds *dataset.Dataset, since, until *models.Month) []Record {
	var records []Record
	for _, agg := range ds.SortedAggregates() {
		period := agg.Period()
		if since != nil && period.Before(*since) {
			continue
		}
		if until != nil && until.Before(period) {
			continue
		}
		loc, ok := ds.Location(agg.CounterName)
		if !ok {
			continue
		}
		records = append(records, Record{Aggregate: agg, Location: loc})
	}
	return records
}

// Slug turns a counter name into a topic-safe token, e.g.
// "Rachel / Hôtel de Ville" becomes "rachel_hotel_de_ville"
func Slug(name string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripAccents, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(plain) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// New connects the named sink: mqtt, influx or kafka
func New(ctx context.Context, name string, cfg *config.Config) (Sink, error) {
	switch name {
	case "mqtt":
		return NewMQTT(ctx, cfg.MQTT)
	case "influx", "influxdb":
		return NewInflux(ctx, cfg.InfluxDB)
	case "kafka":
		return NewKafka(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown sink %q (use mqtt, influx or kafka)", name)
	}
}
