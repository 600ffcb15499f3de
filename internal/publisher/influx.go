package publisher

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/jgoulah/velocount/internal/config"
)

// Influx writes aggregates to an InfluxDB v2 bucket, one point per counter
// and month, timestamped at the start of the month
type Influx struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
}

// NewInflux creates the client and verifies connectivity
func NewInflux(ctx context.Context, cfg config.InfluxDBConfig) (*Influx, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("InfluxDB publishing is not enabled in config")
	}
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("InfluxDB url and bucket are required when enabled")
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	return &Influx{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: cfg.GetMeasurement(),
	}, nil
}

// Name returns the sink name used for published tracking
func (p *Influx) Name() string {
	return "influx"
}

// Point converts a record into an InfluxDB point
func (p *Influx) Point(r Record) *write.Point {
	return write.NewPoint(
		p.measurement,
		map[string]string{
			"counter": r.Aggregate.CounterName,
		},
		map[string]interface{}{
			"mean_count": r.Aggregate.MeanCount,
			"samples":    r.Aggregate.Samples,
			"latitude":   r.Location.Latitude,
			"longitude":  r.Location.Longitude,
		},
		r.Aggregate.Period().Start(),
	)
}

// Publish writes all records in one blocking call
func (p *Influx) Publish(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(records))
	for _, r := range records {
		points = append(points, p.Point(r))
	}

	if err := p.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("writing points: %w", err)
	}
	return nil
}

// Close closes the InfluxDB client
func (p *Influx) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
