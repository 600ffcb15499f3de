package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jgoulah/velocount/internal/config"
	"github.com/jgoulah/velocount/pkg/models"
)

const userAgent = "velocount/1.0 (+https://github.com/jgoulah/velocount)"

// HTTP fetches the locations and yearly counts CSVs over HTTP
type HTTP struct {
	locations config.LocationsSource
	counts    []config.CountsSource
	client    *http.Client
}

// NewHTTP creates an HTTP data source
func NewHTTP(locations config.LocationsSource, counts []config.CountsSource) *HTTP {
	return NewHTTPWithClient(locations, counts, &http.Client{Timeout: 60 * time.Second})
}

// NewHTTPWithClient creates an HTTP data source with a custom HTTP client
func NewHTTPWithClient(locations config.LocationsSource, counts []config.CountsSource, client *http.Client) *HTTP {
	return &HTTP{
		locations: locations,
		counts:    counts,
		client:    client,
	}
}

// Load fetches every resource concurrently and returns once all of them have
// been retrieved. The first failure cancels the rest; no partial snapshot is
// returned.
func (s *HTTP) Load(ctx context.Context) (*Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)

	// Fetch locations
	var locations []models.CounterLocation
	g.Go(func() error {
		data, err := s.fetch(gctx, s.locations.URL)
		if err != nil {
			return err
		}
		locations, err = ParseLocations(s.locations.URL, data, s.locations)
		return err
	})

	// Fetch each year's counts, keeping results in config order
	perSource := make([][]models.CountObservation, len(s.counts))
	for i, src := range s.counts {
		i, src := i, src
		g.Go(func() error {
			data, err := s.fetch(gctx, src.URL)
			if err != nil {
				return err
			}
			obs, err := ParseCounts(src.URL, data, src)
			if err != nil {
				return err
			}
			perSource[i] = obs
			return nil
		})
	}

	// Wait for every source before building the snapshot
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Concatenate years in config order
	var observations []models.CountObservation
	for i, obs := range perSource {
		log.Printf("Loaded %d observations for %d from %s", len(obs), s.counts[i].Year, s.counts[i].URL)
		observations = append(observations, obs...)
	}
	log.Printf("Loaded %d counter locations", len(locations))

	return NewSnapshot(locations, observations), nil
}

func (s *HTTP) fetch(ctx context.Context, url string) ([]byte, error) {
	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, unavailable(url, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv, */*")

	// Send request
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, unavailable(url, fmt.Errorf("request error: %w", err))
	}
	defer resp.Body.Close()

	// Check response status
	if resp.StatusCode != http.StatusOK {
		// Read error response body for debugging
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, unavailable(url, fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(body)))
	}

	// Read response
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(url, fmt.Errorf("reading body: %w", err))
	}
	return data, nil
}
