package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/jgoulah/velocount/internal/config"
	"github.com/jgoulah/velocount/pkg/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newCSVReader decodes the payload and sniffs the delimiter from the header line
func newCSVReader(data []byte, encoding string) (*csv.Reader, error) {
	var r io.Reader
	switch strings.ToLower(encoding) {
	case "", "utf8", "utf-8":
		r = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	case "latin1", "iso-8859-1":
		r = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data))
	case "windows-1252", "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		reader.Comma = ';'
	}
	return reader, nil
}

// columnIndex finds a header label, ignoring case and surrounding whitespace
func columnIndex(header []string, label string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), strings.TrimSpace(label)) {
			return i
		}
	}
	return -1
}

// ParseLocations parses the counter locations CSV. The source coordinate
// labels are mapped to latitude/longitude; a missing label is a schema mismatch.
func ParseLocations(url string, data []byte, src config.LocationsSource) ([]models.CounterLocation, error) {
	reader, err := newCSVReader(data, src.Encoding)
	if err != nil {
		return nil, unavailable(url, err)
	}

	header, err := reader.Read()
	if err != nil {
		return nil, unavailable(url, fmt.Errorf("reading CSV header: %w", err))
	}

	nameCol := columnIndex(header, src.Columns.Name)
	altCol := columnIndex(header, src.Columns.AltName)
	lonCol := columnIndex(header, src.Columns.Longitude)
	latCol := columnIndex(header, src.Columns.Latitude)

	switch {
	case nameCol == -1:
		return nil, schemaMismatch(url, src.Columns.Name)
	case lonCol == -1:
		return nil, schemaMismatch(url, src.Columns.Longitude)
	case latCol == -1:
		return nil, schemaMismatch(url, src.Columns.Latitude)
	}

	var results []models.CounterLocation
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, unavailable(url, fmt.Errorf("reading CSV row %d: %w", line, err))
		}

		name := field(record, nameCol)
		if name == "" {
			continue
		}

		// Counters without a published position are left out
		lonStr, latStr := field(record, lonCol), field(record, latCol)
		if lonStr == "" && latStr == "" {
			continue
		}

		lon, err := parseCoordinate(lonStr)
		if err != nil {
			return nil, unavailable(url, fmt.Errorf("row %d: longitude: %w", line, err))
		}
		lat, err := parseCoordinate(latStr)
		if err != nil {
			return nil, unavailable(url, fmt.Errorf("row %d: latitude: %w", line, err))
		}

		results = append(results, models.CounterLocation{
			Name:      name,
			AltName:   field(record, altCol),
			Latitude:  lat,
			Longitude: lon,
		})
	}

	return results, nil
}

// ParseCounts parses one yearly counts CSV: a timestamp column plus one
// column per counter. Unlabeled and "Unnamed" index artifact columns are dropped.
func ParseCounts(url string, data []byte, src config.CountsSource) ([]models.CountObservation, error) {
	reader, err := newCSVReader(data, src.Encoding)
	if err != nil {
		return nil, unavailable(url, err)
	}

	header, err := reader.Read()
	if err != nil {
		return nil, unavailable(url, fmt.Errorf("reading CSV header: %w", err))
	}

	dateCol := columnIndex(header, src.DateColumn)
	if dateCol == -1 {
		return nil, schemaMismatch(url, src.DateColumn)
	}

	type counterColumn struct {
		index int
		name  string
	}
	var counters []counterColumn
	for i, col := range header {
		name := strings.TrimSpace(col)
		if i == dateCol || isArtifactColumn(name) {
			continue
		}
		counters = append(counters, counterColumn{index: i, name: name})
	}

	var results []models.CountObservation
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, unavailable(url, fmt.Errorf("reading CSV row %d: %w", line, err))
		}

		// Padding rows carry no data
		if blankRecord(record) {
			continue
		}

		ts, err := ParseTimestamp(field(record, dateCol))
		if err != nil {
			return nil, unavailable(url, fmt.Errorf("row %d: %w", line, err))
		}

		for _, c := range counters {
			results = append(results, models.CountObservation{
				CounterName: c.name,
				Timestamp:   ts,
				Count:       parseCount(field(record, c.index)),
			})
		}
	}

	return results, nil
}

func isArtifactColumn(name string) bool {
	return name == "" || strings.HasPrefix(name, "Unnamed")
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseTimestamp parses the date formats used by the published count files.
// Slash dates are day-first.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	formats := []string{
		"2006-01-02",
		"2006-01-02 15:04",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"02/01/2006",
		"02/01/2006 15:04",
		"02/01/2006 15:04:05",
		"2/1/2006",
		"2/1/2006 15:04",
		"2/1/2006 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// parseCount returns nil for empty or non-numeric cells
func parseCount(s string) *float64 {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseCoordinate(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	return strconv.ParseFloat(s, 64)
}
