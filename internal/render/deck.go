package render

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"

	"github.com/jgoulah/velocount/pkg/models"
)

// Map defaults for the Montreal counters
const (
	MapStyle       = "mapbox://styles/mapbox/light-v9"
	DefaultZoom    = 11.5
	DefaultPitch   = 50
	DiskResolution = 12
	ColumnRadius   = 130
	ElevationScale = 1

	// Counts at or above this value get the brightest column color
	ColorSaturation = 5000.0

	montrealLat = 45.5017
	montrealLon = -73.5673
)

// ViewState positions the camera
type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
}

// Column is one extruded disk of the column layer
type Column struct {
	Name      string     `json:"name"`
	Position  [2]float64 `json:"position"` // [longitude, latitude]
	Elevation float64    `json:"elevation"`
	Color     [4]uint8   `json:"color"`
	Counts    float64    `json:"counts"`
}

// ColumnLayer describes a deck.gl ColumnLayer
type ColumnLayer struct {
	Type           string   `json:"type"`
	DiskResolution int      `json:"diskResolution"`
	Radius         float64  `json:"radius"`
	ElevationScale float64  `json:"elevationScale"`
	Data           []Column `json:"data"`
}

// Deck is the full description handed to the browser renderer
type Deck struct {
	MapStyle         string        `json:"mapStyle"`
	InitialViewState ViewState     `json:"initialViewState"`
	Layers           []ColumnLayer `json:"layers"`
}

// NewDeck builds the deck for one month of map rows. The camera is centered on
// the rows being displayed.
func NewDeck(rows []models.MapRow) Deck {
	lat, lon, ok := Centroid(rows)
	if !ok {
		lat, lon = montrealLat, montrealLon
	}

	columns := make([]Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, Column{
			Name:      row.Name,
			Position:  [2]float64{row.Longitude, row.Latitude},
			Elevation: row.Counts,
			Color:     Color(row.Counts),
			Counts:    row.Counts,
		})
	}

	return Deck{
		MapStyle: MapStyle,
		InitialViewState: ViewState{
			Latitude:  lat,
			Longitude: lon,
			Zoom:      DefaultZoom,
			Pitch:     DefaultPitch,
		},
		Layers: []ColumnLayer{{
			Type:           "ColumnLayer",
			DiskResolution: DiskResolution,
			Radius:         ColumnRadius,
			ElevationScale: ElevationScale,
			Data:           columns,
		}},
	}
}

// Centroid returns the spherical centroid of the rows' positions. ok is false
// when there are no rows.
func Centroid(rows []models.MapRow) (lat, lon float64, ok bool) {
	if len(rows) == 0 {
		return 0, 0, false
	}

	var sum r3.Vector
	for _, row := range rows {
		p := s2.PointFromLatLng(s2.LatLngFromDegrees(row.Latitude, row.Longitude))
		sum = sum.Add(p.Vector)
	}
	if sum.Norm() == 0 {
		return 0, 0, false
	}

	center := s2.LatLngFromPoint(s2.Point{Vector: sum.Normalize()})
	return center.Lat.Degrees(), center.Lng.Degrees(), true
}

// Color maps a count to the column RGBA color: green scales with the count
// up to ColorSaturation.
func Color(counts float64) [4]uint8 {
	green := counts / ColorSaturation * 255
	green = math.Max(0, math.Min(255, green))
	return [4]uint8{40, uint8(math.Round(green)), 40, 150}
}
