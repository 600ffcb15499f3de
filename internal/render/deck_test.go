package render

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/jgoulah/velocount/pkg/models"
)

func TestCentroid(t *testing.T) {
	rows := []models.MapRow{
		{Name: "a", Latitude: 45.50, Longitude: -73.60},
		{Name: "b", Latitude: 45.54, Longitude: -73.56},
	}

	lat, lon, ok := Centroid(rows)
	if !ok {
		t.Fatal("Expected centroid for non-empty rows")
	}
	// At city scale the spherical centroid matches the arithmetic mean closely
	if math.Abs(lat-45.52) > 1e-4 || math.Abs(lon+73.58) > 1e-4 {
		t.Errorf("Expected centroid near (45.52, -73.58), got (%f, %f)", lat, lon)
	}

	if _, _, ok := Centroid(nil); ok {
		t.Error("Expected no centroid for empty rows")
	}
}

func TestColor(t *testing.T) {
	tests := []struct {
		counts float64
		green  uint8
	}{
		{0, 0},
		{2500, 128},
		{5000, 255},
		{12000, 255},
		{-10, 0},
	}

	for _, tt := range tests {
		c := Color(tt.counts)
		if c[0] != 40 || c[2] != 40 || c[3] != 150 {
			t.Errorf("Color(%v) fixed channels wrong: %v", tt.counts, c)
		}
		if c[1] != tt.green {
			t.Errorf("Color(%v) green = %d, want %d", tt.counts, c[1], tt.green)
		}
	}
}

func TestNewDeck(t *testing.T) {
	rows := []models.MapRow{{Name: "Berri1", Latitude: 45.52, Longitude: -73.56, Counts: 1000}}
	deck := NewDeck(rows)

	if deck.MapStyle != MapStyle {
		t.Errorf("Unexpected map style %s", deck.MapStyle)
	}
	if deck.InitialViewState.Zoom != DefaultZoom || deck.InitialViewState.Pitch != DefaultPitch {
		t.Errorf("Unexpected view state %+v", deck.InitialViewState)
	}
	if len(deck.Layers) != 1 || len(deck.Layers[0].Data) != 1 {
		t.Fatalf("Expected one layer with one column, got %+v", deck.Layers)
	}

	col := deck.Layers[0].Data[0]
	if col.Position != [2]float64{-73.56, 45.52} {
		t.Errorf("Expected [lon, lat] position, got %v", col.Position)
	}
	if col.Elevation != 1000 {
		t.Errorf("Expected elevation 1000, got %v", col.Elevation)
	}

	if _, err := json.Marshal(deck); err != nil {
		t.Errorf("Deck should marshal to JSON: %v", err)
	}
}

func TestNewDeckEmptyFallsBackToCityCenter(t *testing.T) {
	deck := NewDeck(nil)

	if deck.InitialViewState.Latitude != montrealLat || deck.InitialViewState.Longitude != montrealLon {
		t.Errorf("Expected Montreal center, got %+v", deck.InitialViewState)
	}
	if deck.Layers[0].Data == nil {
		t.Error("Expected empty, non-nil column data so the renderer gets []")
	}
}
