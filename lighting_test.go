package shade

import (
	"math"
	"testing"
)

func TestMapToSceneLighting(t *testing.T) {
	tests := []struct {
		alt         float64
		band        string
		ambient     string
		directional string
		intensity   float64
		polar       float64
	}{
		{-10, "night", "#103163", "#000000", 0, 90},
		{-0.01, "night", "#103163", "#000000", 0, 90},
		{0, "dawn-dusk", "#493838", "#ff9e57", 0.5, 90},
		{9.99, "dawn-dusk", "#493838", "#ff9e57", 0.5, 80.01},
		{10, "morning-evening", "#d6d6d6", "#ffefcc", 0.7, 80},
		{29.9, "morning-evening", "#d6d6d6", "#ffefcc", 0.7, 60.1},
		{30, "midday", "#f2f2f2", "#ffffff", 0.9, 60},
		{90, "midday", "#f2f2f2", "#ffffff", 0.9, 0},
	}
	for _, tc := range tests {
		p := SolarPosition{AltitudeDegrees: tc.alt, Altitude: tc.alt * deg2rad, AzimuthDegrees: -90}
		l := MapToSceneLighting(p)
		if l.Band != tc.band {
			t.Errorf("at %v°: expected band %s, got %s", tc.alt, tc.band, l.Band)
		}
		if l.Ambient.Color != tc.ambient || l.Directional.Color != tc.directional {
			t.Errorf("at %v°: expected colors %s/%s, got %s/%s", tc.alt, tc.ambient, tc.directional, l.Ambient.Color, l.Directional.Color)
		}
		if l.Directional.Intensity != tc.intensity {
			t.Errorf("at %v°: expected intensity %v, got %v", tc.alt, tc.intensity, l.Directional.Intensity)
		}
		if math.Abs(l.Directional.Direction[1]-tc.polar) > 1e-9 {
			t.Errorf("at %v°: expected polar angle %v, got %v", tc.alt, tc.polar, l.Directional.Direction[1])
		}
		// South-referenced -90° is east.
		if l.Directional.Direction[0] != 90 {
			t.Errorf("at %v°: expected direction azimuth 90, got %v", tc.alt, l.Directional.Direction[0])
		}
		if !l.Directional.CastShadows {
			t.Errorf("at %v°: expected shadows", tc.alt)
		}
	}
}

func TestLightingMapperCustomBands(t *testing.T) {
	m := LightingMapper{Bands: []LightingBand{
		{Name: "dark", MinAltitude: math.Inf(-1)},
		{Name: "bright", MinAltitude: 5, DirectionalIntensity: 1},
	}}
	if got := m.Map(SolarPosition{AltitudeDegrees: 4}).Band; got != "dark" {
		t.Errorf("expected dark, got %s", got)
	}
	if got := m.Map(SolarPosition{AltitudeDegrees: 5}).Band; got != "bright" {
		t.Errorf("expected bright, got %s", got)
	}
}

func TestMapToSceneLightingNaN(t *testing.T) {
	l := MapToSceneLighting(SolarPosition{AltitudeDegrees: math.NaN()})
	if l.Band != "night" {
		t.Errorf("expected night for NaN altitude, got %s", l.Band)
	}
	if p := l.Directional.Direction[1]; p < 0 || p > 90 {
		t.Errorf("expected polar angle in [0, 90], got %v", p)
	}
}
