package shade

import (
	"math"

	"github.com/paulmach/orb"
)

// A Viewport is the extent of a map view in degrees.
type Viewport struct {
	LngSpan float64 `json:"lngSpan"` // east edge minus west edge
	LatSpan float64 `json:"latSpan"` // north edge minus south edge
}

// MarkerState describes how a renderer should draw the sun marker on a
// map view. The zero MarkerState is a hidden marker.
type MarkerState struct {
	Visible  bool      `json:"visible"`
	Position orb.Point `json:"position"` // [lng, lat]
	Band     string    `json:"band"`
	Color    string    `json:"color"`
	Glow     string    `json:"glow"` // CSS rgba()
	SizePx   int       `json:"sizePx"`
	Bearing  float64   `json:"bearing"`
}

// Altitude thresholds in radians for the marker's style bands.
const (
	MarkerLowAltitude = 0.1
	MarkerMidAltitude = 0.3
)

// ComputeMarkerState returns the sun marker for the sun at p on a map
// view centered on center. The marker sits toward the sun, at most half
// the viewport away from the center, and is hidden while the sun is
// down.
func ComputeMarkerState(p SolarPosition, center GroundPoint, vp Viewport) MarkerState {
	if !p.AboveHorizon() {
		return MarkerState{}
	}

	brg := p.Bearing() * deg2rad
	dx := math.Sin(brg) * math.Cos(p.Altitude)
	dy := math.Cos(brg) * math.Cos(p.Altitude)

	m := MarkerState{
		Visible: true,
		Position: orb.Point{
			center.Lng + dx*vp.LngSpan/2,
			center.Lat + dy*vp.LatSpan/2,
		},
		Bearing: p.Bearing(),
	}
	switch {
	case p.Altitude < MarkerLowAltitude:
		m.Band, m.Color, m.Glow, m.SizePx = "sunrise-sunset", "#FF8C00", "rgba(255, 140, 0, 0.7)", 24
	case p.Altitude < MarkerMidAltitude:
		m.Band, m.Color, m.Glow, m.SizePx = "morning-evening", "#FFD700", "rgba(255, 215, 0, 0.6)", 20
	default:
		m.Band, m.Color, m.Glow, m.SizePx = "midday", "#FFFF00", "rgba(255, 255, 0, 0.5)", 20
	}
	return m
}

var cardinalNames = [...]string{
	"North", "Northeast", "East", "Southeast",
	"South", "Southwest", "West", "Northwest",
}

// CardinalDirection names the 8-point compass direction nearest to a
// compass bearing in degrees.
func CardinalDirection(bearing float64) string {
	i := int(math.Floor(NormalizeDegrees(bearing+22.5)/45)) % len(cardinalNames)
	return cardinalNames[i]
}
