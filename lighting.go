package shade

import "math"

// AmbientLight is uniform light that reaches every surface of a scene.
type AmbientLight struct {
	Color     string  `json:"color"`
	Intensity float64 `json:"intensity"`
}

// DirectionalLight is parallel light coming from the sun.
type DirectionalLight struct {
	Color     string  `json:"color"`
	Intensity float64 `json:"intensity"`

	// Direction is [azimuth, polar] in degrees. Azimuth is the compass
	// bearing of the sun and polar is the angle from the zenith.
	Direction   [2]float64 `json:"direction"`
	CastShadows bool       `json:"castShadows"`
}

// SceneLighting is the lighting a 3D map view should use to match the
// sun.
type SceneLighting struct {
	Band        string           `json:"band"`
	Ambient     AmbientLight     `json:"ambient"`
	Directional DirectionalLight `json:"directional"`
}

// A LightingBand is the lighting used while the sun's altitude is at
// least MinAltitude degrees.
type LightingBand struct {
	Name        string
	MinAltitude float64

	AmbientColor         string
	AmbientIntensity     float64
	DirectionalColor     string
	DirectionalIntensity float64
}

// DefaultLightingBands are ordered from lowest to highest MinAltitude.
// The first band covers every altitude below the second.
var DefaultLightingBands = []LightingBand{
	{"night", math.Inf(-1), "#103163", 0.1, "#000000", 0},
	{"dawn-dusk", 0, "#493838", 0.15, "#ff9e57", 0.5},
	{"morning-evening", 10, "#d6d6d6", 0.2, "#ffefcc", 0.7},
	{"midday", 30, "#f2f2f2", 0.25, "#ffffff", 0.9},
}

// A LightingMapper maps sun positions to scene lighting using a set of
// altitude bands.
type LightingMapper struct {
	// Bands must be sorted by MinAltitude. If empty,
	// DefaultLightingBands is used.
	Bands []LightingBand
}

// Map returns the scene lighting for the sun at p. It is defined for
// every altitude.
func (m LightingMapper) Map(p SolarPosition) SceneLighting {
	bands := m.Bands
	if len(bands) == 0 {
		bands = DefaultLightingBands
	}
	alt := p.AltitudeDegrees
	band := bands[0]
	for _, b := range bands[1:] {
		// Written this way so a NaN altitude stays in the first band.
		if !(alt >= b.MinAltitude) {
			break
		}
		band = b
	}

	polar := math.Max(0, math.Min(90, 90-alt))
	if math.IsNaN(polar) {
		polar = 90
	}
	return SceneLighting{
		Band: band.Name,
		Ambient: AmbientLight{
			Color:     band.AmbientColor,
			Intensity: band.AmbientIntensity,
		},
		Directional: DirectionalLight{
			Color:       band.DirectionalColor,
			Intensity:   band.DirectionalIntensity,
			Direction:   [2]float64{p.Bearing(), polar},
			CastShadows: true,
		},
	}
}

// MapToSceneLighting returns the scene lighting for the sun at p using
// DefaultLightingBands.
func MapToSceneLighting(p SolarPosition) SceneLighting {
	return LightingMapper{}.Map(p)
}
