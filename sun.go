package shade

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// ErrInvalidInput is matched by every *InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a latitude, longitude, or time that cannot
// produce a meaningful sun position.
type InvalidInputError struct {
	Field string
	Value any
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// SolarPosition is the apparent direction of the sun from a point on the
// ground at an instant.
//
// Azimuth follows the astronomical convention used by suncalc: 0 is
// south, π/2 is west, -π/2 is east, and ±π is north. Functions in this
// package that take an "azimuthDegrees" argument expect this
// south-referenced value and do the conversion to a compass bearing
// themselves. Use Bearing to get the compass bearing (0 is north, 90 is
// east).
type SolarPosition struct {
	T time.Time `json:"time"`

	// Altitude is the angle of the sun above the horizon in radians.
	// It ranges from -π/2 to π/2 and is positive when the sun is up.
	Altitude float64 `json:"altitude"`

	// Azimuth is the south-referenced azimuth of the sun in radians.
	Azimuth float64 `json:"azimuth"`

	AltitudeDegrees float64 `json:"altitudeDegrees"`
	AzimuthDegrees  float64 `json:"azimuthDegrees"`
}

// ComputeSolarPosition returns the position of the sun at time t as seen
// from the given latitude and longitude. Latitude and longitude are in
// degrees, where north and east are positive, respectively.
func ComputeSolarPosition(t time.Time, latitude, longitude float64) (SolarPosition, error) {
	if err := validateInput(t, latitude, longitude); err != nil {
		return SolarPosition{}, err
	}
	p := suncalc.GetPosition(t, latitude, longitude)
	// suncalc returns angles in radians even though it takes latitude
	// and longitude in degrees.
	pos := SolarPosition{
		T:               t,
		Altitude:        p.Altitude,
		Azimuth:         p.Azimuth,
		AltitudeDegrees: p.Altitude * rad2deg,
		AzimuthDegrees:  p.Azimuth * rad2deg,
	}
	if math.IsNaN(pos.Altitude) || math.IsNaN(pos.Azimuth) {
		return SolarPosition{}, &InvalidInputError{"time", t}
	}
	return pos, nil
}

func validateInput(t time.Time, latitude, longitude float64) error {
	switch {
	case t.IsZero():
		return &InvalidInputError{"time", t}
	case math.IsNaN(latitude) || latitude < -90 || latitude > 90:
		return &InvalidInputError{"latitude", latitude}
	case math.IsNaN(longitude) || longitude < -180 || longitude > 180:
		return &InvalidInputError{"longitude", longitude}
	}
	return nil
}

// AboveHorizon reports whether the sun is above the horizon. This is
// the astronomical sunlight check that ignores all obstructions.
func (p SolarPosition) AboveHorizon() bool {
	return p.Altitude > 0
}

// Bearing returns the compass bearing of the sun in degrees in [0, 360),
// where 0 is north and 90 is east.
func (p SolarPosition) Bearing() float64 {
	return CompassBearing(p.AzimuthDegrees)
}

// CompassBearing converts a south-referenced azimuth in degrees to a
// compass bearing in [0, 360).
func CompassBearing(azimuthDegrees float64) float64 {
	return NormalizeDegrees(azimuthDegrees + 180)
}

// NormalizeDegrees maps an angle in degrees into [0, 360).
func NormalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	// math.Mod of a tiny negative value can round back up to 360.
	if d >= 360 {
		d = 0
	}
	return d
}

// GlobalIntensity computes the total global radiation of the sun (aka
// solar flux, aka insolation) at this position on a plane perpendicular
// to the sun, in W/m². If lit is false, only the diffuse component is
// counted. Elevation is the height of the observer above sea level.
func (p SolarPosition) GlobalIntensity(lit bool, elevationMeters float64) (wattsPerSquareMeter float64) {
	// This is based on https://www.pveducation.org/pvcdrom/properties-of-sunlight/air-mass
	if p.AltitudeDegrees < 0 {
		return 0
	}

	// Compute air mass. This is a unitless number that is between 1 if
	// the sun is directly overhead (minimal air mass) and ~38 if the
	// sun is at the horizon. The core of this formula is simply the
	// 1/cos(Θ); the rest of the terms account for the curvature of the
	// Earth.
	//
	// From Kasten, F. and Young, A. T., “Revised optical air mass
	// tables and approximation formula”, Applied Optics, vol. 28, pp.
	// 4735–4738, 1989.
	zenithAngle := 90 - p.AltitudeDegrees // 0 is overhead
	airMass := 1 / (math.Cos(zenithAngle*deg2rad) + (0.50572 * math.Pow((96.07995-zenithAngle), -1.6364)))

	// Compute direct component of sunlight, accounting for elevation.
	// From Meinel, A. B. and Meinel, M. P., Applied Solar Energy.
	// Addison Wesley Publishing Co., 1976.
	h := elevationMeters / 1000
	a := 0.14
	iDirect := 1353 * ((1-a*h)*math.Pow(0.7, math.Pow(airMass, 0.678)) + a*h)

	// Diffuse radiation is ~10% of direct radiation.
	if lit {
		return 1.1 * iDirect
	}
	return 0.1 * iDirect
}
