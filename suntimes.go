package shade

import (
	"math"
	"time"

	"github.com/sixdouglas/suncalc"
)

// SunTimes holds the named sun events of one day at one location.
//
// At high latitudes some events do not happen on some days (the sun
// never sets in polar day, or never rises in polar night). Those events
// are the zero time.Time; use Defined to check before using one.
type SunTimes struct {
	Date time.Time

	NightEnd      time.Time // morning astronomical twilight starts
	NauticalDawn  time.Time // morning nautical twilight starts
	Dawn          time.Time // morning civil twilight starts
	Sunrise       time.Time // top edge of the sun appears on the horizon
	SunriseEnd    time.Time // bottom edge of the sun touches the horizon
	GoldenHourEnd time.Time // morning golden hour ends
	SolarNoon     time.Time // sun is at its highest
	GoldenHour    time.Time // evening golden hour starts
	SunsetStart   time.Time // bottom edge of the sun touches the horizon
	Sunset        time.Time // sun disappears below the horizon
	Dusk          time.Time // evening nautical twilight starts
	NauticalDusk  time.Time // evening astronomical twilight starts
	Night         time.Time // dark enough for astronomical observations
	Nadir         time.Time // sun is at its lowest
}

// Defined reports whether t is a real event time rather than the
// undefined sentinel.
func Defined(t time.Time) bool {
	return !t.IsZero()
}

// sunEvents pairs the morning and evening events that happen when the
// sun crosses the same altitude (in degrees). These altitudes match the
// ones suncalc uses.
var sunEvents = []struct {
	altitude         float64
	morning, evening suncalc.DayTimeName
}{
	{-0.833, suncalc.Sunrise, suncalc.Sunset},
	{-0.3, suncalc.SunriseEnd, suncalc.SunsetStart},
	{-6, suncalc.Dawn, suncalc.Dusk},
	{-12, suncalc.NauticalDawn, suncalc.NauticalDusk},
	{-18, suncalc.NightEnd, suncalc.Night},
	{6, suncalc.GoldenHourEnd, suncalc.GoldenHour},
}

func (s *SunTimes) set(name suncalc.DayTimeName, t time.Time) {
	switch name {
	case suncalc.NightEnd:
		s.NightEnd = t
	case suncalc.NauticalDawn:
		s.NauticalDawn = t
	case suncalc.Dawn:
		s.Dawn = t
	case suncalc.Sunrise:
		s.Sunrise = t
	case suncalc.SunriseEnd:
		s.SunriseEnd = t
	case suncalc.GoldenHourEnd:
		s.GoldenHourEnd = t
	case suncalc.GoldenHour:
		s.GoldenHour = t
	case suncalc.SunsetStart:
		s.SunsetStart = t
	case suncalc.Sunset:
		s.Sunset = t
	case suncalc.Dusk:
		s.Dusk = t
	case suncalc.NauticalDusk:
		s.NauticalDusk = t
	case suncalc.Night:
		s.Night = t
	}
}

// ComputeSunTimes returns the sun events on the day of date at the given
// latitude and longitude. Event times are returned in date's location.
func ComputeSunTimes(date time.Time, latitude, longitude float64) (SunTimes, error) {
	if err := validateInput(date, latitude, longitude); err != nil {
		return SunTimes{}, err
	}
	times := suncalc.GetTimes(date, latitude, longitude)
	loc := date.Location()

	st := SunTimes{
		Date:      date,
		SolarNoon: times[suncalc.SolarNoon].Time.In(loc),
		Nadir:     times[suncalc.Nadir].Time.In(loc),
	}

	// suncalc produces garbage rather than an error for events that
	// don't happen. Decide which events exist from the sun's highest and
	// lowest altitudes of the day instead of trusting its output.
	high := suncalc.GetPosition(st.SolarNoon, latitude, longitude).Altitude * rad2deg
	low := suncalc.GetPosition(st.Nadir, latitude, longitude).Altitude * rad2deg

	for _, ev := range sunEvents {
		if low >= ev.altitude || high <= ev.altitude {
			continue
		}
		for _, name := range []suncalc.DayTimeName{ev.morning, ev.evening} {
			if t, ok := plausibleEvent(times[name].Time, date); ok {
				st.set(name, t.In(loc))
			}
		}
	}
	return st, nil
}

// plausibleEvent rejects times that can't belong to the requested day.
func plausibleEvent(t, date time.Time) (time.Time, bool) {
	if t.IsZero() {
		return time.Time{}, false
	}
	if d := t.Sub(date); math.Abs(d.Hours()) > 48 {
		return time.Time{}, false
	}
	return t, true
}

// DaylightRange returns the span of the day between sunrise and sunset.
// When either is undefined it returns the whole calendar day of Date
// and full is true.
func (s SunTimes) DaylightRange() (from, to time.Time, full bool) {
	if Defined(s.Sunrise) && Defined(s.Sunset) && s.Sunrise.Before(s.Sunset) {
		return s.Sunrise, s.Sunset, false
	}
	d := s.Date
	from = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	return from, from.AddDate(0, 0, 1), true
}
