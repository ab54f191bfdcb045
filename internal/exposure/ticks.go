package exposure

import (
	"fmt"
	"time"

	"gonum.org/v1/plot"
)

// timeOfDayTicks renders a time.Duration since midnight as a time of day.
type timeOfDayTicks struct {
	targetTicks int // Create around targetTicks number of ticks
}

func (o timeOfDayTicks) Ticks(min, max float64) []plot.Tick {
	return durationTickMarks(min, max, o.targetTicks, func(t, _ time.Duration) string {
		return splitTimeDay.Add(t).Format("3:04PM")
	})
}

// durationTicks renders a time.Duration as hours and minutes.
type durationTicks struct {
	targetTicks int // Create around targetTicks number of ticks
}

func (o durationTicks) Ticks(min, max float64) []plot.Tick {
	return durationTickMarks(min, max, o.targetTicks, func(t, major time.Duration) string {
		switch {
		case major%time.Hour == 0:
			return fmt.Sprintf("%dh", int(t.Hours()))
		case major%time.Minute == 0:
			return fmt.Sprintf("%dh%dm", int(t.Hours()), int(t.Minutes())%60)
		}
		return t.String()
	})
}

// durationTickMarks places ticks on [min, max], which are
// time.Durations, and labels the major ticks.
func durationTickMarks(min, max float64, targetTicks int, label func(t, major time.Duration) string) []plot.Tick {
	minD, maxD := time.Duration(min), time.Duration(max)
	major, minor := optimizeDurationTicks(minD, maxD, targetTicks)
	if minor == 0 {
		minor = major
	}

	var ticks []plot.Tick
	first := int((minD + minor - 1) / minor)
	last := int(maxD / minor)
	minorFactor := int(major / minor)
	for i := first; i <= last; i++ {
		t := time.Duration(i) * minor
		tick := plot.Tick{Value: float64(t)}
		if i%minorFactor == 0 {
			tick.Label = label(t, major)
		}
		ticks = append(ticks, tick)
	}
	return ticks
}

var durationScales = []time.Duration{12 * time.Hour, 3 * time.Hour, time.Hour, 30 * time.Minute, 10 * time.Minute, 5 * time.Minute, time.Minute}

func optimizeDurationTicks(minD, maxD time.Duration, targetTicks int) (best, minor time.Duration) {
	// Compute how many ticks would appear in [minD, maxD] for each
	// scale and pick the closest to targetTicks.
	bestNDelta := 0
	for i, scale := range durationScales {
		first := int((minD + scale - 1) / scale)
		last := int(maxD / scale)
		if n := last - first + 1; n > 0 {
			delta := n - targetTicks
			if delta < 0 {
				delta = -delta
			}
			if best == 0 || delta < bestNDelta {
				best, bestNDelta = scale, delta
				if i+1 < len(durationScales) {
					minor = durationScales[i+1]
				} else {
					minor = 0
				}
			}
		}
	}
	if best == 0 {
		best, minor = durationScales[0], durationScales[1]
	}
	return best, minor
}

// dayOfYearTicks puts a tick on the first of each month and labels each
// quarter. Values are Unix times.
type dayOfYearTicks struct{}

func (dayOfYearTicks) Ticks(min, max float64) []plot.Tick {
	valToTime := plot.UTCUnixTime
	minT, maxT := valToTime(min), valToTime(max)
	var ticks []plot.Tick
	lastMajorYear := 0
	for t := time.Date(minT.Year(), minT.Month(), 1, 12, 0, 0, 0, time.UTC); !t.After(maxT); t = t.AddDate(0, 1, 0) {
		if t.Before(minT) {
			continue
		}
		label := ""
		if (t.Month()-1)%3 == 0 {
			if lastMajorYear == t.Year() {
				label = t.Format("1/02")
			} else {
				lastMajorYear = t.Year()
				label = t.Format("1/02/2006")
			}
		}
		ticks = append(ticks, plot.Tick{
			Value: float64(t.Unix()),
			Label: label,
		})
	}
	return ticks
}

// solsticeTicks labels the start of the range and each equinox and
// solstice in it.
type solsticeTicks struct{}

func (solsticeTicks) Ticks(min, max float64) []plot.Tick {
	valToTime := plot.UTCUnixTime
	minT, maxT := valToTime(min), valToTime(max)
	ticks := []plot.Tick{{
		Value: min,
		Label: minT.Format("1/02/2006"),
	}}
	add := func(year int, month time.Month, day int) {
		t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
		if !t.After(minT) || t.After(maxT) {
			return
		}
		ticks = append(ticks, plot.Tick{
			Value: float64(t.Unix()),
			Label: t.Format("1/02"),
		})
	}
	for year := minT.Year(); year <= maxT.Year(); year++ {
		add(year, 3, 20)
		add(year, 6, 21)
		add(year, 9, 22)
		add(year, 12, 22)
	}
	return ticks
}
