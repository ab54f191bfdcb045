package exposure

import (
	"image/color"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// A Day summarizes the samples of one calendar day.
type Day struct {
	// Date is noon UTC on the day, the same as the heat map columns.
	Date time.Time

	// Sunlit is how long the test point was in direct sunlight.
	Sunlit time.Duration

	// FirstLit and LastLit are the times since midnight of the first
	// and last sunlit samples. Both are -1 if the point was never lit.
	FirstLit, LastLit time.Duration

	// Insolation is the total energy received in Wh/m².
	Insolation float64
}

// Days summarizes o by calendar day in the samples' time zone.
func (o *IntensityOverTime) Days() []Day {
	var days []Day
	for i, s := range o.Samples {
		day, tod := splitTime(s.T)
		if i == 0 || !sameDay(o.Samples[i-1].T, s.T) {
			days = append(days, Day{Date: day, FirstLit: -1, LastLit: -1})
		}
		d := &days[len(days)-1]
		d.Insolation += s.GlobalIntensity(o.ElevationMeters) * o.Increment.Hours()
		if !s.Lit {
			continue
		}
		d.Sunlit += o.Increment
		since := tod.Sub(splitTimeDay)
		if d.FirstLit < 0 {
			d.FirstLit = since
		}
		d.LastLit = since
	}
	return days
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// SunHoursPlot plots the hours of direct sunlight per day.
func (o *IntensityOverTime) SunHoursPlot() (*plot.Plot, error) {
	plt := newPlot("Direct sunlight per day")
	plt.X.Tick.Marker = solsticeTicks{}
	plt.Y.Tick.Marker = durationTicks{targetTicks: 8}
	plt.Y.Min = 0

	var xys plotter.XYs
	for _, d := range o.Days() {
		xys = append(xys, plotter.XY{X: float64(d.Date.Unix()), Y: float64(d.Sunlit)})
	}
	if len(xys) == 0 {
		return plt, nil
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 255, G: 215, A: 255}
	line.Width = vg.Points(1.5)
	plt.Add(line)
	return plt, nil
}

// LitWindowPlot plots the first and last time of day the test point is
// in direct sunlight. Days without sunlight are left out.
func (o *IntensityOverTime) LitWindowPlot() (*plot.Plot, error) {
	plt := newPlot("First and last direct sunlight")
	plt.X.Tick.Marker = dayOfYearTicks{}
	plt.Y.Tick.Marker = timeOfDayTicks{targetTicks: 8}

	var first, last plotter.XYs
	for _, d := range o.Days() {
		if d.FirstLit < 0 {
			continue
		}
		x := float64(d.Date.Unix())
		first = append(first, plotter.XY{X: x, Y: float64(d.FirstLit)})
		last = append(last, plotter.XY{X: x, Y: float64(d.LastLit + o.Increment)})
	}
	if len(first) == 0 {
		return plt, nil
	}
	for _, l := range []struct {
		xys plotter.XYs
		col color.Color
	}{
		{first, color.RGBA{R: 255, G: 140, A: 255}},
		{last, color.RGBA{R: 255, G: 255, A: 255}},
	} {
		sc, err := plotter.NewScatter(l.xys)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Color = l.col
		sc.GlyphStyle.Radius = vg.Points(1)
		plt.Add(sc)
	}
	return plt, nil
}
