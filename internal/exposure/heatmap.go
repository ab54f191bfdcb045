package exposure

import (
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
)

// HeatMap plots insolation by day (X) and time of day (Y). Times when
// the sun is down render black.
func (o *IntensityOverTime) HeatMap() *plot.Plot {
	plt := newPlot("Insolation (W/m²)")
	plt.X.Tick.Marker = dayOfYearTicks{}
	plt.Y.Tick.Marker = plot.TimeTicks{Format: "3:04PM"}
	if grid := o.grid(); grid != nil {
		pal := palette.Heat(256, 1)
		hm := plotter.NewHeatMap(grid, pal)
		hm.Underflow = color.Black
		hm.Rasterized = true
		plt.Add(hm)
	}
	return plt
}

// grid lays the samples out by day and time of day. It returns nil if
// there are no samples.
func (o *IntensityOverTime) grid() *sunIntensityGrid {
	if len(o.Samples) == 0 || o.Increment <= 0 {
		return nil
	}

	type xy struct {
		day, tod  time.Time
		intensity float64
		col, row  int
	}

	// Compute the visual locations on the heat map of each sample and
	// figure out the bounds of the heat map. We construct columns to
	// start from 0, but for the row range, we narrow down to just the
	// lit times.
	var cMax, rMin, rMax int
	startDay, _ := splitTime(o.Samples[0].T)
	var startTOD time.Time
	xys := make([]xy, len(o.Samples))
	for i, s := range o.Samples {
		xy := &xys[i]
		xy.day, xy.tod = splitTime(s.T)
		xy.intensity = s.GlobalIntensity(o.ElevationMeters)
		xy.col = int(xy.day.Sub(startDay) / (24 * time.Hour))
		xy.row = int(xy.tod.Sub(splitTimeDay) / o.Increment)
		if xy.col > cMax {
			cMax = xy.col
		}
		if xy.intensity > 0 {
			first := startTOD.IsZero()
			if first || xy.row < rMin {
				rMin = xy.row
				startTOD = splitTimeDay.Add(time.Duration(xy.row) * o.Increment)
			}
			if first || xy.row > rMax {
				rMax = xy.row
			}
		}
	}
	if startTOD.IsZero() {
		// The sun never rose.
		startTOD = splitTimeDay
	}

	// Construct the grid.
	intensity := make([][]float64, cMax+1)
	for c := range intensity {
		intensity[c] = make([]float64, rMax-rMin+1)
	}
	// Solar radiation at sea level on the equator at noon, unless the
	// test point is high enough to exceed it.
	zMax := 1042.0
	for i := range xys {
		xy := &xys[i]
		if xy.row < rMin || xy.row > rMax {
			continue
		}
		intensity[xy.col][xy.row-rMin] = xy.intensity
		zMax = math.Max(zMax, xy.intensity)
	}
	return &sunIntensityGrid{intensity, startDay, startTOD, o.Increment, zMax}
}

type sunIntensityGrid struct {
	intensity          [][]float64
	startDay, startTOD time.Time
	increment          time.Duration
	max                float64
}

func (si *sunIntensityGrid) Dims() (c, r int) {
	if len(si.intensity) == 0 {
		return 0, 0
	}
	return len(si.intensity), len(si.intensity[0])
}

func (si *sunIntensityGrid) Z(c, r int) float64 {
	return si.intensity[c][r]
}

func (si *sunIntensityGrid) X(c int) float64 {
	t := si.startDay.Add(time.Duration(c) * (24 * time.Hour))
	return float64(t.Unix())
}

func (si *sunIntensityGrid) Y(r int) float64 {
	t := si.startTOD.Add(time.Duration(r) * si.increment)
	return float64(t.Unix())
}

func (si *sunIntensityGrid) Min() float64 {
	// Return 1 rather than 0 so that the "0" value when the sun isn't
	// in the sky renders in the underflow color.
	return 1
}

func (si *sunIntensityGrid) Max() float64 {
	return si.max
}
