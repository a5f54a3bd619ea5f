package algorithm

import (
	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/spatial"
)

// jumpReseedAfter is the number of consecutive rejected fixes, each consistent
// with the one before it, after which the window is rebuilt from them
const jumpReseedAfter = 3

// MovingAverage smooths positions with the mean of a rolling window.
// The window survives across Process calls for the lifetime of a session.
// Fixes that would require travelling faster than MaxSpeedMps from the last
// accepted fix are treated as GPS jumps and dropped. When the rejected fixes
// keep agreeing with each other the accepted anchor was the outlier, so the
// window is re-seeded from the rejected run.
type MovingAverage struct {
	win      *window
	maxSpeed float64
	rejected []models.RawLocationPoint
}

// NewMovingAverage creates a moving average filter
func NewMovingAverage(opts Options) *MovingAverage {
	return &MovingAverage{
		win:      newWindow(opts.windowSize()),
		maxSpeed: opts.MaxSpeedMps,
	}
}

// ID returns the algorithm identifier
func (a *MovingAverage) ID() string { return MovingAverageID }

// Process smooths each accepted fix against the rolling window
func (a *MovingAverage) Process(batch []models.RawLocationPoint) []models.ProcessedLocationPoint {
	out := make([]models.ProcessedLocationPoint, 0, len(batch))
	for _, p := range batch {
		if !p.Valid() || !a.accept(p) {
			continue
		}

		lats, lons, speeds := a.win.columns()
		point := models.ProcessedLocationPoint{
			Timestamp:   p.Timestamp,
			Latitude:    stat.Mean(lats, nil),
			Longitude:   stat.Mean(lons, nil),
			AlgorithmID: a.ID(),
		}
		if p.SpeedMps != nil && len(speeds) > 0 {
			point.SpeedMps = models.Float64(stat.Mean(speeds, nil))
		}
		out = append(out, point)
	}
	return out
}

// accept pushes p into the window unless it is a jump
func (a *MovingAverage) accept(p models.RawLocationPoint) bool {
	prev, ok := a.win.last()
	if !ok || !a.tooFast(prev, p) {
		a.rejected = a.rejected[:0]
		a.win.push(p)
		return true
	}

	if n := len(a.rejected); n > 0 && a.tooFast(a.rejected[n-1], p) {
		a.rejected = a.rejected[:0]
	}
	a.rejected = append(a.rejected, p)
	if len(a.rejected) < jumpReseedAfter {
		return false
	}

	a.win.reset()
	for _, r := range a.rejected {
		a.win.push(r)
	}
	a.rejected = a.rejected[:0]
	return true
}

func (a *MovingAverage) tooFast(from, to models.RawLocationPoint) bool {
	if a.maxSpeed <= 0 {
		return false
	}
	speed, ok := spatial.ImpliedSpeed(from.Latitude, from.Longitude, from.Timestamp,
		to.Latitude, to.Longitude, to.Timestamp)
	return ok && speed > a.maxSpeed
}

func (*MovingAverage) variant() {}
