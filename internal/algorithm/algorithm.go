// Package algorithm holds the per-vehicle-model location filters.
//
// Each variant consumes a window of raw fixes and returns processed points tagged
// with its own ID. The set of variants is closed: Algorithm carries an unexported
// method, so only this package can add one, and ForModel maps every
// models.VehicleModel to exactly one variant.
package algorithm

import (
	"github.com/jengzang/car-location-go/internal/models"
)

// Algorithm identifiers, persisted with every record
const (
	PassthroughID   = "demo_passthrough"
	MovingAverageID = "moving_average"
	MedianID        = "median_filter"
	KalmanID        = "kalman_filter"
)

// Algorithm is a location filter bound to one processing session.
// Process must not panic for any finite input and returns an empty slice for an
// empty batch. Output length may differ from input length.
type Algorithm interface {
	ID() string
	Process(batch []models.RawLocationPoint) []models.ProcessedLocationPoint

	variant()
}

// Options tunes the stateful variants
type Options struct {
	WindowSize  int     // rolling window for moving average and median
	MaxSpeedMps float64 // fixes implying a faster jump are dropped; 0 disables

	// Kalman tuning: position and velocity process noise per second of
	// elapsed time (m, m/s) and the expected fix accuracy (m)
	DistancePerSecond  float64
	SpeedPerSecond     float64
	HorizontalAccuracy float64
}

// DefaultOptions returns the tuning used when nothing is configured
func DefaultOptions() Options {
	return Options{
		WindowSize:         5,
		MaxSpeedMps:        70, // ~250 km/h
		DistancePerSecond:  1,
		SpeedPerSecond:     2,
		HorizontalAccuracy: 10,
	}
}

func (o Options) windowSize() int {
	if o.WindowSize < 1 {
		return 1
	}
	return o.WindowSize
}

// window is a fixed capacity FIFO of the most recent accepted fixes
type window struct {
	points []models.RawLocationPoint
	size   int
}

func newWindow(size int) *window {
	return &window{points: make([]models.RawLocationPoint, 0, size), size: size}
}

func (w *window) push(p models.RawLocationPoint) {
	if len(w.points) == w.size {
		copy(w.points, w.points[1:])
		w.points = w.points[:len(w.points)-1]
	}
	w.points = append(w.points, p)
}

func (w *window) reset() {
	w.points = w.points[:0]
}

func (w *window) last() (models.RawLocationPoint, bool) {
	if len(w.points) == 0 {
		return models.RawLocationPoint{}, false
	}
	return w.points[len(w.points)-1], true
}

func (w *window) columns() (lats, lons, speeds []float64) {
	lats = make([]float64, len(w.points))
	lons = make([]float64, len(w.points))
	for i, p := range w.points {
		lats[i] = p.Latitude
		lons[i] = p.Longitude
		if p.SpeedMps != nil {
			speeds = append(speeds, *p.SpeedMps)
		}
	}
	return lats, lons, speeds
}
