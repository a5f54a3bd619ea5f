package algorithm

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/car-location-go/internal/models"
)

// Median replaces each fix with the per-axis median of a rolling window,
// which rejects isolated spikes without pulling the track towards them.
type Median struct {
	win *window
}

// NewMedian creates a median filter
func NewMedian(opts Options) *Median {
	return &Median{win: newWindow(opts.windowSize())}
}

// ID returns the algorithm identifier
func (a *Median) ID() string { return MedianID }

// Process emits one median point per valid fix
func (a *Median) Process(batch []models.RawLocationPoint) []models.ProcessedLocationPoint {
	out := make([]models.ProcessedLocationPoint, 0, len(batch))
	for _, p := range batch {
		if !p.Valid() {
			continue
		}
		a.win.push(p)

		lats, lons, speeds := a.win.columns()
		point := models.ProcessedLocationPoint{
			Timestamp:   p.Timestamp,
			Latitude:    median(lats),
			Longitude:   median(lons),
			AlgorithmID: a.ID(),
		}
		if p.SpeedMps != nil && len(speeds) > 0 {
			point.SpeedMps = models.Float64(median(speeds))
		}
		out = append(out, point)
	}
	return out
}

func (*Median) variant() {}

// median sorts in place; callers pass scratch slices
func median(values []float64) float64 {
	sort.Float64s(values)
	return stat.Quantile(0.5, stat.Empirical, values, nil)
}
