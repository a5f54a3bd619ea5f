package algorithm

import "github.com/jengzang/car-location-go/internal/models"

// Passthrough returns every raw point unchanged, tagged with its ID.
// It is stateless and used for validation and bench rigs.
type Passthrough struct{}

// NewPassthrough creates a passthrough algorithm
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// ID returns the algorithm identifier
func (Passthrough) ID() string { return PassthroughID }

// Process copies each raw point
func (a Passthrough) Process(batch []models.RawLocationPoint) []models.ProcessedLocationPoint {
	out := make([]models.ProcessedLocationPoint, 0, len(batch))
	for _, p := range batch {
		out = append(out, models.ProcessedLocationPoint{
			Timestamp:   p.Timestamp,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			SpeedMps:    p.SpeedMps,
			AlgorithmID: a.ID(),
		})
	}
	return out
}

func (Passthrough) variant() {}
