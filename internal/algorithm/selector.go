package algorithm

import (
	"fmt"

	"github.com/jengzang/car-location-go/internal/models"
)

// ForModel returns a fresh algorithm instance for the vehicle model.
// Callers select once per session so stateful variants keep their window
// across the session's fixes. The mapping covers every models.VehicleModel;
// TestForModelIsTotal fails when a model is added without a case here.
func ForModel(model models.VehicleModel, opts Options) Algorithm {
	switch model {
	case models.ModelA:
		return NewMovingAverage(opts)
	case models.ModelB:
		return NewKalman(opts)
	case models.ModelC:
		return NewMedian(opts)
	case models.ModelDev:
		return NewPassthrough()
	}
	panic(fmt.Sprintf("algorithm: no filter mapped for %s", model))
}

// Selector binds options so callers only pass the vehicle model
type Selector struct {
	Options Options
}

// NewSelector creates a selector with the given tuning
func NewSelector(opts Options) *Selector {
	return &Selector{Options: opts}
}

// ForModel returns a fresh algorithm for the model using the selector's options
func (s *Selector) ForModel(model models.VehicleModel) Algorithm {
	return ForModel(model, s.Options)
}
