package models

import (
	"errors"
	"fmt"
	"strings"
)

// VehicleModel enumerates the supported car models.
// Onboarding a model means adding a value here and a case in algorithm.ForModel.
type VehicleModel int

const (
	ModelA   VehicleModel = iota // smoothing
	ModelB                       // Kalman
	ModelC                       // median filter
	ModelDev                     // passthrough, for bench rigs and validation

	vehicleModelCount
)

var vehicleModelKeys = [vehicleModelCount]string{
	ModelA:   "MODEL_A",
	ModelB:   "MODEL_B",
	ModelC:   "MODEL_C",
	ModelDev: "MODEL_DEV",
}

var vehicleModelNames = [vehicleModelCount]string{
	ModelA:   "Model A",
	ModelB:   "Model B",
	ModelC:   "Model C",
	ModelDev: "Dev Rig",
}

// ErrUnknownVehicleModel is returned when a name does not match any vehicle model
var ErrUnknownVehicleModel = errors.New("unknown vehicle model")

// AllVehicleModels returns every vehicle model in declaration order
func AllVehicleModels() []VehicleModel {
	all := make([]VehicleModel, 0, vehicleModelCount)
	for m := VehicleModel(0); m < vehicleModelCount; m++ {
		all = append(all, m)
	}
	return all
}

// ParseVehicleModel accepts either the enum key (MODEL_A) or the display name (Model A)
func ParseVehicleModel(s string) (VehicleModel, error) {
	needle := strings.TrimSpace(s)
	for m := VehicleModel(0); m < vehicleModelCount; m++ {
		if strings.EqualFold(needle, vehicleModelKeys[m]) || strings.EqualFold(needle, vehicleModelNames[m]) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVehicleModel, s)
}

// DisplayName returns the human readable name stored with each record
func (m VehicleModel) DisplayName() string {
	if m < 0 || m >= vehicleModelCount {
		return fmt.Sprintf("VehicleModel(%d)", int(m))
	}
	return vehicleModelNames[m]
}

func (m VehicleModel) String() string {
	if m < 0 || m >= vehicleModelCount {
		return fmt.Sprintf("VehicleModel(%d)", int(m))
	}
	return vehicleModelKeys[m]
}

// MarshalText encodes the model by its enum key
func (m VehicleModel) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts anything ParseVehicleModel accepts
func (m *VehicleModel) UnmarshalText(text []byte) error {
	parsed, err := ParseVehicleModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
