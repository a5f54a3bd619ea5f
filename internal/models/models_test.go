package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVehicleModel(t *testing.T) {
	tests := []struct {
		in   string
		want VehicleModel
	}{
		{"MODEL_A", ModelA},
		{"model_b", ModelB},
		{"Model C", ModelC},
		{" dev rig ", ModelDev},
		{"MODEL_DEV", ModelDev},
	}
	for _, tt := range tests {
		got, err := ParseVehicleModel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseVehicleModel("Model Z")
	assert.ErrorIs(t, err, ErrUnknownVehicleModel)
}

func TestVehicleModelNames(t *testing.T) {
	all := AllVehicleModels()
	require.Len(t, all, 4)

	seen := map[string]bool{}
	for _, m := range all {
		assert.NotContains(t, m.DisplayName(), "VehicleModel(")
		assert.False(t, seen[m.DisplayName()], "duplicate display name %s", m.DisplayName())
		seen[m.DisplayName()] = true

		parsed, err := ParseVehicleModel(m.DisplayName())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	assert.Equal(t, "VehicleModel(9)", VehicleModel(9).DisplayName())
}

func TestVehicleModelJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Model VehicleModel `json:"model"`
	}{ModelB})
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"MODEL_B"}`, string(data))

	var decoded struct {
		Model VehicleModel `json:"model"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ModelB, decoded.Model)

	assert.Error(t, json.Unmarshal([]byte(`{"model":"MODEL_Q"}`), &decoded))
}

func TestRawLocationPointValid(t *testing.T) {
	assert.True(t, RawLocationPoint{Latitude: 18.52, Longitude: 73.85}.Valid())
	assert.True(t, RawLocationPoint{Latitude: -90, Longitude: 180, SpeedMps: Float64(0)}.Valid())

	assert.False(t, RawLocationPoint{Latitude: math.NaN(), Longitude: 1}.Valid())
	assert.False(t, RawLocationPoint{Latitude: 1, Longitude: math.Inf(1)}.Valid())
	assert.False(t, RawLocationPoint{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, RawLocationPoint{Latitude: 0, Longitude: -181}.Valid())
	assert.False(t, RawLocationPoint{Latitude: 0, Longitude: 0, SpeedMps: Float64(math.NaN())}.Valid())
}

func TestNewLocationRecord(t *testing.T) {
	p := ProcessedLocationPoint{Timestamp: 1000, Latitude: 18.52, Longitude: 73.85, AlgorithmID: "median_filter"}
	rec := NewLocationRecord(p, ModelC)

	assert.Zero(t, rec.ID)
	assert.Equal(t, "Model C", rec.CarModel)
	assert.Equal(t, int64(1000), rec.Timestamp)
	require.NotNil(t, rec.AlgorithmID)
	assert.Equal(t, "median_filter", *rec.AlgorithmID)

	assert.Nil(t, NewLocationRecord(ProcessedLocationPoint{}, ModelA).AlgorithmID)
}

func TestHistoryFilterNormalize(t *testing.T) {
	f := HistoryFilter{Page: -1, PageSize: 5000}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, 0, f.Offset())

	f = HistoryFilter{Page: 3, PageSize: 0}
	f.Normalize()
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 2*DefaultPageSize, f.Offset())
}
