package models

import "math"

// RawLocationPoint is a single fix as delivered by a location source
type RawLocationPoint struct {
	Timestamp int64    `json:"timestamp"` // Unix epoch in milliseconds
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	SpeedMps  *float64 `json:"speedMps,omitempty"`
}

// Valid reports whether the fix carries finite coordinates within WGS84 bounds
func (p RawLocationPoint) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return false
	}
	if p.SpeedMps != nil && (math.IsNaN(*p.SpeedMps) || math.IsInf(*p.SpeedMps, 0)) {
		return false
	}
	return true
}

// ProcessedLocationPoint is the output of a filter algorithm.
// AlgorithmID always names the algorithm instance that produced the point.
type ProcessedLocationPoint struct {
	Timestamp   int64    `json:"timestamp"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	SpeedMps    *float64 `json:"speedMps,omitempty"`
	AlgorithmID string   `json:"algorithmId"`
}

// LocationRecord represents a persisted row of the location_data table
type LocationRecord struct {
	ID          int64   `json:"id" db:"id" bson:"_id"`
	Latitude    float64 `json:"latitude" db:"latitude" bson:"latitude"`
	Longitude   float64 `json:"longitude" db:"longitude" bson:"longitude"`
	Timestamp   int64   `json:"timestamp" db:"timestamp" bson:"timestamp"` // Unix epoch in milliseconds
	CarModel    string  `json:"carModel" db:"carModel" bson:"carModel"`
	AlgorithmID *string `json:"algorithmId,omitempty" db:"algorithmId" bson:"algorithmId,omitempty"`
}

// NewLocationRecord copies a processed point into a record ready for insertion.
// The ID is left zero; storage assigns it.
func NewLocationRecord(p ProcessedLocationPoint, model VehicleModel) LocationRecord {
	rec := LocationRecord{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Timestamp: p.Timestamp,
		CarModel:  model.DisplayName(),
	}
	if p.AlgorithmID != "" {
		id := p.AlgorithmID
		rec.AlgorithmID = &id
	}
	return rec
}

// Coordinate holds lat/lon
type Coordinate struct {
	Latitude  float64 `json:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude"`
}

// Float64 returns a pointer to v, for optional speed fields
func Float64(v float64) *float64 {
	return &v
}
