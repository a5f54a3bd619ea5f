package models

import "time"

// SessionState is the lifecycle state of the processing coordinator
type SessionState string

const (
	SessionIdle    SessionState = "idle"
	SessionRunning SessionState = "running"
)

// SourceMode selects which location source feeds a session
type SourceMode string

const (
	SourceSimulated SourceMode = "simulated"
	SourceLive      SourceMode = "live"
)

// SessionInfo describes the active or most recent processing session
type SessionInfo struct {
	ID             string       `json:"id,omitempty"`
	State          SessionState `json:"state"`
	VehicleModel   VehicleModel `json:"vehicleModel"`
	CarModel       string       `json:"carModel"`
	AlgorithmID    string       `json:"algorithmId,omitempty"`
	Mode           SourceMode   `json:"mode,omitempty"`
	StartedAt      *time.Time   `json:"startedAt,omitempty"`
	StoppedAt      *time.Time   `json:"stoppedAt,omitempty"`
	FixesReceived  int64        `json:"fixesReceived"`
	PointsProduced int64        `json:"pointsProduced"`
	PointsBuffered int          `json:"pointsBuffered"`
	PointsEvicted  int64        `json:"pointsEvicted"` // dropped by the session retention window
	WriteFailures  int64        `json:"writeFailures"`
	LastError      string       `json:"lastError,omitempty"`
}

// NotificationKind classifies one-shot notifications raised by the coordinator
type NotificationKind string

const (
	NotifyPermissionDenied NotificationKind = "PERMISSION_DENIED"
	NotifyAlgorithmFault   NotificationKind = "ALGORITHM_FAULT"
)

// Notification is surfaced once to the presentation layer
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	SessionID string           `json:"sessionId,omitempty"`
	Message   string           `json:"message"`
	At        time.Time        `json:"at"`
}
