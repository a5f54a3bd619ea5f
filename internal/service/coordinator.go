package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/session"
	"github.com/jengzang/car-location-go/internal/source"
)

var (
	// ErrAlgorithmFault is returned when the filter algorithm panics while processing a batch
	ErrAlgorithmFault = errors.New("filter algorithm fault")
	// ErrInvalidMode is returned for an unknown source mode
	ErrInvalidMode = errors.New("invalid source mode")
)

// Filter is the part of an algorithm the coordinator drives
type Filter interface {
	ID() string
	Process(batch []models.RawLocationPoint) []models.ProcessedLocationPoint
}

// FilterFactory returns a fresh filter for the vehicle model
type FilterFactory func(model models.VehicleModel) Filter

// LocationSource produces raw fixes for a session
type LocationSource interface {
	StartLive(handler source.FixHandler) error
	StartSimulated(interval time.Duration, handler source.FixHandler) error
	Stop()
}

// Recorder accepts records for asynchronous persistence
type Recorder interface {
	Submit(rec models.LocationRecord) error
	Failures() int64
}

// CoordinatorConfig holds coordinator configuration
type CoordinatorConfig struct {
	Model     models.VehicleModel
	BatchSize int
	Interval  time.Duration // simulated fix interval
}

const notificationBuffer = 16

// Coordinator wires source -> filter -> session buffer -> writer and owns the
// Idle/Running session state. The vehicle model is fixed at construction.
type Coordinator struct {
	cfg           CoordinatorConfig
	source        LocationSource
	filters       FilterFactory
	writer        Recorder
	buffer        *session.Buffer
	logger        logrus.FieldLogger
	notifications chan models.Notification

	// lifecycle serializes Start and Stop; mu guards the session state and
	// is the only lock taken on the fix path
	lifecycle sync.Mutex
	mu        sync.Mutex
	info      models.SessionInfo
	filter    Filter
	pending   []models.RawLocationPoint
	// stale is set while the buffer still holds the previous session's points
	stale bool
}

// NewCoordinator creates an idle coordinator
func NewCoordinator(cfg CoordinatorConfig, src LocationSource, filters FilterFactory, writer Recorder, buffer *session.Buffer, logger logrus.FieldLogger) *Coordinator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = source.DefaultInterval
	}
	return &Coordinator{
		cfg:           cfg,
		source:        src,
		filters:       filters,
		writer:        writer,
		buffer:        buffer,
		logger:        logger.WithFields(logrus.Fields{"component": "coordinator", "carModel": cfg.Model.DisplayName()}),
		notifications: make(chan models.Notification, notificationBuffer),
		info: models.SessionInfo{
			State:        models.SessionIdle,
			VehicleModel: cfg.Model,
			CarModel:     cfg.Model.DisplayName(),
		},
	}
}

// Start begins a session fed by the given source mode. While a session is
// running it logs a warning and returns the running session unchanged.
func (c *Coordinator) Start(ctx context.Context, mode models.SourceMode) (models.SessionInfo, error) {
	if mode != models.SourceSimulated && mode != models.SourceLive {
		return c.Session(), fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	if err := ctx.Err(); err != nil {
		return c.Session(), err
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.info.State == models.SessionRunning {
		info := c.sessionLocked()
		c.mu.Unlock()
		c.logger.WithField("session", info.ID).Warn("Session already running, start ignored")
		return info, nil
	}
	c.mu.Unlock()

	// a subscription ended by an algorithm fault may still be unwinding
	c.source.Stop()

	now := time.Now()
	id := uuid.NewString()
	filter := c.filters(c.cfg.Model)

	c.mu.Lock()
	c.filter = filter
	c.pending = nil
	c.stale = true
	c.info = models.SessionInfo{
		ID:           id,
		State:        models.SessionRunning,
		VehicleModel: c.cfg.Model,
		CarModel:     c.cfg.Model.DisplayName(),
		AlgorithmID:  filter.ID(),
		Mode:         mode,
		StartedAt:    &now,
	}
	c.mu.Unlock()

	handler := c.handleFix(id)
	var err error
	if mode == models.SourceLive {
		err = c.source.StartLive(handler)
	} else {
		err = c.source.StartSimulated(c.cfg.Interval, handler)
	}

	logger := c.logger.WithFields(logrus.Fields{"session": id, "mode": mode, "algorithm": filter.ID()})
	if err != nil {
		c.mu.Lock()
		c.stale = false
		c.endLocked(err)
		info := c.sessionLocked()
		c.mu.Unlock()

		if errors.Is(err, source.ErrPermissionDenied) {
			c.notify(models.NotifyPermissionDenied, id, "Location permission is required to start live tracking")
		}
		logger.WithError(err).Warn("Session failed to start")
		return info, err
	}

	c.mu.Lock()
	c.clearStaleLocked()
	info := c.sessionLocked()
	c.mu.Unlock()

	logger.Info("Session started")
	return info, nil
}

// Stop ends the running session. Buffered fixes short of a full batch are
// processed, queued writes still complete. Calling Stop while idle is a no-op.
func (c *Coordinator) Stop() models.SessionInfo {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.info.State != models.SessionRunning {
		info := c.sessionLocked()
		c.mu.Unlock()
		return info
	}
	// fixes arriving from here on are ignored
	c.info.State = models.SessionIdle
	c.mu.Unlock()

	// the fix handler takes mu, so the source must be stopped without holding it
	c.source.Stop()

	c.mu.Lock()
	var records []models.LocationRecord
	if len(c.pending) > 0 {
		var err error
		if records, err = c.flushLocked(); err != nil {
			c.logger.WithError(err).Error("Failed to flush final batch")
		}
	}
	if c.info.StoppedAt == nil {
		c.endLocked(nil)
	}
	c.mu.Unlock()
	c.submit(records)

	info := c.Session()
	c.logger.WithFields(logrus.Fields{
		"session": info.ID,
		"fixes":   info.FixesReceived,
		"points":  info.PointsProduced,
	}).Info("Session stopped")
	return info
}

// Session returns a snapshot of the current or most recent session
func (c *Coordinator) Session() models.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionLocked()
}

// CurrentSession returns the points processed during the current session, oldest first
func (c *Coordinator) CurrentSession() []models.ProcessedLocationPoint {
	return c.buffer.Snapshot()
}

// Buffer exposes the session buffer for change subscriptions
func (c *Coordinator) Buffer() *session.Buffer {
	return c.buffer
}

// Notifications delivers one-shot notifications. Notifications raised while
// the channel is full are dropped.
func (c *Coordinator) Notifications() <-chan models.Notification {
	return c.notifications
}

func (c *Coordinator) sessionLocked() models.SessionInfo {
	info := c.info
	info.PointsBuffered = c.buffer.Len()
	info.PointsEvicted = c.buffer.Dropped()
	if c.writer != nil {
		info.WriteFailures = c.writer.Failures()
	}
	return info
}

// endLocked moves the session to Idle, recording err when non-nil
func (c *Coordinator) endLocked(err error) {
	now := time.Now()
	c.info.State = models.SessionIdle
	c.info.StoppedAt = &now
	if err != nil {
		c.info.LastError = err.Error()
	}
	c.pending = nil
}

func (c *Coordinator) handleFix(sessionID string) source.FixHandler {
	return func(_ context.Context, fix models.RawLocationPoint) error {
		c.mu.Lock()
		if c.info.State != models.SessionRunning || c.info.ID != sessionID {
			c.mu.Unlock()
			return nil
		}

		c.info.FixesReceived++
		c.pending = append(c.pending, fix)
		if len(c.pending) < c.cfg.BatchSize {
			c.mu.Unlock()
			return nil
		}
		records, err := c.flushLocked()
		c.mu.Unlock()

		// fixes are delivered one at a time, so submission order is delivery order
		c.submit(records)
		return err
	}
}

// flushLocked runs the pending batch through the filter and appends each
// output point to the session buffer. It returns the records to persist, in order.
func (c *Coordinator) flushLocked() ([]models.LocationRecord, error) {
	batch := c.pending
	c.pending = nil

	processed, err := c.process(batch)
	if err != nil {
		sessionID := c.info.ID
		c.endLocked(err)
		c.logger.WithError(err).WithField("session", sessionID).Error("Session ended by algorithm fault")
		c.notify(models.NotifyAlgorithmFault, sessionID, err.Error())
		return nil, err
	}

	c.clearStaleLocked()
	records := make([]models.LocationRecord, 0, len(processed))
	for _, p := range processed {
		c.buffer.Append(p)
		c.info.PointsProduced++
		records = append(records, models.NewLocationRecord(p, c.cfg.Model))
	}
	return records, nil
}

func (c *Coordinator) clearStaleLocked() {
	if c.stale {
		c.buffer.Reset()
		c.stale = false
	}
}

// submit hands records to the writer. It must be called without holding mu.
func (c *Coordinator) submit(records []models.LocationRecord) {
	for _, rec := range records {
		if err := c.writer.Submit(rec); err != nil {
			c.logger.WithError(err).WithField("timestamp", rec.Timestamp).Warn("Location record not submitted")
		}
	}
}

func (c *Coordinator) process(batch []models.RawLocationPoint) (out []models.ProcessedLocationPoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrAlgorithmFault, c.filter.ID(), r)
		}
	}()
	return c.filter.Process(batch), nil
}

func (c *Coordinator) notify(kind models.NotificationKind, sessionID, message string) {
	n := models.Notification{Kind: kind, SessionID: sessionID, Message: message, At: time.Now()}
	select {
	case c.notifications <- n:
	default:
		c.logger.WithField("kind", kind).Warn("Notification dropped, no listener")
	}
}
