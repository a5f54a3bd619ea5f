// Package source produces raw location fixes, either from a live positioning
// provider or from a fixed cycle of simulated coordinates.
package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/car-location-go/internal/models"
)

var (
	// ErrPermissionDenied is returned by StartLive when the location capability is not granted
	ErrPermissionDenied = errors.New("location permission not granted")
	// ErrAlreadyStarted is returned when a subscription is already active
	ErrAlreadyStarted = errors.New("location source already started")
	// ErrNoProvider is returned by StartLive when no live provider is configured
	ErrNoProvider = errors.New("no live location provider configured")
	// ErrNoFixtures is returned by StartSimulated when the fixture list is empty
	ErrNoFixtures = errors.New("no simulated fixtures configured")
)

// DefaultFixtures is the simulated loop used during development
var DefaultFixtures = []models.Coordinate{
	{Latitude: 18.5204, Longitude: 73.8567},
	{Latitude: 18.5210, Longitude: 73.8575},
	{Latitude: 18.5220, Longitude: 73.8585},
}

const (
	DefaultInterval   = 3 * time.Second
	DefaultBufferSize = 16
)

// FixHandler receives fixes one at a time, in arrival order.
// Returning an error ends the subscription. A handler must not call Stop.
type FixHandler func(ctx context.Context, fix models.RawLocationPoint) error

// Provider is a live positioning provider. Subscribe pushes fixes into out
// until ctx is cancelled or the provider runs dry.
type Provider interface {
	Name() string
	Subscribe(ctx context.Context, out chan<- models.RawLocationPoint) error
}

// PermissionFunc reports whether live location access is granted
type PermissionFunc func() bool

// Config holds source configuration
type Config struct {
	BufferSize int // capacity of the producer -> dispatcher queue
	Fixtures   []models.Coordinate
	Provider   Provider
	Permission PermissionFunc
}

type produceFunc func(ctx context.Context, out chan<- models.RawLocationPoint) error

// Source runs at most one subscription at a time. The producer goroutine
// blocks when the bounded queue is full, and a single dispatcher goroutine
// invokes the handler, so delivery is serial and never reordered.
type Source struct {
	cfg    Config
	logger logrus.FieldLogger
	now    func() time.Time

	mu     sync.Mutex
	mode   models.SourceMode
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a location source
func New(cfg Config, logger logrus.FieldLogger) *Source {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Fixtures == nil {
		cfg.Fixtures = DefaultFixtures
	}
	return &Source{
		cfg:    cfg,
		logger: logger.WithField("component", "location_source"),
		now:    time.Now,
	}
}

// StartLive subscribes to the live provider. It returns ErrNoProvider when
// none is configured. When permission is not granted it logs a warning, starts
// nothing and returns ErrPermissionDenied.
func (s *Source) StartLive(handler FixHandler) error {
	provider := s.cfg.Provider
	if provider == nil {
		return ErrNoProvider
	}
	if s.cfg.Permission == nil || !s.cfg.Permission() {
		s.logger.Warn("Location permission not granted, live updates not started")
		return ErrPermissionDenied
	}

	s.logger.WithField("provider", provider.Name()).Info("Starting live location updates")
	return s.start(models.SourceLive, provider.Subscribe, handler)
}

// StartSimulated emits the fixtures in a loop, one every interval, stamping each with the current time
func (s *Source) StartSimulated(interval time.Duration, handler FixHandler) error {
	if len(s.cfg.Fixtures) == 0 {
		return ErrNoFixtures
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.logger.WithFields(logrus.Fields{
		"interval": interval,
		"fixtures": len(s.cfg.Fixtures),
	}).Info("Starting simulated location updates")
	return s.start(models.SourceSimulated, s.simulate(interval), handler)
}

// Stop ends the active subscription and waits for the dispatcher to exit, so no
// handler call happens after Stop returns. Safe to call repeatedly or before any start.
func (s *Source) Stop() {
	s.mu.Lock()
	cancel, done, mode := s.cancel, s.done, s.mode
	s.cancel, s.done, s.mode = nil, nil, ""
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.WithField("mode", mode).Info("Location updates stopped")
}

// Active reports whether a subscription is currently delivering fixes
func (s *Source) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

func (s *Source) activeLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Source) start(mode models.SourceMode, produce produceFunc, handler FixHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeLocked() {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	fixes := make(chan models.RawLocationPoint, s.cfg.BufferSize)
	done := make(chan struct{})
	logger := s.logger.WithField("mode", mode)

	go func() {
		defer close(fixes)
		if err := produce(ctx, fixes); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Location producer failed")
		}
	}()

	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case fix, ok := <-fixes:
				if !ok {
					logger.Info("Location producer finished")
					return
				}
				if ctx.Err() != nil {
					return
				}
				if err := handler(ctx, fix); err != nil {
					logger.WithError(err).Error("Fix handler failed, ending subscription")
					return
				}
			}
		}
	}()

	s.mode, s.cancel, s.done = mode, cancel, done
	return nil
}

func (s *Source) simulate(interval time.Duration) produceFunc {
	fixtures := append([]models.Coordinate(nil), s.cfg.Fixtures...)
	return func(ctx context.Context, out chan<- models.RawLocationPoint) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for index := 0; ; index++ {
			c := fixtures[index%len(fixtures)]
			fix := models.RawLocationPoint{
				Timestamp: s.now().UnixMilli(),
				Latitude:  c.Latitude,
				Longitude: c.Longitude,
			}
			select {
			case out <- fix:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
