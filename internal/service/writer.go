package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/repository"
)

var (
	// ErrWriterClosed is returned by Submit after Close
	ErrWriterClosed = errors.New("persistence writer closed")
	// ErrWriterBusy is returned by Submit when the queue is full; the record is dropped
	ErrWriterBusy = errors.New("persistence queue full")
)

const (
	DefaultWriterQueue = 256
	writeTimeout       = 10 * time.Second
)

// LatestCache receives every successfully persisted record
type LatestCache interface {
	SetLatest(ctx context.Context, rec models.LocationRecord) error
}

// Writer applies submitted records to the store one at a time, in submission
// order, on its own goroutine. Writes are not tied to any session: stopping a
// session does not cancel queued writes. A failed write is logged and counted,
// never retried, and does not affect later writes. Submit never blocks: a
// record arriving while the queue is full is dropped and counted as a failure.
type Writer struct {
	store  repository.LocationStore
	cache  LatestCache
	logger logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	queue  chan models.LocationRecord
	done   chan struct{}

	written  atomic.Int64
	failures atomic.Int64
	dropped  atomic.Int64
}

// NewWriter starts a writer. cache may be nil.
func NewWriter(store repository.LocationStore, cache LatestCache, queueSize int, logger logrus.FieldLogger) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultWriterQueue
	}
	w := &Writer{
		store:  store,
		cache:  cache,
		logger: logger.WithField("component", "persistence_writer"),
		queue:  make(chan models.LocationRecord, queueSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit enqueues a record without waiting
func (w *Writer) Submit(rec models.LocationRecord) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.queue <- rec:
		return nil
	default:
		w.dropped.Add(1)
		w.failures.Add(1)
		return ErrWriterBusy
	}
}

// Close stops accepting records and waits until the queue is drained
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

// Written returns the number of records persisted
func (w *Writer) Written() int64 {
	return w.written.Load()
}

// Failures returns the number of records that could not be persisted,
// including dropped ones
func (w *Writer) Failures() int64 {
	return w.failures.Load()
}

// Dropped returns the number of records rejected because the queue was full
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

func (w *Writer) run() {
	defer close(w.done)
	for rec := range w.queue {
		w.write(rec)
	}
}

func (w *Writer) write(rec models.LocationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := w.store.Append(ctx, &rec); err != nil {
		w.failures.Add(1)
		w.logger.WithError(err).WithFields(logrus.Fields{
			"timestamp": rec.Timestamp,
			"carModel":  rec.CarModel,
		}).Error("Failed to persist location record")
		return
	}
	w.written.Add(1)

	if w.cache != nil {
		if err := w.cache.SetLatest(ctx, rec); err != nil {
			w.logger.WithError(err).Warn("Failed to cache latest location")
		}
	}
}
