package repository

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/car-location-go/internal/models"
)

// HistoryFeed wraps a LocationStore and pushes the newest-first history to
// subscribers after every successful append. Writes must go through the feed
// for subscribers to observe them.
type HistoryFeed struct {
	store  LocationStore
	limit  int
	logger logrus.FieldLogger

	mu      sync.Mutex
	changed chan struct{}
}

// NewHistoryFeed creates a feed over store. limit caps the number of records
// pushed per update; 0 pushes the whole history.
func NewHistoryFeed(store LocationStore, limit int, logger logrus.FieldLogger) *HistoryFeed {
	if limit < 0 {
		limit = 0
	}
	return &HistoryFeed{
		store:   store,
		limit:   limit,
		logger:  logger.WithField("component", "history_feed"),
		changed: make(chan struct{}),
	}
}

// Append stores the record and wakes all subscribers
func (f *HistoryFeed) Append(ctx context.Context, record *models.LocationRecord) (int64, error) {
	id, err := f.store.Append(ctx, record)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()

	return id, nil
}

// History delegates to the underlying store
func (f *HistoryFeed) History(ctx context.Context, filter models.HistoryFilter) ([]models.LocationRecord, error) {
	return f.store.History(ctx, filter)
}

// Count delegates to the underlying store
func (f *HistoryFeed) Count(ctx context.Context, filter models.HistoryFilter) (int64, error) {
	return f.store.Count(ctx, filter)
}

// Latest delegates to the underlying store
func (f *HistoryFeed) Latest(ctx context.Context) (*models.LocationRecord, error) {
	return f.store.Latest(ctx)
}

func (f *HistoryFeed) wait() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.changed
}

// Subscribe returns a channel that receives the current history immediately
// and again after each append. A slow consumer only sees the newest view.
// The channel is closed when ctx is done.
func (f *HistoryFeed) Subscribe(ctx context.Context) <-chan []models.LocationRecord {
	out := make(chan []models.LocationRecord, 1)

	go func() {
		defer close(out)
		for {
			// take the signal before querying so an append during the query is not missed
			changed := f.wait()

			records, err := f.store.History(ctx, models.HistoryFilter{Page: 1, PageSize: f.limit})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				f.logger.WithError(err).Error("Failed to refresh history view")
			} else {
				select {
				case <-out:
				default:
				}
				out <- records
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
