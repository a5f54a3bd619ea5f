package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/car-location-go/internal/cache"
	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/repository"
)

// ErrNotFound is returned when no record matches
var ErrNotFound = errors.New("location record not found")

// LatestReader looks up the cached latest record
type LatestReader interface {
	GetLatest(ctx context.Context, carModel string) (*models.LocationRecord, error)
}

// HistoryService handles read access to persisted location history
type HistoryService struct {
	store  repository.LocationStore
	cache  LatestReader
	logger logrus.FieldLogger
}

// NewHistoryService creates a new history service. cache may be nil.
func NewHistoryService(store repository.LocationStore, cache LatestReader, logger logrus.FieldLogger) *HistoryService {
	return &HistoryService{
		store:  store,
		cache:  cache,
		logger: logger.WithField("component", "history_service"),
	}
}

// GetHistory retrieves one page of history, newest first
func (s *HistoryService) GetHistory(ctx context.Context, filter models.HistoryFilter) (*models.HistoryPage, error) {
	filter.Normalize()

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	records, err := s.store.History(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	// Calculate total pages
	totalPages := int(math.Ceil(float64(total) / float64(filter.PageSize)))

	return &models.HistoryPage{
		Data:       records,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Latest returns the most recent record for carModel, or overall when carModel
// is empty. The cache is consulted first.
func (s *HistoryService) Latest(ctx context.Context, carModel string) (*models.LocationRecord, error) {
	if s.cache != nil {
		rec, err := s.cache.GetLatest(ctx, carModel)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.WithError(err).Warn("Latest location cache lookup failed")
		}
	}

	var rec *models.LocationRecord
	if carModel == "" {
		latest, err := s.store.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest location: %w", err)
		}
		rec = latest
	} else {
		records, err := s.store.History(ctx, models.HistoryFilter{CarModel: carModel, Page: 1, PageSize: 1})
		if err != nil {
			return nil, fmt.Errorf("failed to get latest location: %w", err)
		}
		if len(records) > 0 {
			rec = &records[0]
		}
	}

	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}
