package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/car-location-go/internal/models"
)

// LocationStore persists location records and answers history queries.
// History is ordered newest first; records with equal timestamps keep
// insertion order.
type LocationStore interface {
	Append(ctx context.Context, record *models.LocationRecord) (int64, error)
	History(ctx context.Context, filter models.HistoryFilter) ([]models.LocationRecord, error)
	Count(ctx context.Context, filter models.HistoryFilter) (int64, error)
	Latest(ctx context.Context) (*models.LocationRecord, error)
}

// SQLiteLocationStore handles database operations for the location_data table
type SQLiteLocationStore struct {
	db *sql.DB
}

// NewSQLiteLocationStore creates a new SQLite backed location store
func NewSQLiteLocationStore(db *sql.DB) *SQLiteLocationStore {
	return &SQLiteLocationStore{db: db}
}

// Append inserts a record and sets its storage-assigned ID
func (r *SQLiteLocationStore) Append(ctx context.Context, record *models.LocationRecord) (int64, error) {
	query := `INSERT INTO location_data (latitude, longitude, timestamp, carModel, algorithmId)
		VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		record.Latitude, record.Longitude, record.Timestamp, record.CarModel, record.AlgorithmID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert location record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	record.ID = id
	return id, nil
}

func whereClause(filter models.HistoryFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StartTime > 0 {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, filter.EndTime)
	}
	if filter.CarModel != "" {
		conditions = append(conditions, "carModel = ?")
		args = append(args, filter.CarModel)
	}
	if filter.AlgorithmID != "" {
		conditions = append(conditions, "algorithmId = ?")
		args = append(args, filter.AlgorithmID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// History retrieves one page of records, newest first.
// A zero PageSize returns every matching record.
func (r *SQLiteLocationStore) History(ctx context.Context, filter models.HistoryFilter) ([]models.LocationRecord, error) {
	where, args := whereClause(filter)
	query := `SELECT id, latitude, longitude, timestamp, carModel, algorithmId FROM location_data` +
		where + " ORDER BY timestamp DESC, id ASC"

	if filter.PageSize > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.PageSize, filter.Offset())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query location history: %w", err)
	}
	defer rows.Close()

	records := []models.LocationRecord{}
	for rows.Next() {
		var rec models.LocationRecord
		var algorithmID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Timestamp, &rec.CarModel, &algorithmID); err != nil {
			return nil, fmt.Errorf("failed to scan location record: %w", err)
		}
		if algorithmID.Valid {
			id := algorithmID.String
			rec.AlgorithmID = &id
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location history: %w", err)
	}

	return records, nil
}

// Count returns the number of records matching the filter, ignoring pagination
func (r *SQLiteLocationStore) Count(ctx context.Context, filter models.HistoryFilter) (int64, error) {
	where, args := whereClause(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM location_data"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count location records: %w", err)
	}
	return total, nil
}

// Latest returns the newest record, or nil when the table is empty
func (r *SQLiteLocationStore) Latest(ctx context.Context) (*models.LocationRecord, error) {
	records, err := r.History(ctx, models.HistoryFilter{Page: 1, PageSize: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

