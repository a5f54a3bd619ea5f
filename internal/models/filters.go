package models

// HistoryFilter represents filter parameters for querying persisted location records
type HistoryFilter struct {
	StartTime   int64  `form:"startTime"`   // Unix epoch milliseconds, inclusive
	EndTime     int64  `form:"endTime"`     // Unix epoch milliseconds, inclusive
	CarModel    string `form:"carModel"`    // display name, e.g. "Model A"
	AlgorithmID string `form:"algorithmId"` // demo_passthrough, moving_average, ...
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}

// Pagination bounds shared by the repositories and the history service
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Normalize clamps the pagination fields into their valid range
func (f *HistoryFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

// Offset returns the row offset for the current page
func (f HistoryFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// HistoryPage represents a paginated, newest-first slice of the history
type HistoryPage struct {
	Data       []LocationRecord `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
}
