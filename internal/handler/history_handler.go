package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/repository"
	"github.com/jengzang/car-location-go/internal/service"
	"github.com/jengzang/car-location-go/pkg/response"
)

// HistoryHandler handles HTTP requests for persisted location history
type HistoryHandler struct {
	historyService *service.HistoryService
	feed           *repository.HistoryFeed
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(historyService *service.HistoryService, feed *repository.HistoryFeed) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		feed:           feed,
	}
}

// GetHistory handles GET /api/v1/history
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	var filter models.HistoryFilter

	// Parse query parameters
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	if filter.StartTime > 0 && filter.EndTime > 0 && filter.StartTime > filter.EndTime {
		response.BadRequest(c, "startTime must not be after endTime")
		return
	}

	result, err := h.historyService.GetHistory(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// StreamHistory handles GET /api/v1/history/stream.
// Every event carries the whole newest-first view.
func (h *HistoryHandler) StreamHistory(c *gin.Context) {
	updates := h.feed.Subscribe(c.Request.Context())

	c.Stream(func(w io.Writer) bool {
		view, ok := <-updates
		if !ok {
			return false
		}
		c.SSEvent("history", view)
		return true
	})
}

// GetLatest handles GET /api/v1/locations/latest?carModel=
func (h *HistoryHandler) GetLatest(c *gin.Context) {
	rec, err := h.historyService.Latest(c.Request.Context(), c.Query("carModel"))
	if errors.Is(err, service.ErrNotFound) {
		response.NotFound(c, "No location recorded yet")
		return
	}
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, rec)
}
