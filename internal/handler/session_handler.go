package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/car-location-go/internal/models"
	"github.com/jengzang/car-location-go/internal/service"
	"github.com/jengzang/car-location-go/internal/source"
	"github.com/jengzang/car-location-go/pkg/response"
)

// SessionHandler handles HTTP requests controlling the processing session
type SessionHandler struct {
	coordinator *service.Coordinator
	defaultMode models.SourceMode
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(coordinator *service.Coordinator, defaultMode models.SourceMode) *SessionHandler {
	return &SessionHandler{
		coordinator: coordinator,
		defaultMode: defaultMode,
	}
}

// Start handles POST /api/v1/session/start?mode=simulated|live
func (h *SessionHandler) Start(c *gin.Context) {
	mode := models.SourceMode(c.DefaultQuery("mode", string(h.defaultMode)))

	info, err := h.coordinator.Start(c.Request.Context(), mode)
	switch {
	case err == nil:
		response.Success(c, info)
	case errors.Is(err, service.ErrInvalidMode):
		response.BadRequest(c, err.Error())
	case errors.Is(err, source.ErrPermissionDenied):
		response.ErrorWithData(c, http.StatusForbidden, "Location permission not granted", info)
	case errors.Is(err, source.ErrNoProvider):
		response.ErrorWithData(c, http.StatusServiceUnavailable, "Live location is not available", info)
	default:
		_ = c.Error(err)
		response.InternalError(c, err.Error())
	}
}

// Stop handles POST /api/v1/session/stop
func (h *SessionHandler) Stop(c *gin.Context) {
	response.Success(c, h.coordinator.Stop())
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	response.Success(c, h.coordinator.Session())
}

// GetPoints handles GET /api/v1/session/points
func (h *SessionHandler) GetPoints(c *gin.Context) {
	response.Success(c, h.coordinator.CurrentSession())
}

// StreamPoints handles GET /api/v1/session/points/stream.
// It sends the current session view, then a fresh view after every change.
func (h *SessionHandler) StreamPoints(c *gin.Context) {
	buffer := h.coordinator.Buffer()
	ctx := c.Request.Context()

	changed, _ := buffer.Changed()
	first := true
	c.Stream(func(w io.Writer) bool {
		if !first {
			select {
			case <-changed:
			case <-ctx.Done():
				return false
			}
		}
		first = false
		changed, _ = buffer.Changed()
		c.SSEvent("session", buffer.Snapshot())
		return true
	})
}

// GetNotifications handles GET /api/v1/session/notifications.
// Each notification is returned once.
func (h *SessionHandler) GetNotifications(c *gin.Context) {
	pending := []models.Notification{}
	for {
		select {
		case n := <-h.coordinator.Notifications():
			pending = append(pending, n)
		default:
			response.Success(c, pending)
			return
		}
	}
}
