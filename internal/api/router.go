package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/car-location-go/internal/handler"
	"github.com/jengzang/car-location-go/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Session *handler.SessionHandler
	History *handler.HistoryHandler
}

// SetupRouter builds the gin engine with all routes
func SetupRouter(h Handlers, logger logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger), middleware.CORS())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Car location API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		session := api.Group("/session")
		{
			session.POST("/start", h.Session.Start)
			session.POST("/stop", h.Session.Stop)
			session.GET("", h.Session.GetSession)
			session.GET("/points", h.Session.GetPoints)
			session.GET("/points/stream", h.Session.StreamPoints)
			session.GET("/notifications", h.Session.GetNotifications)
		}

		history := api.Group("/history")
		{
			history.GET("", h.History.GetHistory)
			history.GET("/stream", h.History.StreamHistory)
		}

		api.GET("/locations/latest", h.History.GetLatest)
	}

	return r
}
