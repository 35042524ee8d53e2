package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
	Feed     string `json:"feed"`
}

func (s *Server) handleHealth(c *gin.Context) {
	dbStatus := "connected"
	if s.store == nil {
		dbStatus = "unknown"
	} else if err := s.store.Ping(c.Request.Context()); err != nil {
		dbStatus = "disconnected"
	}

	feedStatus := "waiting"
	if s.feed != nil && s.feed.Latest() != nil {
		feedStatus = "live"
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus, Feed: feedStatus},
	})
}
