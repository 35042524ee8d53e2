package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kjannette/paper-trader/internal/models"
)

type spendResponse struct {
	*models.AggregateSpend
	// Note is a reminder that sells never reduce the counter.
	Note string `json:"note"`
}

// handlePortfolio reconciles on demand unless ?cached=true and the feed
// already holds a view.
func (s *Server) handlePortfolio(c *gin.Context) {
	if c.Query("cached") == "true" && s.feed != nil {
		if v := s.feed.Latest(); v != nil {
			c.JSON(http.StatusOK, v)
			return
		}
	}

	view, err := s.svc.Refresh(c.Request.Context())
	if err != nil {
		s.writeFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleSpend(c *gin.Context) {
	spend, err := s.svc.Spend(c.Request.Context())
	if err != nil {
		s.writeFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, spendResponse{
		AggregateSpend: spend,
		Note:           "lifetime total of all buys; sells do not reduce it",
	})
}
