package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kjannette/paper-trader/internal/models"
	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/repository"
)

type orderRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares int64  `json:"shares"`
}

type buyResponse struct {
	*portfolio.BuyResult
	Warning string `json:"warning,omitempty"`
}

// handleTrades lists stored positions. ?day=YYYY-MM-DD keeps the ones opened
// on that trading day; ?limit=N caps the result.
func (s *Server) handleTrades(c *gin.Context) {
	day := c.Query("day")
	if day != "" && !validateDate(day) {
		writeError(c, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}
	limit := parseLimit(c, 100)

	trades, err := s.svc.Trades(c.Request.Context())
	if err != nil {
		s.writeFailure(c, err)
		return
	}

	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if day != "" && repository.TradingDay(t.TradeDate) != day {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleBuy(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "expected {\"symbol\": string, \"shares\": positive integer}")
		return
	}

	res, err := s.svc.BuyAtMarket(c.Request.Context(), req.Symbol, req.Shares)
	if err != nil && res == nil {
		s.writeFailure(c, err)
		return
	}

	resp := buyResponse{BuyResult: res}
	if err != nil {
		// Trade is stored; only the spend counter is behind.
		resp.Warning = err.Error()
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleSell(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "expected {\"symbol\": string, \"shares\": positive integer}")
		return
	}

	res, err := s.svc.Sell(c.Request.Context(), req.Symbol, req.Shares)
	if err != nil {
		s.writeFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
