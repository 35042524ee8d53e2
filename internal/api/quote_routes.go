package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/shopspring/decimal"
)

type quoteResponse struct {
	*quote.Quote
	Shares int64            `json:"shares,omitempty"`
	Total  *decimal.Decimal `json:"total,omitempty"`
}

// handleQuote returns the current price of :symbol. An optional ?shares=N
// adds the projected cost of buying N shares.
func (s *Server) handleQuote(c *gin.Context) {
	var shares int64
	if v := c.Query("shares"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			writeError(c, http.StatusBadRequest, "shares must be a positive integer")
			return
		}
		shares = n
	}

	q, err := s.svc.Quote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.writeFailure(c, err)
		return
	}

	resp := quoteResponse{Quote: q}
	if shares > 0 {
		total := q.Total(shares)
		resp.Shares = shares
		resp.Total = &total
	}
	c.JSON(http.StatusOK, resp)
}
