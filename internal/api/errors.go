package api

import (
	"errors"
	"net/http"

	"github.com/kjannette/paper-trader/internal/portfolio"
	"github.com/kjannette/paper-trader/internal/quote"
	"github.com/kjannette/paper-trader/internal/repository"
)

// Order matters: a buy that failed for lack of a quote wraps both
// ErrQuoteUnavailable and the underlying quote error.
var statusTable = []struct {
	err    error
	status int
	kind   string
}{
	{portfolio.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{quote.ErrInvalidSymbol, http.StatusBadRequest, "invalid_symbol"},
	{portfolio.ErrPositionNotFound, http.StatusNotFound, "position_not_found"},
	{portfolio.ErrDuplicatePosition, http.StatusConflict, "duplicate_position"},
	{portfolio.ErrInsufficientShares, http.StatusConflict, "insufficient_shares"},
	{repository.ErrWriteConflict, http.StatusConflict, "write_conflict"},
	{portfolio.ErrRiskLimit, http.StatusUnprocessableEntity, "risk_limit"},
	{portfolio.ErrQuoteUnavailable, http.StatusServiceUnavailable, "quote_unavailable"},
	{quote.ErrRateLimited, http.StatusServiceUnavailable, "rate_limited"},
	{quote.ErrNotFound, http.StatusNotFound, "quote_not_found"},
	{quote.ErrNetworkFailure, http.StatusBadGateway, "quote_network_failure"},
	{repository.ErrConnectionFailure, http.StatusInternalServerError, "store_unavailable"},
}

func classify(err error) (int, string) {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, e.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}
