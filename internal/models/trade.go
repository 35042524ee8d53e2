package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is one held position. There is at most one Trade per symbol.
type Trade struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Shares        int64           `json:"shares"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	TradeDate     time.Time       `json:"tradeDate"`
}

// SpendDocumentID keys the singleton AggregateSpend document in the users collection.
const SpendDocumentID = "totalSpent"

// AggregateSpend is the lifetime cost basis of every buy. Sells never decrement it.
type AggregateSpend struct {
	ID         string          `json:"id"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}
