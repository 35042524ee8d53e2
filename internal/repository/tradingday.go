package repository

import (
	"time"
	_ "time/tzdata"
)

// marketTZ is the exchange time zone; a trading day starts at local midnight.
var marketTZ = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TradingDay returns the trading day (YYYY-MM-DD) for a given timestamp.
func TradingDay(ts time.Time) string {
	return ts.In(marketTZ).Format("2006-01-02")
}

// TradingDayStart returns the instant the trading day containing ts began.
func TradingDayStart(ts time.Time) time.Time {
	local := ts.In(marketTZ)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, marketTZ)
}

// TradingDayNow returns the trading day for the current moment.
func TradingDayNow() string {
	return TradingDay(time.Now())
}
