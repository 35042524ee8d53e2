package repository

import (
	"testing"
	"time"
)

func TestTradingDay_NewYorkBoundary(t *testing.T) {
	// 03:30 UTC on Jan 16 is still Jan 15 in New York (UTC-5).
	ts := time.Date(2025, 1, 16, 3, 30, 0, 0, time.UTC)
	if got := TradingDay(ts); got != "2025-01-15" {
		t.Fatalf("TradingDay: got %s", got)
	}

	start := TradingDayStart(ts)
	want := time.Date(2025, 1, 15, 5, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Fatalf("TradingDayStart: got %s, want %s", start.UTC(), want)
	}
}

func TestTradingDayStart_Summer(t *testing.T) {
	// EDT is UTC-4.
	ts := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
	want := time.Date(2025, 7, 4, 4, 0, 0, 0, time.UTC)
	if got := TradingDayStart(ts); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got.UTC(), want)
	}
}
