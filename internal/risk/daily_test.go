package risk

import (
	"testing"
	"time"
)

func TestDailyTracker_ResetOnNewTradingDay(t *testing.T) {
	tracker := NewDailyTracker(riskConfig(), nil)

	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	status := tracker.Update(day1, 10000)
	if status.TradingDate != "2024-03-01" || status.StartEquity != 10000 {
		t.Fatalf("unexpected initial status: %+v", status)
	}

	status = tracker.Update(day1.Add(2*time.Hour), 9800)
	if status.PnlAmount != -200 {
		t.Fatalf("expected pnl -200, got %f", status.PnlAmount)
	}

	// 新交易日以当日首个净值重置起点。
	day2 := day1.Add(24 * time.Hour)
	status = tracker.Update(day2, 9800)
	if status.TradingDate != "2024-03-02" {
		t.Fatalf("expected new trading date, got %s", status.TradingDate)
	}
	if status.StartEquity != 9800 || status.PnlAmount != 0 {
		t.Fatalf("expected reset start equity, got %+v", status)
	}
}

func TestDailyTracker_HaltOnLossLimit(t *testing.T) {
	tracker := NewDailyTracker(riskConfig(), nil)

	day := time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC)
	tracker.Update(day, 10000)

	status := tracker.Update(day.Add(time.Hour), 9700)
	if !status.Halted {
		t.Fatalf("expected halt at -3%% daily loss, got %+v", status)
	}

	// 当日内回升不解除停止状态。
	status = tracker.Update(day.Add(2*time.Hour), 9900)
	if !status.Halted {
		t.Fatalf("halt must persist for the rest of the day")
	}

	status = tracker.Update(day.Add(25*time.Hour), 9900)
	if status.Halted {
		t.Fatalf("halt must reset on the next trading day")
	}
}

func TestTradingDay_ResetHourShift(t *testing.T) {
	ts := time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)

	if got := tradingDay(ts, 0); got != "2024-03-02" {
		t.Fatalf("expected 2024-03-02, got %s", got)
	}
	// 重置小时为8点时，凌晨1点仍属于前一交易日。
	if got := tradingDay(ts, 8); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01 with reset hour 8, got %s", got)
	}
}
