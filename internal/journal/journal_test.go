package journal

import (
	"context"
	"testing"
	"time"

	"papertrader/internal/backtest"
	"papertrader/internal/config"
	"papertrader/internal/ledger"
	"papertrader/internal/risk"
	"papertrader/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	// 内存库必须限制为单连接，否则每个连接各自是一个独立数据库。
	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestService_RecordTradesRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	opened := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	closed := opened.Add(2 * time.Hour)
	trades := []ledger.Trade{
		{
			ID:         "trade-1",
			Symbol:     "BTC/USDT",
			Side:       ledger.SideLong,
			Size:       0.1,
			EntryPrice: 50000,
			ExitPrice:  52000,
			Pnl:        200,
			PnlPct:     4,
			Strategy:   "ema_crossover",
			Confidence: 0.8,
			OpenedAt:   opened,
			ClosedAt:   closed,
			Closed:     true,
		},
		{
			ID:         "trade-2",
			Symbol:     "ETH/USDT",
			Side:       ledger.SideLong,
			Size:       1,
			EntryPrice: 2000,
			Strategy:   "ema_crossover",
			Confidence: 0.6,
			OpenedAt:   opened,
		},
	}

	if err := svc.RecordTrades(ctx, trades); err != nil {
		t.Fatalf("RecordTrades returned error: %v", err)
	}

	var count int
	if err := svc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		t.Fatalf("count trades: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 trades persisted, got %d", count)
	}

	// 未平仓交易的退出字段保持 NULL。
	var closedAt interface{}
	if err := svc.db.QueryRowContext(ctx, `SELECT closed_at FROM trades WHERE trade_id = ?`, "trade-2").Scan(&closedAt); err != nil {
		t.Fatalf("query open trade: %v", err)
	}
	if closedAt != nil {
		t.Fatalf("expected NULL closed_at for open trade, got %v", closedAt)
	}

	// 重放同一批成交是幂等的。
	if err := svc.RecordTrades(ctx, trades); err != nil {
		t.Fatalf("RecordTrades replay returned error: %v", err)
	}
	if err := svc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		t.Fatalf("count trades after replay: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected replay to keep 2 trades, got %d", count)
	}
}

func TestService_RecordEquity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.RecordEquity(ctx, backtest.EquityPoint{Timestamp: base, TotalValue: 10000})
	svc.RecordEquity(ctx, backtest.EquityPoint{Timestamp: base.Add(time.Hour), TotalValue: 10200})

	var count int
	if err := svc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM equity_points`).Scan(&count); err != nil {
		t.Fatalf("count equity points: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 equity points, got %d", count)
	}
}

func TestService_AlertsRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordAlerts(ctx, []risk.Alert{
		{Kind: risk.CheckDailyLoss, Severity: risk.SeverityMedium, Message: "接近单日亏损上限", MetricValue: 2.5, Threshold: 3},
		{Kind: risk.CheckDrawdown, Severity: risk.SeverityHigh, Message: "回撤超限", MetricValue: 22, Threshold: 20},
	})

	all, err := svc.ListAlerts(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListAlerts returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(all))
	}

	drawdownOnly, err := svc.ListAlerts(ctx, risk.CheckDrawdown, 10)
	if err != nil {
		t.Fatalf("ListAlerts by kind returned error: %v", err)
	}
	if len(drawdownOnly) != 1 {
		t.Fatalf("expected 1 drawdown alert, got %d", len(drawdownOnly))
	}
	if drawdownOnly[0].Severity != risk.SeverityHigh {
		t.Fatalf("expected HIGH severity, got %s", drawdownOnly[0].Severity)
	}
	if drawdownOnly[0].MetricValue != 22 || drawdownOnly[0].Threshold != 20 {
		t.Fatalf("unexpected alert payload: %+v", drawdownOnly[0])
	}
}

func TestNewService_NilStore(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
