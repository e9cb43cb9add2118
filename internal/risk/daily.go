package risk

import (
	"time"

	"go.uber.org/zap"

	"papertrader/internal/config"
)

// DailyTracker 维护日度风控状态。回测内状态保存在内存中，
// 每个交易日首个样本的净值作为当日起始净值。
type DailyTracker struct {
	cfg    config.RiskConfig
	logger *zap.Logger

	tradingDate string
	startEquity float64
	current     float64
	halted      bool
}

// NewDailyTracker 创建日度追踪器。
func NewDailyTracker(cfg config.RiskConfig, logger *zap.Logger) *DailyTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyTracker{
		cfg:    cfg,
		logger: logger,
	}
}

// Update 根据样本时间与当前净值更新当日状态，跨入新交易日时重置。
func (t *DailyTracker) Update(ts time.Time, equity float64) DailyStatus {
	date := tradingDay(ts, t.cfg.DailyLossResetHour)

	if date != t.tradingDate {
		t.tradingDate = date
		t.startEquity = equity
		t.halted = false
	}
	t.current = equity

	pnl := equity - t.startEquity
	pnlPercent := 0.0
	if t.startEquity > 0 {
		pnlPercent = pnl / t.startEquity * 100
	}

	if !t.halted && t.startEquity > 0 && pnlPercent <= -t.cfg.MaxDailyLossPct {
		t.halted = true
		t.logger.Warn("触发日度亏损限制",
			zap.String("trading_date", date),
			zap.Float64("loss_percent", pnlPercent),
			zap.Float64("limit_percent", t.cfg.MaxDailyLossPct),
		)
	}

	return DailyStatus{
		TradingDate:   date,
		StartEquity:   t.startEquity,
		CurrentEquity: equity,
		PnlAmount:     pnl,
		PnlPercent:    pnlPercent,
		Halted:        t.halted,
	}
}

// Status 返回最近一次更新的状态。
func (t *DailyTracker) Status() DailyStatus {
	pnl := t.current - t.startEquity
	pnlPercent := 0.0
	if t.startEquity > 0 {
		pnlPercent = pnl / t.startEquity * 100
	}
	return DailyStatus{
		TradingDate:   t.tradingDate,
		StartEquity:   t.startEquity,
		CurrentEquity: t.current,
		PnlAmount:     pnl,
		PnlPercent:    pnlPercent,
		Halted:        t.halted,
	}
}

// tradingDay 按重置小时换算交易日，使每日风控窗口可偏移。
func tradingDay(ts time.Time, resetHour int) string {
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	utc := ts.UTC()
	shifted := utc.Add(-time.Duration(resetHour) * time.Hour)
	day := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
	return day.Format("2006-01-02")
}
