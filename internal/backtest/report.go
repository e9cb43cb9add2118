package backtest

import (
	"time"

	"papertrader/internal/ledger"
)

// State 表示一次回测的运行状态。
type State string

const (
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateAborted     State = "aborted"
)

// EquityPoint 为净值曲线上的一个采样点。
type EquityPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	TotalValue float64   `json:"total_value"`
}

// Report 汇总回测结果，可直接序列化供报表方消费。
type Report struct {
	State          State          `json:"state"`
	InitialCapital float64        `json:"initial_capital"`
	FinalValue     float64        `json:"final_value"`
	TotalTrades    int            `json:"total_trades"`
	WinningTrades  int            `json:"winning_trades"`
	LosingTrades   int            `json:"losing_trades"`
	WinRate        float64        `json:"win_rate"`
	TotalReturnPct float64        `json:"total_return_pct"`
	MaxDrawdownPct float64        `json:"max_drawdown_pct"`
	SharpeRatio    float64        `json:"sharpe_ratio"`
	EquityCurve    []EquityPoint  `json:"equity_curve"`
	Trades         []ledger.Trade `json:"trades"`
}
