package valuation

import (
	"math"
	"time"

	"papertrader/internal/ledger"
)

// Summary 为一次组合估值的汇总结果。
type Summary struct {
	Timestamp          time.Time `json:"timestamp"`
	InitialCapital     float64   `json:"initial_capital"`
	Cash               float64   `json:"cash"`
	PositionsValue     float64   `json:"positions_value"`
	TotalValue         float64   `json:"total_value"`
	TotalPnl           float64   `json:"total_pnl"`
	TotalPnlPct        float64   `json:"total_pnl_pct"`
	OpenTrades         int       `json:"open_trades"`
	ClosedTrades       int       `json:"closed_trades"`
	WinRate            float64   `json:"win_rate"`
	SharpeRatio        float64   `json:"sharpe_ratio"`
	CurrentDrawdownPct float64   `json:"current_drawdown_pct"`
	MaxDrawdownPct     float64   `json:"max_drawdown_pct"`
}

// MarkToMarket 以最新价格刷新账本中所有未平仓持仓的估值。
// 估值为整体替换，用相同价格重复调用不会产生累加。
func MarkToMarket(l *ledger.Ledger, prices map[string]float64) {
	l.MarkToMarket(prices)
}

// Summarize 从账本快照与当前价格计算组合估值，不修改任何状态。
func Summarize(snapshot ledger.Snapshot, prices map[string]float64, ts time.Time) Summary {
	positionsValue := 0.0
	for _, position := range snapshot.Positions {
		price := position.CurrentPrice
		if latest, ok := prices[position.Symbol]; ok {
			price = latest
		}
		positionsValue += position.Size * price
	}

	totalValue := snapshot.Cash + positionsValue
	totalPnl := totalValue - snapshot.InitialCapital
	totalPnlPct := 0.0
	if snapshot.InitialCapital > 0 {
		totalPnlPct = totalPnl / snapshot.InitialCapital * 100
	}

	pnlPcts := closedPnlPcts(snapshot.History)

	return Summary{
		Timestamp:      ts.UTC(),
		InitialCapital: snapshot.InitialCapital,
		Cash:           snapshot.Cash,
		PositionsValue: positionsValue,
		TotalValue:     totalValue,
		TotalPnl:       totalPnl,
		TotalPnlPct:    totalPnlPct,
		OpenTrades:     len(snapshot.Positions),
		ClosedTrades:   len(pnlPcts),
		WinRate:        winRate(snapshot.History),
		SharpeRatio:    SharpeRatio(pnlPcts),
	}
}

// winRate 返回已平仓交易中盈利交易的百分比，无平仓记录时为0。
func winRate(history []ledger.Trade) float64 {
	closed := 0
	winning := 0
	for _, trade := range history {
		if !trade.Closed {
			continue
		}
		closed++
		if trade.Pnl > 0 {
			winning++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(winning) / float64(closed) * 100
}

// SharpeRatio 为逐笔收益率的均值除以标准差，不做年化。
// 样本不足两笔或标准差为0时返回0。
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std
}

func closedPnlPcts(history []ledger.Trade) []float64 {
	pcts := make([]float64, 0, len(history))
	for _, trade := range history {
		if trade.Closed {
			pcts = append(pcts, trade.PnlPct)
		}
	}
	return pcts
}
