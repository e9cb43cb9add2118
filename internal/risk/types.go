package risk

import (
	"papertrader/internal/ledger"
)

// CheckKind 标识一项风控检查。
type CheckKind string

const (
	CheckPositionSize  CheckKind = "position_size"
	CheckCapital       CheckKind = "capital"
	CheckPositionCount CheckKind = "position_count"
	CheckDailyLoss     CheckKind = "daily_loss"
	CheckDrawdown      CheckKind = "drawdown"
	CheckExposure      CheckKind = "exposure"
)

// ProposedTrade 描述待校验的一笔开仓。
type ProposedTrade struct {
	Symbol string      `json:"symbol"`
	Side   ledger.Side `json:"side"`
	Size   float64     `json:"size"`
	Price  float64     `json:"price"`
}

// Value 返回交易金额。
func (t ProposedTrade) Value() float64 {
	return t.Size * t.Price
}

// ValidationResult 为一次风控校验的输出。
// 拒绝是数据而不是错误：被拒绝的交易属于常规结果。
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	Rejections      []string `json:"rejections"`
	Recommendations []string `json:"recommendations"`
	RecommendedSize float64  `json:"recommended_size,omitempty"`
}

// DailyStatus 表示当日风控状态。
type DailyStatus struct {
	TradingDate   string  `json:"trading_date"`
	StartEquity   float64 `json:"start_equity"`
	CurrentEquity float64 `json:"current_equity"`
	PnlAmount     float64 `json:"pnl_amount"`
	PnlPercent    float64 `json:"pnl_percent"`
	Halted        bool    `json:"halted"`
}
