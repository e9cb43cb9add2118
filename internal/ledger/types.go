package ledger

import (
	"strings"
	"time"
)

// Side 表示持仓方向。
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide 将外部输入归一化为 Side，非法输入返回 false。
func ParseSide(raw string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(raw))) {
	case SideLong:
		return SideLong, true
	case SideShort:
		return SideShort, true
	default:
		return "", false
	}
}

// Position 表示一笔未平仓的风险敞口。
type Position struct {
	ID               string    `json:"position_id"`
	Symbol           string    `json:"symbol"`
	Side             Side      `json:"side"`
	Size             float64   `json:"size"`
	EntryPrice       float64   `json:"entry_price"`
	CurrentPrice     float64   `json:"current_price"`
	UnrealizedPnl    float64   `json:"unrealized_pnl"`
	UnrealizedPnlPct float64   `json:"unrealized_pnl_pct"`
	OpenedAt         time.Time `json:"opened_at"`
}

// markTo 用最新市价重估持仓，始终整体替换而不是累加。
func (p *Position) markTo(price float64) {
	if price < 0 {
		return
	}
	p.CurrentPrice = price
	p.UnrealizedPnl = realizePnl(p.Side, p.EntryPrice, price, p.Size)
	cost := p.EntryPrice * p.Size
	if cost > 0 {
		p.UnrealizedPnlPct = p.UnrealizedPnl / cost * 100
	} else {
		p.UnrealizedPnlPct = 0
	}
}

// Trade 记录一笔持仓从开仓到平仓的完整生命周期。
type Trade struct {
	ID         string    `json:"trade_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Size       float64   `json:"size"`
	EntryPrice float64   `json:"entry_price"`
	OpenedAt   time.Time `json:"opened_at"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	ClosedAt   time.Time `json:"closed_at,omitempty"`
	Pnl        float64   `json:"pnl,omitempty"`
	PnlPct     float64   `json:"pnl_pct,omitempty"`
	Closed     bool      `json:"closed"`
	Strategy   string    `json:"strategy,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
}

// Snapshot 是组合状态的只读副本，供估值与风控读取。
type Snapshot struct {
	InitialCapital float64    `json:"initial_capital"`
	Cash           float64    `json:"cash"`
	Positions      []Position `json:"positions"`
	History        []Trade    `json:"trade_history"`
}

// realizePnl 按方向计算盈亏：多头为 (exit-entry)*size，空头反号。
func realizePnl(side Side, entry, exit, size float64) float64 {
	pnl := (exit - entry) * size
	if side == SideShort {
		return -pnl
	}
	return pnl
}
