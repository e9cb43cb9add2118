package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger 是组合状态的唯一写入方，保证"校验-变更"的原子性。
// 资金与持仓只能通过 OpenTrade / CloseTrade 两个入口变更。
type Ledger struct {
	initialCapital float64
	cash           float64
	positions      map[string]*Position
	history        []*Trade
	logger         *zap.Logger
}

// New 以给定初始资金创建空账本。
func New(initialCapital float64, logger *zap.Logger) (*Ledger, error) {
	if initialCapital <= 0 {
		return nil, fmt.Errorf("ledger: 初始资金必须大于0, 实际为 %.4f", initialCapital)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*Position),
		logger:         logger,
	}, nil
}

// OpenTrade 开仓：扣减现金、插入持仓并追加一条未平仓交易，返回交易编号。
func (l *Ledger) OpenTrade(symbol string, side Side, size, price float64, strategy string, confidence float64, ts time.Time) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("%w: size=%.8f", ErrInvalidSize, size)
	}
	if price <= 0 {
		return "", fmt.Errorf("%w: price=%.8f", ErrInvalidPrice, price)
	}

	cost := size * price
	if cost > l.cash {
		return "", fmt.Errorf("%w: 需要 %.4f, 可用 %.4f", ErrInsufficientCapital, cost, l.cash)
	}

	// 持仓与交易共用同一编号，平仓时据此移除对应持仓。
	id := uuid.NewString()
	opened := ts.UTC()

	l.cash -= cost
	position := &Position{
		ID:         id,
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		EntryPrice: price,
		OpenedAt:   opened,
	}
	position.markTo(price)
	l.positions[id] = position

	l.history = append(l.history, &Trade{
		ID:         id,
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		EntryPrice: price,
		OpenedAt:   opened,
		Strategy:   strategy,
		Confidence: confidence,
	})

	l.logger.Debug("开仓完成",
		zap.String("trade_id", id),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("size", size),
		zap.Float64("price", price),
		zap.Float64("cash", l.cash),
	)

	return id, nil
}

// CloseTrade 平仓：结算盈亏、归还现金并移除持仓，返回已实现盈亏。
// 多头归还 size*exit_price；空头归还成本加上反号盈亏，保证资金守恒。
func (l *Ledger) CloseTrade(tradeID string, exitPrice float64, ts time.Time) (float64, error) {
	if exitPrice <= 0 {
		return 0, fmt.Errorf("%w: price=%.8f", ErrInvalidPrice, exitPrice)
	}

	trade := l.findTrade(tradeID)
	if trade == nil {
		return 0, fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
	}
	if trade.Closed {
		return 0, fmt.Errorf("%w: %s", ErrTradeAlreadyClosed, tradeID)
	}

	pnl := realizePnl(trade.Side, trade.EntryPrice, exitPrice, trade.Size)
	cost := trade.EntryPrice * trade.Size

	trade.ExitPrice = exitPrice
	trade.ClosedAt = ts.UTC()
	trade.Pnl = pnl
	if cost > 0 {
		trade.PnlPct = pnl / cost * 100
	}
	trade.Closed = true

	l.cash += cost + pnl
	delete(l.positions, tradeID)

	// 空头只预留了开仓成本作保证金，亏损超出预留会透支现金。
	if l.cash < 0 {
		l.logger.Warn("平仓后现金透支",
			zap.String("trade_id", tradeID),
			zap.Float64("cash", l.cash),
			zap.Float64("pnl", pnl),
		)
	}

	l.logger.Debug("平仓完成",
		zap.String("trade_id", tradeID),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl", pnl),
		zap.Float64("cash", l.cash),
	)

	return pnl, nil
}

// MarkToMarket 用最新价格替换所有未平仓持仓的估值。
// 价格表中没有对应交易对的持仓保持上次估值不变。
func (l *Ledger) MarkToMarket(prices map[string]float64) {
	for _, position := range l.positions {
		if price, ok := prices[position.Symbol]; ok {
			position.markTo(price)
		}
	}
}

// OpenPositions 返回未平仓持仓的只读快照，按开仓时间排序。
func (l *Ledger) OpenPositions() []Position {
	positions := make([]Position, 0, len(l.positions))
	for _, position := range l.positions {
		positions = append(positions, *position)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].OpenedAt.Equal(positions[j].OpenedAt) {
			return positions[i].ID < positions[j].ID
		}
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})
	return positions
}

// OpenPositionBySymbol 返回指定交易对最早的未平仓持仓。
func (l *Ledger) OpenPositionBySymbol(symbol string) (Position, bool) {
	for _, position := range l.OpenPositions() {
		if position.Symbol == symbol {
			return position, true
		}
	}
	return Position{}, false
}

// History 返回交易历史的只读副本，含未平仓交易。
func (l *Ledger) History() []Trade {
	history := make([]Trade, 0, len(l.history))
	for _, trade := range l.history {
		history = append(history, *trade)
	}
	return history
}

// Snapshot 返回组合状态的完整只读副本。
func (l *Ledger) Snapshot() Snapshot {
	return Snapshot{
		InitialCapital: l.initialCapital,
		Cash:           l.cash,
		Positions:      l.OpenPositions(),
		History:        l.History(),
	}
}

// Cash 返回当前可用现金。
func (l *Ledger) Cash() float64 {
	return l.cash
}

// InitialCapital 返回初始资金。
func (l *Ledger) InitialCapital() float64 {
	return l.initialCapital
}

func (l *Ledger) findTrade(id string) *Trade {
	for _, trade := range l.history {
		if trade.ID == id {
			return trade
		}
	}
	return nil
}
