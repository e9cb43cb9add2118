package ledger

import "errors"

var (
	// ErrInsufficientCapital 表示可用资金不足以支付开仓成本。
	ErrInsufficientCapital = errors.New("ledger: 可用资金不足")
	// ErrInvalidSize 表示交易数量非法。
	ErrInvalidSize = errors.New("ledger: 交易数量必须大于0")
	// ErrInvalidPrice 表示成交价格非法。
	ErrInvalidPrice = errors.New("ledger: 成交价格必须大于0")
	// ErrTradeNotFound 表示交易编号不存在。
	ErrTradeNotFound = errors.New("ledger: 交易不存在")
	// ErrTradeAlreadyClosed 表示交易已完成平仓，不可重复操作。
	ErrTradeAlreadyClosed = errors.New("ledger: 交易已平仓")
)
