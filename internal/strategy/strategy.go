package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"papertrader/internal/market"
	"papertrader/internal/valuation"
)

// Action 表示策略信号的动作类型。
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal 为策略对单个交易对给出的指令。
// Size 为0时表示交给风控按建议仓位决定数量。
type Signal struct {
	Symbol     string  `json:"symbol"`
	Action     Action  `json:"action"`
	Size       float64 `json:"size"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Validate 校验信号字段合法性。
func (s Signal) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return errors.New("symbol 不能为空")
	}
	switch s.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return fmt.Errorf("action 字段取值非法: %s", s.Action)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence 必须位于[0,1], 实际为 %.4f", s.Confidence)
	}
	if s.Size < 0 {
		return fmt.Errorf("size 不能为负, 实际为 %.8f", s.Size)
	}
	return nil
}

// Strategy 为回测的决策接口。实现可以持有自身的内部状态
// （例如指标窗口），但不得修改引擎状态。
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, sample market.Sample, summary valuation.Summary) ([]Signal, error)
}

// Func 允许使用函数作为策略。
type Func func(ctx context.Context, sample market.Sample, summary valuation.Summary) ([]Signal, error)

func (f Func) Name() string {
	return "func"
}

func (f Func) Evaluate(ctx context.Context, sample market.Sample, summary valuation.Summary) ([]Signal, error) {
	if f == nil {
		return nil, errors.New("strategy: 策略函数未实现")
	}
	return f(ctx, sample, summary)
}
