package strategy

import (
	"context"
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"papertrader/internal/config"
	"papertrader/internal/market"
	"papertrader/internal/valuation"
)

// Crossover 为均线金叉/死叉策略：快线上穿慢线时买入，
// 下穿时卖出，RSI 超买区间内放弃买入。
type Crossover struct {
	symbol string
	cfg    config.StrategyConfig
	logger *zap.Logger

	closes []float64
}

// NewCrossover 创建均线交叉策略。
func NewCrossover(symbol string, cfg config.StrategyConfig, logger *zap.Logger) (*Crossover, error) {
	if symbol == "" {
		return nil, fmt.Errorf("strategy: symbol 不能为空")
	}
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 || cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("strategy: 均线周期非法 fast=%d slow=%d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("strategy: rsi_period 必须大于0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crossover{
		symbol: symbol,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (c *Crossover) Name() string {
	return "ema_crossover"
}

// Evaluate 将样本价格追加进内部窗口并判断交叉信号。
func (c *Crossover) Evaluate(ctx context.Context, sample market.Sample, summary valuation.Summary) ([]Signal, error) {
	price, ok := sample.Price(c.symbol)
	if !ok || price <= 0 {
		return nil, nil
	}
	c.closes = append(c.closes, price)

	// 慢线加一根确认K线之后才开始出信号。
	if len(c.closes) < c.cfg.SlowPeriod+2 {
		return nil, nil
	}

	fast := talib.Ema(c.closes, c.cfg.FastPeriod)
	slow := talib.Ema(c.closes, c.cfg.SlowPeriod)
	rsi := talib.Rsi(c.closes, c.cfg.RSIPeriod)

	last := len(c.closes) - 1
	diff := fast[last] - slow[last]
	prevDiff := fast[last-1] - slow[last-1]

	goldenCross := prevDiff <= 0 && diff > 0
	deathCross := prevDiff >= 0 && diff < 0

	switch {
	case goldenCross:
		if rsi[last] > 70 {
			c.logger.Debug("金叉出现但RSI超买，放弃买入",
				zap.Float64("rsi", rsi[last]),
				zap.Float64("price", price),
			)
			return nil, nil
		}
		return []Signal{{
			Symbol:     c.symbol,
			Action:     ActionBuy,
			Size:       c.cfg.TradeSize,
			Confidence: crossConfidence(diff, price),
			Reason:     fmt.Sprintf("EMA%d 上穿 EMA%d", c.cfg.FastPeriod, c.cfg.SlowPeriod),
		}}, nil
	case deathCross:
		return []Signal{{
			Symbol:     c.symbol,
			Action:     ActionSell,
			Confidence: crossConfidence(diff, price),
			Reason:     fmt.Sprintf("EMA%d 下穿 EMA%d", c.cfg.FastPeriod, c.cfg.SlowPeriod),
		}}, nil
	default:
		return nil, nil
	}
}

// crossConfidence 以交叉幅度相对价格的比例折算信心度，限制在[0.5,1]。
func crossConfidence(diff, price float64) float64 {
	if price <= 0 {
		return 0.5
	}
	spread := math.Abs(diff) / price * 100
	confidence := 0.5 + spread*0.1
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
