package backtest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"papertrader/internal/config"
	"papertrader/internal/ledger"
	"papertrader/internal/market"
	"papertrader/internal/risk"
	"papertrader/internal/strategy"
	"papertrader/internal/valuation"
)

// ErrStrategyFailed 是回测中唯一的致命错误类别：策略执行出错时
// 运行器会带着已收集的数据返回 Aborted 报告并向上抛出该错误。
var ErrStrategyFailed = errors.New("backtest: 策略执行失败")

// Config 定义回测参数。
type Config struct {
	InitialCapital float64
	Risk           config.RiskConfig
}

func (c Config) normalize() Config {
	if c.InitialCapital <= 0 {
		c.InitialCapital = 10000
	}
	return c
}

// Recorder 在每个样本处理完成后接收净值与告警，由外部协作方实现。
// 实现方自行处理持久化失败，不得阻断回放。
type Recorder interface {
	RecordEquity(ctx context.Context, point EquityPoint)
	RecordAlerts(ctx context.Context, alerts []risk.Alert)
}

// Runner 驱动一次确定性的历史回放：严格按样本顺序
// 估值、调用策略、风控校验、执行并记录净值曲线。
type Runner struct {
	cfg      Config
	provider market.SampleProvider
	strategy strategy.Strategy
	recorder Recorder
	logger   *zap.Logger

	state State
}

// NewRunner 构建回测运行器。recorder 可以为 nil。
func NewRunner(cfg Config, provider market.SampleProvider, strat strategy.Strategy, recorder Recorder, logger *zap.Logger) (*Runner, error) {
	if provider == nil {
		return nil, fmt.Errorf("backtest: provider 不能为空")
	}
	if strat == nil {
		return nil, fmt.Errorf("backtest: strategy 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		cfg:      cfg.normalize(),
		provider: provider,
		strategy: strat,
		recorder: recorder,
		logger:   logger,
		state:    StateInitialized,
	}, nil
}

// State 返回当前运行状态。
func (r *Runner) State() State {
	return r.state
}

// Run 执行完整回放。每次调用都以全新的账本与追踪器起步，
// 样本之间检查取消信号，被取消时返回截至上一个完整样本的 Aborted 报告。
func (r *Runner) Run(ctx context.Context) (Report, error) {
	book, err := ledger.New(r.cfg.InitialCapital, r.logger)
	if err != nil {
		return Report{}, err
	}

	validator := risk.NewValidator(r.cfg.Risk, r.logger)
	daily := risk.NewDailyTracker(r.cfg.Risk, r.logger)
	drawdown := valuation.NewDrawdownTracker(r.cfg.InitialCapital)
	equityCurve := make([]EquityPoint, 0, 256)

	r.state = StateRunning

	for {
		if ctx.Err() != nil {
			r.state = StateAborted
			return r.buildReport(book, drawdown, equityCurve), ctx.Err()
		}

		sample, ok, err := r.provider.Next(ctx)
		if err != nil {
			r.state = StateAborted
			return r.buildReport(book, drawdown, equityCurve), err
		}
		if !ok {
			break
		}

		valuation.MarkToMarket(book, sample.Prices)

		summary := r.currentSummary(book, sample, drawdown)
		dailyStatus := daily.Update(sample.Timestamp, summary.TotalValue)

		signals, err := r.strategy.Evaluate(ctx, sample, summary)
		if err != nil {
			// 先落下最后一个一致的净值点再向上抛错，账本不会停在变更中途。
			point := EquityPoint{Timestamp: sample.Timestamp, TotalValue: summary.TotalValue}
			equityCurve = append(equityCurve, point)
			drawdown.Observe(summary.TotalValue)
			r.state = StateAborted
			return r.buildReport(book, drawdown, equityCurve), fmt.Errorf("%w: %v", ErrStrategyFailed, err)
		}

		for _, signal := range signals {
			if r.executeSignal(book, validator, signal, sample, summary, dailyStatus) {
				// 账本已变更，同一样本内的后续信号必须对最新状态校验。
				summary = r.currentSummary(book, sample, drawdown)
			}
		}

		after := valuation.Summarize(book.Snapshot(), sample.Prices, sample.Timestamp)
		point := EquityPoint{Timestamp: sample.Timestamp, TotalValue: after.TotalValue}
		equityCurve = append(equityCurve, point)
		after.CurrentDrawdownPct, after.MaxDrawdownPct = drawdown.Observe(after.TotalValue)

		if r.recorder != nil {
			r.recorder.RecordEquity(ctx, point)
		}

		alerts := risk.CheckThresholds(after, daily.Status(), r.cfg.Risk)
		if len(alerts) > 0 && r.recorder != nil {
			r.recorder.RecordAlerts(ctx, alerts)
		}
	}

	r.state = StateCompleted
	report := r.buildReport(book, drawdown, equityCurve)

	r.logger.Info("回测完成",
		zap.String("strategy", r.strategy.Name()),
		zap.Int("total_trades", report.TotalTrades),
		zap.Float64("total_return_pct", report.TotalReturnPct),
		zap.Float64("max_drawdown_pct", report.MaxDrawdownPct),
		zap.Float64("final_value", report.FinalValue),
	)

	return report, nil
}

// currentSummary 对账本做一次只读估值并补上回撤追踪器的读数。
func (r *Runner) currentSummary(book *ledger.Ledger, sample market.Sample, drawdown *valuation.DrawdownTracker) valuation.Summary {
	summary := valuation.Summarize(book.Snapshot(), sample.Prices, sample.Timestamp)
	summary.CurrentDrawdownPct = drawdown.Current()
	summary.MaxDrawdownPct = drawdown.Max()
	return summary
}

// executeSignal 执行单个信号，返回账本是否发生变更。
// 被风控拒绝或账本返回错误的信号对当前样本是无操作，回放继续推进。
func (r *Runner) executeSignal(book *ledger.Ledger, validator *risk.Validator, signal strategy.Signal, sample market.Sample, summary valuation.Summary, dailyStatus risk.DailyStatus) bool {
	if signal.Action == strategy.ActionHold {
		return false
	}

	price, ok := sample.Price(signal.Symbol)
	if !ok || price <= 0 {
		r.logger.Debug("信号缺少有效价格，跳过",
			zap.String("symbol", signal.Symbol),
			zap.String("action", string(signal.Action)),
		)
		return false
	}

	switch signal.Action {
	case strategy.ActionBuy:
		size := signal.Size
		if size <= 0 {
			// 策略未指定数量时采用风控的建议仓位。
			size = validator.RecommendSize(price, summary.TotalValue)
			if size <= 0 {
				return false
			}
		}

		proposed := risk.ProposedTrade{
			Symbol: signal.Symbol,
			Side:   ledger.SideLong,
			Size:   size,
			Price:  price,
		}
		result := validator.Validate(proposed, summary, dailyStatus)
		if !result.Valid {
			r.logger.Debug("信号被风控拒绝",
				zap.String("symbol", signal.Symbol),
				zap.Strings("rejections", result.Rejections),
			)
			return false
		}

		if _, err := book.OpenTrade(signal.Symbol, ledger.SideLong, size, price, r.strategy.Name(), signal.Confidence, sample.Timestamp); err != nil {
			r.logger.Debug("开仓失败", zap.String("symbol", signal.Symbol), zap.Error(err))
			return false
		}
		return true

	case strategy.ActionSell:
		position, found := book.OpenPositionBySymbol(signal.Symbol)
		if !found {
			r.logger.Debug("无对应持仓的卖出信号，跳过", zap.String("symbol", signal.Symbol))
			return false
		}
		if _, err := book.CloseTrade(position.ID, price, sample.Timestamp); err != nil {
			r.logger.Debug("平仓失败", zap.String("trade_id", position.ID), zap.Error(err))
			return false
		}
		return true
	}

	return false
}

func (r *Runner) buildReport(book *ledger.Ledger, drawdown *valuation.DrawdownTracker, equityCurve []EquityPoint) Report {
	history := book.History()

	closedPnlPcts := make([]float64, 0, len(history))
	winning := 0
	losing := 0
	for _, trade := range history {
		if !trade.Closed {
			continue
		}
		closedPnlPcts = append(closedPnlPcts, trade.PnlPct)
		if trade.Pnl > 0 {
			winning++
		} else {
			losing++
		}
	}

	winRate := 0.0
	if closed := winning + losing; closed > 0 {
		winRate = float64(winning) / float64(closed) * 100
	}

	finalValue := r.cfg.InitialCapital
	if len(equityCurve) > 0 {
		finalValue = equityCurve[len(equityCurve)-1].TotalValue
	}

	return Report{
		State:          r.state,
		InitialCapital: r.cfg.InitialCapital,
		FinalValue:     finalValue,
		TotalTrades:    len(history),
		WinningTrades:  winning,
		LosingTrades:   losing,
		WinRate:        winRate,
		TotalReturnPct: (finalValue - r.cfg.InitialCapital) / r.cfg.InitialCapital * 100,
		MaxDrawdownPct: drawdown.Max(),
		SharpeRatio:    valuation.SharpeRatio(closedPnlPcts),
		EquityCurve:    equityCurve,
		Trades:         history,
	}
}
