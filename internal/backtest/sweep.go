package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"papertrader/internal/market"
	"papertrader/internal/strategy"
)

// Variant 描述参数扫描中的一次独立回测。
// 每个变体必须携带独立的数据提供者与策略实例，运行之间不共享可变状态。
type Variant struct {
	Name     string
	Config   Config
	Provider market.SampleProvider
	Strategy strategy.Strategy
}

// SweepResult 为单个变体的回测产出。
type SweepResult struct {
	Name   string `json:"name"`
	Report Report `json:"report"`
}

// RunSweep 并发运行多个相互隔离的回测，按输入顺序返回结果。
// 任何一个变体出错即取消其余变体并返回首个错误。
func RunSweep(ctx context.Context, variants []Variant, concurrency int, logger *zap.Logger) ([]SweepResult, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("backtest: 参数扫描至少需要一个变体")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]SweepResult, len(variants))

	group, groupCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}

	for i, variant := range variants {
		i, variant := i, variant
		group.Go(func() error {
			runner, err := NewRunner(variant.Config, variant.Provider, variant.Strategy, nil, logger.With(zap.String("variant", variant.Name)))
			if err != nil {
				return fmt.Errorf("backtest: 变体 %s 初始化失败: %w", variant.Name, err)
			}

			report, err := runner.Run(groupCtx)
			if err != nil {
				return fmt.Errorf("backtest: 变体 %s 运行失败: %w", variant.Name, err)
			}

			results[i] = SweepResult{Name: variant.Name, Report: report}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
