package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"papertrader/internal/config"
	"papertrader/internal/market"
)

// candleFetcher 抽象K线拉取，便于在测试中注入假数据源。
type candleFetcher interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int64) ([]market.Candle, error)
}

// HistoryLoader 并发预载多个交易对的历史K线，合并为回放用的切片序列。
type HistoryLoader struct {
	client candleFetcher
	logger *zap.Logger
}

// NewHistoryLoader 创建历史数据加载器。
func NewHistoryLoader(client candleFetcher, logger *zap.Logger) (*HistoryLoader, error) {
	if client == nil {
		return nil, fmt.Errorf("feed: client 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryLoader{
		client: client,
		logger: logger,
	}, nil
}

// Load 按配置拉取各交易对的K线并返回按时间对齐的样本提供者。
func (l *HistoryLoader) Load(ctx context.Context, cfg config.BacktestConfig) (*market.SliceProvider, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("feed: 至少需要一个交易对")
	}

	series := make(map[string][]market.Candle, len(cfg.Symbols))
	var mu sync.Mutex

	start := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)

	for _, symbol := range cfg.Symbols {
		symbol := symbol
		group.Go(func() error {
			candles, err := l.client.FetchCandles(groupCtx, symbol, cfg.Timeframe, int64(cfg.CandleLimit))
			if err != nil {
				return fmt.Errorf("feed: 拉取 %s K线失败: %w", symbol, err)
			}
			mu.Lock()
			series[symbol] = candles
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	samples := market.MergeCandleSeries(series)
	if len(samples) == 0 {
		return nil, fmt.Errorf("feed: 历史数据为空")
	}

	l.logger.Info("历史数据预载完成",
		zap.Strings("symbols", cfg.Symbols),
		zap.String("timeframe", cfg.Timeframe),
		zap.Int("sample_count", len(samples)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return market.NewSliceProvider(samples), nil
}
