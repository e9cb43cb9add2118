package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"papertrader/internal/backtest"
	"papertrader/internal/config"
	"papertrader/internal/feed"
	"papertrader/internal/journal"
	"papertrader/internal/log"
	"papertrader/internal/store"
	"papertrader/internal/strategy"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	journalSvc, err := journal.NewService(sqliteStore, logger)
	if err != nil {
		logger.Error("初始化流水服务失败", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := feed.NewClient(cfg.Feed, logger)
	if err != nil {
		logger.Error("初始化数据源失败", zap.Error(err))
		os.Exit(1)
	}

	loader, err := feed.NewHistoryLoader(client, logger)
	if err != nil {
		logger.Error("初始化历史加载器失败", zap.Error(err))
		os.Exit(1)
	}

	provider, err := loader.Load(ctx, cfg.Backtest)
	if err != nil {
		logger.Error("预载历史数据失败", zap.Error(err))
		os.Exit(1)
	}

	strat, err := buildStrategy(cfg, logger)
	if err != nil {
		logger.Error("初始化策略失败", zap.Error(err))
		os.Exit(1)
	}

	runner, err := backtest.NewRunner(backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		Risk:           cfg.Risk,
	}, provider, strat, journalSvc, logger)
	if err != nil {
		logger.Error("初始化回测失败", zap.Error(err))
		os.Exit(1)
	}

	report, runErr := runner.Run(ctx)

	if err := journalSvc.RecordTrades(context.Background(), report.Trades); err != nil {
		logger.Warn("落盘成交历史失败", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("回测异常终止", zap.Error(runErr), zap.String("state", string(report.State)))
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		logger.Warn("输出回测报告失败", zap.Error(err))
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func buildStrategy(cfg *config.Config, logger *zap.Logger) (strategy.Strategy, error) {
	switch strings.ToLower(cfg.Strategy.Kind) {
	case config.StrategyKindOpenAI:
		return strategy.NewLLM(cfg.OpenAI, logger)
	default:
		return strategy.NewCrossover(cfg.Backtest.Symbols[0], cfg.Strategy, logger)
	}
}
