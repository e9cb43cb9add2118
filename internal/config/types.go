package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了沙盒交易引擎运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// RiskConfig 管理风控限额，引擎自身不修改这些参数。
type RiskConfig struct {
	MaxPositionSizePct  float64 `mapstructure:"max_position_size_pct"`
	MaxDailyLossPct     float64 `mapstructure:"max_daily_loss_pct"`
	MaxDrawdownPct      float64 `mapstructure:"max_portfolio_drawdown_pct"`
	StopLossPct         float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct       float64 `mapstructure:"take_profit_pct"`
	MaxOpenPositions    int     `mapstructure:"max_open_positions"`
	MaxTotalExposurePct float64 `mapstructure:"max_total_exposure_pct"`
	DailyLossResetHour  int     `mapstructure:"daily_loss_reset_hour"`
}

// BacktestConfig 定义回测参数。
type BacktestConfig struct {
	InitialCapital float64  `mapstructure:"initial_capital"`
	Symbols        []string `mapstructure:"symbols"`
	Timeframe      string   `mapstructure:"timeframe"`
	CandleLimit    int      `mapstructure:"candle_limit"`
}

// FeedConfig 描述历史行情数据源连接信息。
type FeedConfig struct {
	Name       string      `mapstructure:"name"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// StrategyConfig 选择并配置回测使用的策略。
type StrategyConfig struct {
	Kind       string  `mapstructure:"kind"`
	FastPeriod int     `mapstructure:"fast_period"`
	SlowPeriod int     `mapstructure:"slow_period"`
	RSIPeriod  int     `mapstructure:"rsi_period"`
	TradeSize  float64 `mapstructure:"trade_size"`
}

// OpenAIConfig 描述大模型策略的调用参数。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// 内置策略类型。
const (
	StrategyKindCrossover = "crossover"
	StrategyKindOpenAI    = "openai"
)

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}

	if c.Risk.MaxPositionSizePct <= 0 || c.Risk.MaxPositionSizePct > 100 {
		err = multierr.Append(err, errors.New("risk.max_position_size_pct 必须位于(0,100]"))
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct > 100 {
		err = multierr.Append(err, errors.New("risk.max_daily_loss_pct 必须位于(0,100]"))
	}
	if c.Risk.MaxDrawdownPct <= 0 || c.Risk.MaxDrawdownPct > 100 {
		err = multierr.Append(err, errors.New("risk.max_portfolio_drawdown_pct 必须位于(0,100]"))
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.StopLossPct > 100 {
		err = multierr.Append(err, errors.New("risk.stop_loss_pct 必须位于(0,100]"))
	}
	if c.Risk.TakeProfitPct <= 0 || c.Risk.TakeProfitPct > 100 {
		err = multierr.Append(err, errors.New("risk.take_profit_pct 必须位于(0,100]"))
	}
	if c.Risk.MaxOpenPositions <= 0 {
		err = multierr.Append(err, errors.New("risk.max_open_positions 必须大于0"))
	}
	if c.Risk.MaxTotalExposurePct <= 0 || c.Risk.MaxTotalExposurePct > 100 {
		err = multierr.Append(err, errors.New("risk.max_total_exposure_pct 必须位于(0,100]"))
	}
	if c.Risk.DailyLossResetHour < 0 || c.Risk.DailyLossResetHour > 23 {
		err = multierr.Append(err, errors.New("risk.daily_loss_reset_hour 必须位于[0,23]"))
	}

	if c.Backtest.InitialCapital <= 0 {
		err = multierr.Append(err, errors.New("backtest.initial_capital 必须大于0"))
	}
	if len(c.Backtest.Symbols) == 0 {
		err = multierr.Append(err, errors.New("backtest.symbols 至少包含一个交易对"))
	}
	if c.Backtest.Timeframe == "" {
		err = multierr.Append(err, errors.New("backtest.timeframe 不能为空"))
	}
	if c.Backtest.CandleLimit <= 0 {
		err = multierr.Append(err, errors.New("backtest.candle_limit 必须大于0"))
	}

	if c.Feed.Name == "" {
		err = multierr.Append(err, errors.New("feed.name 不能为空"))
	}
	if c.Feed.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("feed.retry.max_attempts 必须大于0"))
	}
	if c.Feed.Retry.MinDelay <= 0 || c.Feed.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("feed.retry.delay 必须为正"))
	}
	if c.Feed.Retry.MinDelay > c.Feed.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("feed.retry.min_delay 不能大于 max_delay"))
	}

	switch strings.ToLower(c.Strategy.Kind) {
	case StrategyKindCrossover:
		if c.Strategy.FastPeriod <= 0 || c.Strategy.SlowPeriod <= 0 {
			err = multierr.Append(err, errors.New("strategy.fast_period 与 slow_period 必须大于0"))
		}
		if c.Strategy.FastPeriod >= c.Strategy.SlowPeriod {
			err = multierr.Append(err, errors.New("strategy.fast_period 必须小于 slow_period"))
		}
		if c.Strategy.RSIPeriod <= 0 {
			err = multierr.Append(err, errors.New("strategy.rsi_period 必须大于0"))
		}
	case StrategyKindOpenAI:
		if c.OpenAI.APIKey == "" {
			err = multierr.Append(err, errors.New("openai.api_key 不能为空"))
		}
		if c.OpenAI.Model == "" {
			err = multierr.Append(err, errors.New("openai.model 不能为空"))
		}
		if c.OpenAI.Timeout <= 0 {
			err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("strategy.kind 取值非法: %s", c.Strategy.Kind))
	}
	if c.Strategy.TradeSize < 0 {
		err = multierr.Append(err, errors.New("strategy.trade_size 不能为负"))
	}

	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
