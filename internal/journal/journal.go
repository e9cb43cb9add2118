package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"papertrader/internal/backtest"
	"papertrader/internal/ledger"
	"papertrader/internal/risk"
	"papertrader/internal/store"
)

// Service 将回测产出（成交、净值、告警）持久化到 SQLite。
// 引擎核心不依赖本包；写入失败只记日志，不影响回放。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化流水服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			size REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL,
			pnl REAL,
			pnl_pct REAL,
			strategy TEXT,
			confidence REAL,
			opened_at TEXT NOT NULL,
			closed_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
		`CREATE TABLE IF NOT EXISTS equity_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sampled_at TEXT NOT NULL,
			total_value REAL NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS risk_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			metric_value REAL NOT NULL,
			threshold REAL NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_risk_alerts_kind ON risk_alerts(kind);`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("journal: 初始化表结构失败: %w", err)
		}
	}

	return nil
}

// RecordEquity 写入单个净值点。
func (s *Service) RecordEquity(ctx context.Context, point backtest.EquityPoint) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO equity_points (sampled_at, total_value) VALUES (?, ?)`,
		point.Timestamp.UTC().Format(time.RFC3339), point.TotalValue,
	)
	if err != nil {
		s.logger.Warn("记录净值点失败", zap.Error(err))
	}
}

// RecordAlerts 写入一批风险告警。
func (s *Service) RecordAlerts(ctx context.Context, alerts []risk.Alert) {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, alert := range alerts {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO risk_alerts (kind, severity, message, metric_value, threshold, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			string(alert.Kind), string(alert.Severity), alert.Message, alert.MetricValue, alert.Threshold, now,
		)
		if err != nil {
			s.logger.Warn("记录风险告警失败", zap.Error(err))
		}
	}
}

// RecordTrades 在回测结束后落盘全部成交历史。
func (s *Service) RecordTrades(ctx context.Context, trades []ledger.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: 开启事务失败: %w", err)
	}

	for _, trade := range trades {
		var exitPrice, pnl, pnlPct interface{}
		var closedAt interface{}
		if trade.Closed {
			exitPrice = trade.ExitPrice
			pnl = trade.Pnl
			pnlPct = trade.PnlPct
			closedAt = trade.ClosedAt.UTC().Format(time.RFC3339)
		}

		_, execErr := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO trades
			 (trade_id, symbol, side, size, entry_price, exit_price, pnl, pnl_pct, strategy, confidence, opened_at, closed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trade.ID, trade.Symbol, string(trade.Side), trade.Size, trade.EntryPrice,
			exitPrice, pnl, pnlPct, trade.Strategy, trade.Confidence,
			trade.OpenedAt.UTC().Format(time.RFC3339), closedAt,
		)
		if execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("journal: 写入成交记录失败: %w", execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: 提交事务失败: %w", err)
	}

	return nil
}

// ListAlerts 按类型查询最近的告警，kind 为空时返回全部。
func (s *Service) ListAlerts(ctx context.Context, kind risk.CheckKind, limit int) ([]risk.Alert, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT kind, severity, message, metric_value, threshold FROM risk_alerts`
	args := make([]interface{}, 0, 2)
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询告警失败: %w", err)
	}
	defer rows.Close()

	alerts := make([]risk.Alert, 0, limit)
	for rows.Next() {
		var alert risk.Alert
		var kindStr, severityStr string
		if err := rows.Scan(&kindStr, &severityStr, &alert.Message, &alert.MetricValue, &alert.Threshold); err != nil {
			return nil, fmt.Errorf("journal: 读取告警失败: %w", err)
		}
		alert.Kind = risk.CheckKind(kindStr)
		alert.Severity = risk.Severity(severityStr)
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 遍历告警失败: %w", err)
	}

	return alerts, nil
}
