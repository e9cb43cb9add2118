package risk

import (
	"fmt"
	"math"

	"papertrader/internal/config"
	"papertrader/internal/valuation"
)

// Severity 表示告警级别。
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Alert 为一条风险告警，仅作输出，投递由外部协作方负责。
type Alert struct {
	Kind        CheckKind `json:"kind"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	MetricValue float64   `json:"metric_value"`
	Threshold   float64   `json:"threshold"`
}

// 预警系数：指标达到限额的该比例即发出预警，便于外部在硬性违规前介入。
const warnRatio = 0.8

// CheckThresholds 在每次估值更新后检查风控阈值，返回触发的告警。
// 无状态：既不存储也不去重，限额达到八成即预警，触达限额为高级别告警。
func CheckThresholds(summary valuation.Summary, daily DailyStatus, cfg config.RiskConfig) []Alert {
	alerts := make([]Alert, 0, 3)

	dailyLimit := summary.InitialCapital * cfg.MaxDailyLossPct / 100
	if dailyLimit > 0 {
		lossAmount := math.Abs(daily.PnlAmount)
		switch {
		case lossAmount >= dailyLimit:
			alerts = append(alerts, Alert{
				Kind:        CheckDailyLoss,
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("当日损益 %.4f 已触达限额 %.4f", daily.PnlAmount, dailyLimit),
				MetricValue: lossAmount,
				Threshold:   dailyLimit,
			})
		case lossAmount >= dailyLimit*warnRatio:
			alerts = append(alerts, Alert{
				Kind:        CheckDailyLoss,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("当日损益 %.4f 已达限额 %.4f 的80%%", daily.PnlAmount, dailyLimit),
				MetricValue: lossAmount,
				Threshold:   dailyLimit,
			})
		}
	}

	if cfg.MaxDrawdownPct > 0 {
		dd := summary.CurrentDrawdownPct
		switch {
		case dd >= cfg.MaxDrawdownPct:
			alerts = append(alerts, Alert{
				Kind:        CheckDrawdown,
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("组合回撤 %.2f%% 已触达上限 %.2f%%", dd, cfg.MaxDrawdownPct),
				MetricValue: dd,
				Threshold:   cfg.MaxDrawdownPct,
			})
		case dd >= cfg.MaxDrawdownPct*warnRatio:
			alerts = append(alerts, Alert{
				Kind:        CheckDrawdown,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("组合回撤 %.2f%% 已达上限 %.2f%% 的80%%", dd, cfg.MaxDrawdownPct),
				MetricValue: dd,
				Threshold:   cfg.MaxDrawdownPct,
			})
		}
	}

	if cfg.MaxTotalExposurePct > 0 && summary.TotalValue > 0 {
		exposurePct := summary.PositionsValue / summary.TotalValue * 100
		switch {
		case exposurePct >= cfg.MaxTotalExposurePct:
			alerts = append(alerts, Alert{
				Kind:        CheckExposure,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("总敞口 %.2f%% 已触达上限 %.2f%%", exposurePct, cfg.MaxTotalExposurePct),
				MetricValue: exposurePct,
				Threshold:   cfg.MaxTotalExposurePct,
			})
		case exposurePct >= cfg.MaxTotalExposurePct*warnRatio:
			alerts = append(alerts, Alert{
				Kind:        CheckExposure,
				Severity:    SeverityLow,
				Message:     fmt.Sprintf("总敞口 %.2f%% 已达上限 %.2f%% 的80%%", exposurePct, cfg.MaxTotalExposurePct),
				MetricValue: exposurePct,
				Threshold:   cfg.MaxTotalExposurePct,
			})
		}
	}

	return alerts
}
