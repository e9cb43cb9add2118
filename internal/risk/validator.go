package risk

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"papertrader/internal/config"
	"papertrader/internal/ledger"
	"papertrader/internal/valuation"
)

// Validator 在每次开仓前执行只读风控校验。
// 五项检查彼此独立且全部执行，调用方一次即可看到所有违规项。
type Validator struct {
	cfg    config.RiskConfig
	logger *zap.Logger
}

// NewValidator 创建风控校验器。
func NewValidator(cfg config.RiskConfig, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		cfg:    cfg,
		logger: logger,
	}
}

// Validate 对一笔待开仓交易进行校验，拒绝原因以数据返回。
func (v *Validator) Validate(trade ProposedTrade, summary valuation.Summary, daily DailyStatus) ValidationResult {
	result := ValidationResult{
		Rejections:      make([]string, 0, 4),
		Recommendations: make([]string, 0, 2),
	}

	tradeValue := trade.Value()

	if summary.TotalValue > 0 {
		sizePct := tradeValue / summary.TotalValue * 100
		if sizePct > v.cfg.MaxPositionSizePct {
			result.Rejections = append(result.Rejections,
				fmt.Sprintf("%s: 交易金额占组合 %.2f%%, 超过上限 %.2f%%", CheckPositionSize, sizePct, v.cfg.MaxPositionSizePct))
		}
	}

	if tradeValue > summary.Cash {
		result.Rejections = append(result.Rejections,
			fmt.Sprintf("%s: 交易金额 %.4f 超过可用现金 %.4f", CheckCapital, tradeValue, summary.Cash))
	}

	if summary.OpenTrades >= v.cfg.MaxOpenPositions {
		result.Rejections = append(result.Rejections,
			fmt.Sprintf("%s: 未平仓数量 %d 已达到上限 %d", CheckPositionCount, summary.OpenTrades, v.cfg.MaxOpenPositions))
	}

	dailyLimit := summary.InitialCapital * v.cfg.MaxDailyLossPct / 100
	if dailyLimit > 0 && math.Abs(daily.PnlAmount) >= dailyLimit {
		result.Rejections = append(result.Rejections,
			fmt.Sprintf("%s: 当日损益 %.4f 已触达限额 %.4f", CheckDailyLoss, daily.PnlAmount, dailyLimit))
	}

	if summary.CurrentDrawdownPct >= v.cfg.MaxDrawdownPct {
		result.Rejections = append(result.Rejections,
			fmt.Sprintf("%s: 当前回撤 %.2f%% 已触达上限 %.2f%%", CheckDrawdown, summary.CurrentDrawdownPct, v.cfg.MaxDrawdownPct))
	}

	result.Valid = len(result.Rejections) == 0
	if !result.Valid {
		v.logger.Debug("风控拒绝开仓",
			zap.String("symbol", trade.Symbol),
			zap.Strings("rejections", result.Rejections),
		)
	}

	// 建议仓位与拒绝与否无关，始终给出，供调用方缩量重试。
	if recommended := v.RecommendSize(trade.Price, summary.TotalValue); recommended > 0 {
		result.RecommendedSize = recommended
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("建议仓位数量 %.8f (基于止损 %.2f%% 的风险测算)", recommended, v.cfg.StopLossPct))
	}

	if v.cfg.MaxTotalExposurePct > 0 && summary.TotalValue > 0 {
		exposurePct := (summary.PositionsValue + tradeValue) / summary.TotalValue * 100
		if exposurePct > v.cfg.MaxTotalExposurePct {
			result.Recommendations = append(result.Recommendations,
				fmt.Sprintf("%s: 成交后总敞口将达 %.2f%%, 超过建议上限 %.2f%%", CheckExposure, exposurePct, v.cfg.MaxTotalExposurePct))
		}
	}

	if v.cfg.TakeProfitPct > 0 {
		takeProfit := trade.Price * (1 + v.cfg.TakeProfitPct/100)
		if trade.Side == ledger.SideShort {
			takeProfit = trade.Price * (1 - v.cfg.TakeProfitPct/100)
		}
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("建议止盈价 %.4f (%.2f%%)", takeProfit, v.cfg.TakeProfitPct))
	}

	return result
}

// RecommendSize 按止损距离计算建议仓位数量，仅作参考不强制执行。
func (v *Validator) RecommendSize(entryPrice, totalValue float64) float64 {
	if entryPrice <= 0 || totalValue <= 0 {
		return 0
	}

	maxPositionValue := totalValue * v.cfg.MaxPositionSizePct / 100
	riskPerUnit := entryPrice * v.cfg.StopLossPct / 100
	if riskPerUnit <= 0 {
		return maxPositionValue / entryPrice
	}

	return math.Min(maxPositionValue/entryPrice, maxPositionValue/riskPerUnit)
}
