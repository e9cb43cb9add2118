package risk

import (
	"math"
	"strings"
	"testing"

	"papertrader/internal/config"
	"papertrader/internal/ledger"
	"papertrader/internal/valuation"
)

func riskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxPositionSizePct:  10,
		MaxDailyLossPct:     3,
		MaxDrawdownPct:      20,
		StopLossPct:         2,
		TakeProfitPct:       4,
		MaxOpenPositions:    5,
		MaxTotalExposurePct: 60,
	}
}

func baseSummary() valuation.Summary {
	return valuation.Summary{
		InitialCapital: 10000,
		Cash:           10000,
		TotalValue:     10000,
	}
}

func TestValidate_AllChecksPass(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	trade := ProposedTrade{Symbol: "BTC/USDT", Side: ledger.SideLong, Size: 0.01, Price: 50000}
	result := validator.Validate(trade, baseSummary(), DailyStatus{})

	if !result.Valid {
		t.Fatalf("expected valid, got rejections: %v", result.Rejections)
	}
	if len(result.Rejections) != 0 {
		t.Fatalf("expected no rejections, got %v", result.Rejections)
	}
	if result.RecommendedSize <= 0 {
		t.Fatalf("expected recommended size > 0")
	}
}

// 交易金额占组合15%，超出10%上限：拒绝但仍附带建议仓位。
func TestValidate_PositionSizeCheck(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	trade := ProposedTrade{Symbol: "BTC/USDT", Side: ledger.SideLong, Size: 0.03, Price: 50000}
	result := validator.Validate(trade, baseSummary(), DailyStatus{})

	if result.Valid {
		t.Fatalf("expected invalid for oversized position")
	}
	if !containsKind(result.Rejections, CheckPositionSize) {
		t.Fatalf("expected position_size rejection, got %v", result.Rejections)
	}
	if result.RecommendedSize <= 0 {
		t.Fatalf("expected recommended size present on rejection")
	}
	if value := result.RecommendedSize * trade.Price; value > 10000*0.10+1e-9 {
		t.Fatalf("recommended size value %f exceeds 10%% of total value", value)
	}
}

func TestValidate_CapitalCheck(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	summary := baseSummary()
	summary.Cash = 400
	summary.TotalValue = 100000 // 规模检查不触发，只有资金检查触发

	trade := ProposedTrade{Symbol: "BTC/USDT", Side: ledger.SideLong, Size: 0.01, Price: 50000}
	result := validator.Validate(trade, summary, DailyStatus{})

	if result.Valid {
		t.Fatalf("expected invalid when trade value exceeds cash")
	}
	if !containsKind(result.Rejections, CheckCapital) {
		t.Fatalf("expected capital rejection, got %v", result.Rejections)
	}
	if containsKind(result.Rejections, CheckPositionSize) {
		t.Fatalf("position size should not reject here: %v", result.Rejections)
	}
}

func TestValidate_PositionCountCheck(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	summary := baseSummary()
	summary.OpenTrades = 5

	trade := ProposedTrade{Symbol: "BTC/USDT", Side: ledger.SideLong, Size: 0.01, Price: 50000}
	result := validator.Validate(trade, summary, DailyStatus{})

	if result.Valid || !containsKind(result.Rejections, CheckPositionCount) {
		t.Fatalf("expected position_count rejection, got %v", result.Rejections)
	}
}

func TestValidate_DailyLossCheck(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	trade := ProposedTrade{Symbol: "BTC/USDT", Side: ledger.SideLong, Size: 0.01, Price: 50000}

	// 亏损达到 initial_capital * 3% = 300 即拒绝。
	result := validator.Validate(trade, baseSummary(), DailyStatus{PnlAmount: -300})
	if result.Valid || !containsKind(result.Rejections, CheckDailyLoss) {
		t.Fatalf("expected daily_loss rejection on loss, got %v", result.Rejections)
	}

	// 检查取绝对值，大幅盈利同样触发。
	result = validator.Validate(trade, baseSummary(), DailyStatus{PnlAmount: 350})
	if result.Valid || !containsKind(result.Rejections, CheckDailyLoss) {
		t.Fatalf("expected daily_loss rejection on abs pnl, got %v", result.Rejections)
	}

	result = validator.Validate(trade, baseSummary(), DailyStatus{PnlAmount: -299})
	if containsKind(result.Rejections, CheckDailyLoss) {
		t.Fatalf("daily_loss should not reject below limit: %v", result.Rejections)
	}
}

func TestValidate_DrawdownCheck(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	summary := baseSummary()
	summary.CurrentDrawdownPct = 20

	trade := ProposedTrade{Symbol: "BTC/USDT", Side: ledger.SideLong, Size: 0.01, Price: 50000}
	result := validator.Validate(trade, summary, DailyStatus{})

	if result.Valid || !containsKind(result.Rejections, CheckDrawdown) {
		t.Fatalf("expected drawdown rejection, got %v", result.Rejections)
	}
}

// 各项检查独立评估，多个违规同时返回。
func TestValidate_MultipleRejections(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	summary := baseSummary()
	summary.OpenTrades = 5
	summary.CurrentDrawdownPct = 25

	trade := ProposedTrade{Symbol: "BTC/USDT", Side: ledger.SideLong, Size: 0.03, Price: 50000}
	result := validator.Validate(trade, summary, DailyStatus{PnlAmount: -500})

	if result.Valid {
		t.Fatalf("expected invalid")
	}
	for _, kind := range []CheckKind{CheckPositionSize, CheckPositionCount, CheckDailyLoss, CheckDrawdown} {
		if !containsKind(result.Rejections, kind) {
			t.Fatalf("expected %s rejection, got %v", kind, result.Rejections)
		}
	}
	if len(result.Rejections) != 4 {
		t.Fatalf("expected 4 rejections, got %d: %v", len(result.Rejections), result.Rejections)
	}
}

func TestRecommendSize_StopLossSizing(t *testing.T) {
	validator := NewValidator(riskConfig(), nil)

	// max_position_value = 1000; risk_per_unit = 50000*2% = 1000；
	// min(1000/50000, 1000/1000) = 0.02。
	got := validator.RecommendSize(50000, 10000)
	if diff := math.Abs(got - 0.02); diff > 1e-12 {
		t.Fatalf("expected recommended size 0.02, got %f", got)
	}

	if got := validator.RecommendSize(0, 10000); got != 0 {
		t.Fatalf("expected 0 for invalid price, got %f", got)
	}
}

func containsKind(messages []string, kind CheckKind) bool {
	for _, message := range messages {
		if strings.HasPrefix(message, string(kind)+":") {
			return true
		}
	}
	return false
}
