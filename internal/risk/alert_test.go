package risk

import (
	"testing"

	"papertrader/internal/valuation"
)

func TestCheckThresholds_Quiet(t *testing.T) {
	summary := valuation.Summary{
		InitialCapital: 10000,
		TotalValue:     10000,
	}

	alerts := CheckThresholds(summary, DailyStatus{}, riskConfig())
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %v", alerts)
	}
}

// 限额的80%即预警，触达限额升级为高级别告警。
func TestCheckThresholds_DailyLoss(t *testing.T) {
	cfg := riskConfig()
	summary := valuation.Summary{InitialCapital: 10000, TotalValue: 9760}

	// 限额 300，亏损 240 恰为80%。
	alerts := CheckThresholds(summary, DailyStatus{PnlAmount: -240}, cfg)
	alert := findAlert(t, alerts, CheckDailyLoss)
	if alert.Severity != SeverityMedium {
		t.Fatalf("expected MEDIUM warning at 80%%, got %s", alert.Severity)
	}
	if alert.Threshold != 300 {
		t.Fatalf("expected threshold 300, got %f", alert.Threshold)
	}

	alerts = CheckThresholds(summary, DailyStatus{PnlAmount: -300}, cfg)
	alert = findAlert(t, alerts, CheckDailyLoss)
	if alert.Severity != SeverityHigh {
		t.Fatalf("expected HIGH at breach, got %s", alert.Severity)
	}

	alerts = CheckThresholds(summary, DailyStatus{PnlAmount: -100}, cfg)
	for _, a := range alerts {
		if a.Kind == CheckDailyLoss {
			t.Fatalf("unexpected daily loss alert below warn level: %+v", a)
		}
	}
}

func TestCheckThresholds_Drawdown(t *testing.T) {
	cfg := riskConfig()

	summary := valuation.Summary{InitialCapital: 10000, TotalValue: 8400, CurrentDrawdownPct: 16}
	alert := findAlert(t, CheckThresholds(summary, DailyStatus{}, cfg), CheckDrawdown)
	if alert.Severity != SeverityMedium {
		t.Fatalf("expected MEDIUM at 80%% of drawdown limit, got %s", alert.Severity)
	}

	summary.CurrentDrawdownPct = 22
	alert = findAlert(t, CheckThresholds(summary, DailyStatus{}, cfg), CheckDrawdown)
	if alert.Severity != SeverityHigh {
		t.Fatalf("expected HIGH at drawdown breach, got %s", alert.Severity)
	}
	if alert.MetricValue != 22 {
		t.Fatalf("expected metric value 22, got %f", alert.MetricValue)
	}
}

func TestCheckThresholds_Exposure(t *testing.T) {
	cfg := riskConfig()

	summary := valuation.Summary{InitialCapital: 10000, TotalValue: 10000, PositionsValue: 5000}
	alert := findAlert(t, CheckThresholds(summary, DailyStatus{}, cfg), CheckExposure)
	if alert.Severity != SeverityLow {
		t.Fatalf("expected LOW exposure warning at 50%%, got %s", alert.Severity)
	}

	summary.PositionsValue = 6500
	alert = findAlert(t, CheckThresholds(summary, DailyStatus{}, cfg), CheckExposure)
	if alert.Severity != SeverityMedium {
		t.Fatalf("expected MEDIUM exposure alert at breach, got %s", alert.Severity)
	}
}

func findAlert(t *testing.T, alerts []Alert, kind CheckKind) Alert {
	t.Helper()
	for _, alert := range alerts {
		if alert.Kind == kind {
			return alert
		}
	}
	t.Fatalf("alert %s not found in %v", kind, alerts)
	return Alert{}
}
