package strategy

import (
	"strings"
	"testing"
	"time"

	"papertrader/internal/market"
	"papertrader/internal/valuation"
)

func TestSignalValidate(t *testing.T) {
	cases := []struct {
		name    string
		signal  Signal
		wantErr bool
	}{
		{"valid buy", Signal{Symbol: "BTC/USDT", Action: ActionBuy, Size: 0.1, Confidence: 0.8}, false},
		{"valid hold zero size", Signal{Symbol: "BTC/USDT", Action: ActionHold}, false},
		{"empty symbol", Signal{Symbol: "  ", Action: ActionBuy, Confidence: 0.5}, true},
		{"unknown action", Signal{Symbol: "BTC/USDT", Action: Action("short"), Confidence: 0.5}, true},
		{"confidence above 1", Signal{Symbol: "BTC/USDT", Action: ActionBuy, Confidence: 1.2}, true},
		{"negative size", Signal{Symbol: "BTC/USDT", Action: ActionBuy, Size: -1, Confidence: 0.5}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.signal.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseSignals_SurroundingText(t *testing.T) {
	content := "好的，以下是我的判断:\n{\"signals\":[{\"symbol\":\"BTC/USDT\",\"action\":\"buy\",\"size\":0,\"confidence\":0.7,\"reason\":\"趋势向上\"}]}\n以上。"

	signals, err := parseSignals(content)
	if err != nil {
		t.Fatalf("parseSignals returned error: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].Symbol != "BTC/USDT" || signals[0].Action != ActionBuy {
		t.Fatalf("unexpected signal: %+v", signals[0])
	}
	if signals[0].Confidence != 0.7 {
		t.Fatalf("expected confidence 0.7, got %f", signals[0].Confidence)
	}
}

func TestParseSignals_NoJSON(t *testing.T) {
	if _, err := parseSignals("抱歉，我无法给出信号。"); err == nil {
		t.Fatalf("expected error for content without JSON")
	}
}

func TestParseSignals_MalformedJSON(t *testing.T) {
	if _, err := parseSignals(`{"signals":[{"symbol":}`); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestBuildPrompt(t *testing.T) {
	sample := market.Sample{
		Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Prices:    map[string]float64{"BTC/USDT": 50000},
		Volumes:   map[string]float64{"BTC/USDT": 12.5},
	}
	summary := valuation.Summary{TotalValue: 10000, Cash: 10000}

	prompt, err := BuildPrompt(sample, summary)
	if err != nil {
		t.Fatalf("BuildPrompt returned error: %v", err)
	}
	if !strings.Contains(prompt, "BTC/USDT") {
		t.Fatalf("prompt missing symbol: %s", prompt)
	}
	if !strings.Contains(prompt, `"signals"`) {
		t.Fatalf("prompt missing output schema")
	}
}
