package strategy

import (
	"encoding/json"
	"fmt"
	"strings"

	"papertrader/internal/market"
	"papertrader/internal/valuation"
)

const promptTemplate = `你是一个量化交易助手。以下是当前市场样本与组合状态，
请给出下一步操作信号。只允许输出 JSON，格式为:
{"signals":[{"symbol":"...","action":"buy|sell|hold","size":0,"confidence":0.0,"reason":"..."}]}

规则:
- action 只能是 buy / sell / hold。
- size 为0表示交由风控按建议仓位决定数量。
- confidence 位于 [0,1]。
- 不要输出 JSON 以外的任何内容。

## 市场样本
%s

## 组合状态
%s
`

// BuildPrompt 将市场样本与组合估值序列化为模型输入。
func BuildPrompt(sample market.Sample, summary valuation.Summary) (string, error) {
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("strategy: 序列化市场样本失败: %w", err)
	}
	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("strategy: 序列化组合状态失败: %w", err)
	}
	return fmt.Sprintf(promptTemplate, sampleJSON, summaryJSON), nil
}

// signalEnvelope 用于解析模型输出的信号列表。
type signalEnvelope struct {
	Signals []Signal `json:"signals"`
}

// extractJSON 从模型输出中截取首尾花括号之间的JSON。
func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("strategy: 模型输出未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}
