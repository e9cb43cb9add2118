package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"papertrader/internal/config"
	"papertrader/internal/market"
	"papertrader/internal/valuation"
)

// LLM 将大模型作为决策源的策略实现。
// 模型只接收数值化的样本与组合状态，不消费任何文本舆情。
type LLM struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewLLM 使用给定配置创建大模型策略。
func NewLLM(cfg config.OpenAIConfig, logger *zap.Logger) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("strategy: openai api_key 不能为空")
	}
	if cfg.Model == "" {
		return nil, errors.New("strategy: openai model 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return &LLM{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (l *LLM) Name() string {
	return "openai"
}

// Evaluate 根据样本与组合状态向模型请求交易信号。
func (l *LLM) Evaluate(ctx context.Context, sample market.Sample, summary valuation.Summary) ([]Signal, error) {
	prompt, err := BuildPrompt(sample, summary)
	if err != nil {
		return nil, err
	}

	response, err := l.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		l.logger.Error("调用OpenAI失败", zap.Error(err))
		return nil, fmt.Errorf("strategy: 调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, errors.New("strategy: OpenAI 返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	if rawContent == "" {
		return nil, errors.New("strategy: OpenAI 返回内容为空")
	}

	signals, err := parseSignals(rawContent)
	if err != nil {
		l.logger.Error("解析模型信号失败",
			zap.Error(err),
			zap.String("raw_content", rawContent),
		)
		return nil, err
	}

	for _, signal := range signals {
		if err := signal.Validate(); err != nil {
			return nil, fmt.Errorf("strategy: 模型信号非法: %w", err)
		}
	}

	l.logger.Info("模型信号生成成功", zap.Int("signal_count", len(signals)))
	return signals, nil
}

func parseSignals(content string) ([]Signal, error) {
	payload, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var envelope signalEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("strategy: 解析信号JSON失败: %w", err)
	}

	return envelope.Signals, nil
}
