package provider

import (
	"context"
	"time"

	"pairloop/internal/config"
)

// ModelProvider 是决策模型的统一入口：system+user 进，原始文本出。
type ModelProvider interface {
	ID() string
	Enabled() bool
	Call(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// FromConfig 按配置组装唯一的 OpenAI 兼容 provider；ai.enabled=false 返回 nil。
func FromConfig(cfg config.AIConfig) ModelProvider {
	if !cfg.Enabled {
		return nil
	}
	client := &OpenAIChatClient{
		BaseURL:      cfg.APIURL,
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
		ExtraHeaders: cfg.Headers,
	}
	return NewOpenAIModelProvider(cfg.Provider, true, client)
}

// OpenAIModelProvider 把 OpenAIChatClient 适配到 ModelProvider。
type OpenAIModelProvider struct {
	id      string
	enabled bool
	client  interface {
		CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	}
}

func NewOpenAIModelProvider(id string, enabled bool, client interface {
	CallWithMessages(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}) *OpenAIModelProvider {
	return &OpenAIModelProvider{id: id, enabled: enabled, client: client}
}

func (p *OpenAIModelProvider) ID() string    { return p.id }
func (p *OpenAIModelProvider) Enabled() bool { return p.enabled }
func (p *OpenAIModelProvider) Call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.client.CallWithMessages(ctx, systemPrompt, userPrompt)
}
