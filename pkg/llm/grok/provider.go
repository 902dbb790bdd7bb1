// Package grok 提供 x.ai Grok 文本生成供应商实现。
// 端点接收单个 prompt 字段，返回 response 字段。
package grok

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/guidebot/pkg/llm"
	"github.com/kart-io/guidebot/pkg/utils/httpclient"
)

// ProviderName 是 Grok 供应商的名称标识符
const ProviderName = "grok"

// DefaultEndpoint 默认生成端点。
const DefaultEndpoint = "https://api.x.ai/grok"

func init() {
	llm.RegisterGenerationProvider(ProviderName, func(config map[string]any) (llm.GenerationProvider, error) {
		return NewProvider(config)
	})
}

// ErrEmptyResponse 端点返回的 response 缺失或为空。
var ErrEmptyResponse = errors.New("grok: 响应中缺少 response 字段")

// Config Grok 供应商配置。
type Config struct {
	// BaseURL 完整的生成端点地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey Grok API Key。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 5xx 时的最大重试次数。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    DefaultEndpoint,
		Timeout:    30 * time.Second,
		MaxRetries: 0,
	}
}

// Provider Grok 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 Grok 供应商。
func NewProvider(configMap map[string]any) (*Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok {
		cfg.APIKey = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v >= 0 {
		cfg.MaxRetries = v
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("grok: base_url 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Grok 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	headers := http.Header{}
	if p.config.APIKey != "" {
		headers.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	var resp generateResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL, headers, generateRequest{Prompt: prompt}, &resp); err != nil {
		return "", fmt.Errorf("grok: 生成请求失败: %w", err)
	}

	if resp.Response == "" {
		return "", ErrEmptyResponse
	}

	return resp.Response, nil
}

var _ llm.GenerationProvider = (*Provider)(nil)
