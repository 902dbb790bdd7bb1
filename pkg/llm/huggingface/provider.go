// Package huggingface 提供 HuggingFace Inference 端点的 Embedding 供应商实现。
// 默认模型为多语言的 paraphrase-multilingual-MiniLM-L12-v2，中英阿文本共享同一向量空间。
package huggingface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kart-io/guidebot/pkg/llm"
	"github.com/kart-io/guidebot/pkg/utils/httpclient"
)

// ProviderName 是 HuggingFace 供应商的名称标识符
const ProviderName = "huggingface"

// DefaultEndpoint 默认 Embedding 端点。
const DefaultEndpoint = "https://api.huggingface.co/models/sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"

func init() {
	llm.RegisterEmbeddingProvider(ProviderName, func(config map[string]any) (llm.EmbeddingProvider, error) {
		return NewProvider(config)
	})
}

// ErrEmptyEmbedding 端点返回的向量缺失或为空。
var ErrEmptyEmbedding = errors.New("huggingface: 响应中缺少 embedding 字段")

// Config HuggingFace 供应商配置。
type Config struct {
	// BaseURL 完整的模型端点地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey HuggingFace API Token，为空时不发送 Authorization 头。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数，默认 0，重试策略交给调用方。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    DefaultEndpoint,
		Timeout:    10 * time.Second,
		MaxRetries: 0,
	}
}

// Provider HuggingFace 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 HuggingFace 供应商。
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
		return nil, fmt.Errorf("huggingface: base_url 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 HuggingFace 供应商。
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

// embeddingRequest 请求体。
type embeddingRequest struct {
	Inputs string `json:"inputs"`
}

// embeddingResponse 响应体。
type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed 为单个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embeddingResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL, p.headers(), embeddingRequest{Inputs: text}, &resp); err != nil {
		return nil, fmt.Errorf("huggingface: embedding 请求失败: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return resp.Embedding, nil
}

// headers 构造请求头。
func (p *Provider) headers() http.Header {
	h := http.Header{}
	if p.config.APIKey != "" {
		h.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	return h
}

var _ llm.EmbeddingProvider = (*Provider)(nil)
