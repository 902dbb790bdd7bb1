// Package llm provides LLM provider configuration options.
//
// Embedding and generation are configured independently:
//
//	embedding:
//	  provider: huggingface
//	  base-url: https://api.huggingface.co/models/sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2
//	  api-key: ${HUGGINGFACE_API_KEY}
//	generation:
//	  provider: grok
//	  base-url: https://api.x.ai/grok
//	  api-key: ${GROK_API_KEY}
package llm

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

const (
	// EmbeddingSection is the config section of the embedding provider.
	EmbeddingSection = "embedding"
	// GenerationSection is the config section of the generation provider.
	GenerationSection = "generation"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 LLM 供应商配置。
type ProviderOptions struct {
	// Provider 供应商名称（huggingface, grok）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL 完整的端点地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey Bearer 令牌。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Timeout 单次请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数，0 表示不重试。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	section string
}

// NewEmbeddingOptions 创建默认 Embedding 供应商配置。
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "huggingface",
		BaseURL:    "https://api.huggingface.co/models/sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2",
		Timeout:    10 * time.Second,
		MaxRetries: 0,
		section:    EmbeddingSection,
	}
}

// NewGenerationOptions 创建默认生成供应商配置。
func NewGenerationOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:   "grok",
		BaseURL:    "https://api.x.ai/grok",
		Timeout:    30 * time.Second,
		MaxRetries: 0,
		section:    GenerationSection,
	}
}

// Section returns the config section name.
func (o *ProviderOptions) Section() string {
	if o.section == "" {
		return EmbeddingSection
	}
	return o.section
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + o.Section() + "."
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Provider name ("+o.Section()+").")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Full endpoint URL.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Bearer token sent to the endpoint.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Per-request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries on 5xx responses, 0 to disable.")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	s := o.Section()
	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("%s.provider is required", s))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("%s.base-url is required", s))
	} else if u, err := url.Parse(o.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s.base-url is not an absolute URL: %q", s, o.BaseURL))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s.timeout must be positive", s))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%s.max-retries must not be negative", s))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return nil
}
