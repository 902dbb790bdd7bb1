// Package relay provides WhatsApp relay options.
//
// Configuration Example (YAML):
//
//	relay:
//	  enabled: true
//	  account-sid: ${TWILIO_ACCOUNT_SID}
//	  auth-token: ${TWILIO_AUTH_TOKEN}
//	  from: "whatsapp:+14155238886"
package relay

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
	"github.com/kart-io/guidebot/pkg/utils/validator"
)

var _ options.IOptions = (*Options)(nil)

// Options 消息转发配置。
type Options struct {
	// Enabled 关闭时 viaWhatsApp 请求只记录 RelayFailed，不外发。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// BaseURL Twilio REST API 根地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// AccountSID Twilio 账户 SID。
	AccountSID string `json:"account-sid" mapstructure:"account-sid"`

	// AuthToken Twilio 认证令牌。
	AuthToken string `json:"-" mapstructure:"auth-token"`

	// From 发送方地址，可带或不带 "whatsapp:" 前缀。
	From string `json:"from" mapstructure:"from"`

	// Timeout 单次发送超时。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Wait 请求等待转发完成的最长时间。
	Wait time.Duration `json:"wait" mapstructure:"wait"`

	// PoolSize 转发协程池容量。
	PoolSize int `json:"pool-size" mapstructure:"pool-size"`

	// BreakerThreshold 连续失败多少次后熔断，0 表示不启用熔断。
	BreakerThreshold int `json:"breaker-threshold" mapstructure:"breaker-threshold"`

	// BreakerTimeout 熔断后恢复探测前的等待时间。
	BreakerTimeout time.Duration `json:"breaker-timeout" mapstructure:"breaker-timeout"`
}

// NewOptions 创建默认配置。
func NewOptions() *Options {
	return &Options{
		Enabled:          false,
		BaseURL:          "https://api.twilio.com",
		Timeout:          10 * time.Second,
		Wait:             15 * time.Second,
		PoolSize:         16,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// AddFlags adds flags for relay options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "relay."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Deliver answers over WhatsApp when requested.")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Twilio REST API base URL.")
	fs.StringVar(&o.AccountSID, p+"account-sid", o.AccountSID, "Twilio account SID.")
	fs.StringVar(&o.AuthToken, p+"auth-token", o.AuthToken, "Twilio auth token.")
	fs.StringVar(&o.From, p+"from", o.From, "Sender WhatsApp number.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Timeout of a single send.")
	fs.DurationVar(&o.Wait, p+"wait", o.Wait, "Longest time a request waits for the relay.")
	fs.IntVar(&o.PoolSize, p+"pool-size", o.PoolSize, "Relay worker pool capacity.")
	fs.IntVar(&o.BreakerThreshold, p+"breaker-threshold", o.BreakerThreshold, "Consecutive failures before the relay circuit opens, 0 to disable.")
	fs.DurationVar(&o.BreakerTimeout, p+"breaker-timeout", o.BreakerTimeout, "Open circuit cool-down.")
}

// Validate validates the relay options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.AccountSID == "" {
		errs = append(errs, fmt.Errorf("relay.account-sid is required when relay is enabled"))
	}
	if o.AuthToken == "" {
		errs = append(errs, fmt.Errorf("relay.auth-token is required when relay is enabled"))
	}
	if o.From == "" {
		errs = append(errs, fmt.Errorf("relay.from is required when relay is enabled"))
	} else if err := validator.Global().ValidateVar(o.From, validator.TagPhone); err != nil {
		errs = append(errs, fmt.Errorf("relay.from must be an international phone number, got: %q", o.From))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("relay.timeout must be positive"))
	}
	if o.Wait < o.Timeout {
		errs = append(errs, fmt.Errorf("relay.wait (%v) must not be shorter than relay.timeout (%v)", o.Wait, o.Timeout))
	}
	if o.PoolSize <= 0 {
		errs = append(errs, fmt.Errorf("relay.pool-size must be positive"))
	}
	if o.BreakerThreshold < 0 {
		errs = append(errs, fmt.Errorf("relay.breaker-threshold must not be negative"))
	}
	return errs
}

// Complete completes the relay options with defaults.
func (o *Options) Complete() error {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.twilio.com"
	}
	if o.Wait <= 0 {
		o.Wait = o.Timeout
	}
	return nil
}
