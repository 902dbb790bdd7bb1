// Package cache provides embedding cache configuration options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
	redisopts "github.com/kart-io/guidebot/pkg/options/redis"
)

var _ options.IOptions = (*Options)(nil)

// Options Embedding 缓存配置。
type Options struct {
	// Enabled 是否启用缓存，默认关闭。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions 创建默认缓存配置。
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       24 * time.Hour,
		KeyPrefix: "guidebot:emb:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags adds flags for cache options to the specified FlagSet.
// Redis flags are nested under the cache section, e.g. --cache.redis.host.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "cache."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Cache embeddings in Redis.")
	fs.DurationVar(&o.TTL, p+"ttl", o.TTL, "Embedding cache TTL.")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Embedding cache key prefix.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, append(append([]string{}, prefixes...), "cache")...)
}

// Validate validates the cache options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got: %v", o.TTL))
	}
	if o.Redis == nil {
		errs = append(errs, fmt.Errorf("cache.redis is required when cache is enabled"))
		return errs
	}
	for _, err := range o.Redis.Validate() {
		errs = append(errs, fmt.Errorf("cache.%w", err))
	}
	return errs
}

// Complete completes the cache options with defaults.
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}
