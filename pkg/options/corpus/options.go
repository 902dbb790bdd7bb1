// Package corpus provides guide corpus loading options.
package corpus

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

// Load strategies.
const (
	StrategySequential = "sequential"
	StrategyPooled     = "pooled"
)

var _ options.IOptions = (*Options)(nil)

// Options 语料加载配置。
type Options struct {
	// File YAML 语料文件，为空时使用内置语料。
	File string `json:"file" mapstructure:"file"`

	// Strategy 加载策略（sequential, pooled）。
	Strategy string `json:"strategy" mapstructure:"strategy"`

	// Concurrency pooled 策略的并发数。
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`

	// Watch 文件变化时重新加载，仅在设置了 File 时生效。
	Watch bool `json:"watch" mapstructure:"watch"`

	// LoadOnStartup 服务启动后在后台加载语料。
	LoadOnStartup bool `json:"load-on-startup" mapstructure:"load-on-startup"`
}

// NewOptions 创建默认配置。
func NewOptions() *Options {
	return &Options{
		Strategy:      StrategySequential,
		Concurrency:   4,
		LoadOnStartup: true,
	}
}

// AddFlags adds flags for corpus options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "corpus."
	fs.StringVar(&o.File, p+"file", o.File, "YAML file replacing the built-in guide passages.")
	fs.StringVar(&o.Strategy, p+"strategy", o.Strategy, "Load strategy (sequential, pooled).")
	fs.IntVar(&o.Concurrency, p+"concurrency", o.Concurrency, "Worker count of the pooled strategy.")
	fs.BoolVar(&o.Watch, p+"watch", o.Watch, "Reload the corpus file when it changes.")
	fs.BoolVar(&o.LoadOnStartup, p+"load-on-startup", o.LoadOnStartup, "Load the corpus in the background after startup.")
}

// Validate validates the corpus options.
func (o *Options) Validate() []error {
	var errs []error
	switch o.Strategy {
	case StrategySequential, StrategyPooled:
	default:
		errs = append(errs, fmt.Errorf("corpus.strategy must be sequential or pooled, got: %q", o.Strategy))
	}
	if o.Strategy == StrategyPooled && o.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("corpus.concurrency must be positive, got: %d", o.Concurrency))
	}
	if o.Watch && o.File == "" {
		errs = append(errs, fmt.Errorf("corpus.watch requires corpus.file"))
	}
	return errs
}

// Complete completes the corpus options.
func (o *Options) Complete() error {
	if o.Strategy == "" {
		o.Strategy = StrategySequential
	}
	return nil
}
