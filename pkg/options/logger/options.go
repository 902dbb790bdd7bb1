// Package logger provides logger configuration options.
//
// Configuration Example (YAML):
//
//	log:
//	  engine: "zap"
//	  level: "INFO"
//	  format: "json"
//	  output-paths: ["stdout"]
package logger

import (
	"fmt"

	"github.com/kart-io/logger"
	"github.com/kart-io/logger/core"
	"github.com/kart-io/logger/option"
	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

// Options holds the subset of option.LogOption exposed as flags.
type Options struct {
	Engine            string   `json:"engine" mapstructure:"engine"`
	Level             string   `json:"level" mapstructure:"level"`
	Format            string   `json:"format" mapstructure:"format"`
	OutputPaths       []string `json:"output-paths" mapstructure:"output-paths"`
	Development       bool     `json:"development" mapstructure:"development"`
	DisableCaller     bool     `json:"disable-caller" mapstructure:"disable-caller"`
	DisableStacktrace bool     `json:"disable-stacktrace" mapstructure:"disable-stacktrace"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	def := option.DefaultLogOption()
	return &Options{
		Engine:            def.Engine,
		Level:             def.Level,
		Format:            def.Format,
		OutputPaths:       def.OutputPaths,
		Development:       def.Development,
		DisableCaller:     def.DisableCaller,
		DisableStacktrace: def.DisableStacktrace,
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "log."
	fs.StringVar(&o.Engine, p+"engine", o.Engine, "Logging engine (zap|slog)")
	fs.StringVar(&o.Level, p+"level", o.Level, "Log level (DEBUG|INFO|WARN|ERROR|FATAL)")
	fs.StringVar(&o.Format, p+"format", o.Format, "Log format (json|console)")
	fs.StringSliceVar(&o.OutputPaths, p+"output-paths", o.OutputPaths, "Output paths for logs")
	fs.BoolVar(&o.Development, p+"development", o.Development, "Enable development mode")
	fs.BoolVar(&o.DisableCaller, p+"disable-caller", o.DisableCaller, "Disable caller detection")
	fs.BoolVar(&o.DisableStacktrace, p+"disable-stacktrace", o.DisableStacktrace, "Disable stacktrace capture")
}

// LogOption converts the options into the logger library's option type.
func (o *Options) LogOption() *option.LogOption {
	lo := option.DefaultLogOption()
	lo.Engine = o.Engine
	lo.Level = o.Level
	lo.Format = o.Format
	if len(o.OutputPaths) > 0 {
		lo.OutputPaths = o.OutputPaths
	}
	lo.Development = o.Development
	lo.DisableCaller = o.DisableCaller
	lo.DisableStacktrace = o.DisableStacktrace
	return lo
}

// Validate validates the logger options.
func (o *Options) Validate() []error {
	if err := o.LogOption().Validate(); err != nil {
		return []error{fmt.Errorf("log: %w", err)}
	}
	return nil
}

// CreateLogger creates a new logger instance based on the options.
func (o *Options) CreateLogger() (core.Logger, error) {
	return logger.New(o.LogOption())
}

// Init initializes the global logger with the options.
func (o *Options) Init() error {
	log, err := o.CreateLogger()
	if err != nil {
		return err
	}
	logger.SetGlobal(log)
	return nil
}
