// Package store selects the guide store backend.
package store

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

// Supported backends.
const (
	BackendMemory  = "memory"
	BackendMongoDB = "mongodb"
	BackendSQL     = "sql"
)

var _ options.IOptions = (*Options)(nil)

// Options selects where guide passages are kept.
type Options struct {
	// Backend is one of memory, mongodb, sql.
	Backend string `json:"backend" mapstructure:"backend"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{Backend: BackendSQL}
}

// AddFlags adds flags for store options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Backend, options.Join(prefixes...)+"store.backend", o.Backend,
		"Guide store backend (memory, mongodb, sql).")
}

// Validate validates the store options.
func (o *Options) Validate() []error {
	switch o.Backend {
	case BackendMemory, BackendMongoDB, BackendSQL:
		return nil
	default:
		return []error{fmt.Errorf("store.backend must be one of memory, mongodb, sql, got: %q", o.Backend)}
	}
}

// Complete completes the store options.
func (o *Options) Complete() error {
	if o.Backend == "" {
		o.Backend = BackendSQL
	}
	return nil
}
