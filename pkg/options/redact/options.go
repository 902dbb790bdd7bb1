// Package redact provides the key used to seal user queries before logging.
package redact

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

// MinKeyLength is the minimum accepted secret length.
const MinKeyLength = 16

var _ options.IOptions = (*Options)(nil)

// Options contains the audit sealing secret.
type Options struct {
	// Key is the secret the XChaCha20-Poly1305 key is derived from.
	Key string `json:"-" mapstructure:"key"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{}
}

// AddFlags adds flags for redact options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Key, options.Join(prefixes...)+"redact.key", o.Key,
		"Secret used to encrypt user queries in audit logs.")
}

// Validate validates the redact options.
func (o *Options) Validate() []error {
	if o.Key == "" {
		return []error{fmt.Errorf("redact.key is required")}
	}
	if len(o.Key) < MinKeyLength {
		return []error{fmt.Errorf("redact.key must be at least %d characters, got: %d", MinKeyLength, len(o.Key))}
	}
	return nil
}

// Complete completes the redact options.
func (o *Options) Complete() error {
	return nil
}
