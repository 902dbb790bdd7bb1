// Package rag provides retrieval configuration options.
package rag

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

// DefaultTopK is the number of passages placed into the prompt.
const DefaultTopK = 3

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval configuration.
type Options struct {
	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TopK: DefaultTopK,
	}
}

// AddFlags adds flags for RAG options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"rag.top-k", o.TopK, "Number of guide passages retrieved per query.")
}

// Validate validates the RAG options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	if o.TopK <= 0 {
		return []error{fmt.Errorf("rag.top-k must be positive, got: %d", o.TopK)}
	}
	return nil
}

// Complete completes the RAG options with defaults.
func (o *Options) Complete() error {
	return nil
}
