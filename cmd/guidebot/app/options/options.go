// Package options contains flags and options for initializing the guidebot server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/guidebot/internal/guidebot"
	"github.com/kart-io/guidebot/pkg/infra/app"
	"github.com/kart-io/guidebot/pkg/infra/tracing"
	cacheopts "github.com/kart-io/guidebot/pkg/options/cache"
	corpusopts "github.com/kart-io/guidebot/pkg/options/corpus"
	dbopts "github.com/kart-io/guidebot/pkg/options/database"
	httpopts "github.com/kart-io/guidebot/pkg/options/http"
	jwtopts "github.com/kart-io/guidebot/pkg/options/jwt"
	llmopts "github.com/kart-io/guidebot/pkg/options/llm"
	logopts "github.com/kart-io/guidebot/pkg/options/logger"
	mongoopts "github.com/kart-io/guidebot/pkg/options/mongodb"
	ragopts "github.com/kart-io/guidebot/pkg/options/rag"
	redactopts "github.com/kart-io/guidebot/pkg/options/redact"
	relayopts "github.com/kart-io/guidebot/pkg/options/relay"
	storeopts "github.com/kart-io/guidebot/pkg/options/store"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracing.Options `json:"tracing" mapstructure:"tracing"`

	// JWTOptions contains bearer token verification configuration.
	JWTOptions *jwtopts.Options `json:"jwt" mapstructure:"jwt"`

	// RedactOptions contains the audit sealing secret.
	RedactOptions *redactopts.Options `json:"redact" mapstructure:"redact"`

	// StoreOptions selects the guide store backend.
	StoreOptions *storeopts.Options `json:"store" mapstructure:"store"`

	// MongoDBOptions is used by the mongodb backend.
	MongoDBOptions *mongoopts.Options `json:"mongodb" mapstructure:"mongodb"`

	// DatabaseOptions is used by the sql backend.
	DatabaseOptions *dbopts.Options `json:"database" mapstructure:"database"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// GenerationOptions contains generation provider configuration.
	GenerationOptions *llmopts.ProviderOptions `json:"generation" mapstructure:"generation"`

	// RAGOptions contains retrieval configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// CacheOptions contains embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// CorpusOptions contains corpus loading configuration.
	CorpusOptions *corpusopts.Options `json:"corpus" mapstructure:"corpus"`

	// RelayOptions contains WhatsApp relay configuration.
	RelayOptions *relayopts.Options `json:"relay" mapstructure:"relay"`
}

var _ app.CliOptions = (*ServerOptions)(nil)

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	tracingOpts := tracing.NewOptions()
	tracingOpts.ServiceName = guidebot.Name
	tracingOpts.ServiceVersion = app.GetVersion()

	return &ServerOptions{
		HTTPOptions:       httpopts.NewOptions(),
		LogOptions:        logopts.NewOptions(),
		TracingOptions:    tracingOpts,
		JWTOptions:        jwtopts.NewOptions(),
		RedactOptions:     redactopts.NewOptions(),
		StoreOptions:      storeopts.NewOptions(),
		MongoDBOptions:    mongoopts.NewOptions(),
		DatabaseOptions:   dbopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		GenerationOptions: llmopts.NewGenerationOptions(),
		RAGOptions:        ragopts.NewOptions(),
		CacheOptions:      cacheopts.NewOptions(),
		CorpusOptions:     corpusopts.NewOptions(),
		RelayOptions:      relayopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss app.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	o.JWTOptions.AddFlags(fss.FlagSet("jwt"))
	o.RedactOptions.AddFlags(fss.FlagSet("redact"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.MongoDBOptions.AddFlags(fss.FlagSet("mongodb"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("database"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.GenerationOptions.AddFlags(fss.FlagSet("generation"))
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.CorpusOptions.AddFlags(fss.FlagSet("corpus"))
	o.RelayOptions.AddFlags(fss.FlagSet("relay"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	completers := []struct {
		name string
		fn   func() error
	}{
		{"http", o.HTTPOptions.Complete},
		{"tracing", o.TracingOptions.Complete},
		{"jwt", o.JWTOptions.Complete},
		{"redact", o.RedactOptions.Complete},
		{"store", o.StoreOptions.Complete},
		{"mongodb", o.MongoDBOptions.Complete},
		{"database", o.DatabaseOptions.Complete},
		{"embedding", o.EmbeddingOptions.Complete},
		{"generation", o.GenerationOptions.Complete},
		{"rag", o.RAGOptions.Complete},
		{"cache", o.CacheOptions.Complete},
		{"corpus", o.CorpusOptions.Complete},
		{"relay", o.RelayOptions.Complete},
	}
	for _, c := range completers {
		if err := c.fn(); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
// Backend specific sections are only checked when that backend is selected.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)
	errs = append(errs, o.JWTOptions.Validate()...)
	errs = append(errs, o.RedactOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	switch o.StoreOptions.Backend {
	case storeopts.BackendMongoDB:
		errs = append(errs, o.MongoDBOptions.Validate()...)
	case storeopts.BackendSQL:
		errs = append(errs, o.DatabaseOptions.Validate()...)
	}
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.GenerationOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.CorpusOptions.Validate()...)
	errs = append(errs, o.RelayOptions.Validate()...)

	if o.RelayOptions.Enabled && o.RelayOptions.Wait >= o.HTTPOptions.RequestTimeout {
		errs = append(errs, fmt.Errorf("relay.wait (%s) must be shorter than http.request-timeout (%s)",
			o.RelayOptions.Wait, o.HTTPOptions.RequestTimeout))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a guidebot.Config based on ServerOptions.
func (o *ServerOptions) Config() (*guidebot.Config, error) {
	return &guidebot.Config{
		StorageConfig: guidebot.StorageConfig{
			StoreOptions:     o.StoreOptions,
			MongoDBOptions:   o.MongoDBOptions,
			DatabaseOptions:  o.DatabaseOptions,
			EmbeddingOptions: o.EmbeddingOptions,
			CacheOptions:     o.CacheOptions,
			CorpusOptions:    o.CorpusOptions,
		},
		HTTPOptions:       o.HTTPOptions,
		LogOptions:        o.LogOptions,
		TracingOptions:    o.TracingOptions,
		JWTOptions:        o.JWTOptions,
		RedactOptions:     o.RedactOptions,
		GenerationOptions: o.GenerationOptions,
		RAGOptions:        o.RAGOptions,
		RelayOptions:      o.RelayOptions,
	}, nil
}
