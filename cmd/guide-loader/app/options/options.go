// Package options contains flags and options for guide-loader.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/guidebot/internal/guidebot"
	"github.com/kart-io/guidebot/pkg/infra/app"
	cacheopts "github.com/kart-io/guidebot/pkg/options/cache"
	corpusopts "github.com/kart-io/guidebot/pkg/options/corpus"
	dbopts "github.com/kart-io/guidebot/pkg/options/database"
	llmopts "github.com/kart-io/guidebot/pkg/options/llm"
	logopts "github.com/kart-io/guidebot/pkg/options/logger"
	mongoopts "github.com/kart-io/guidebot/pkg/options/mongodb"
	storeopts "github.com/kart-io/guidebot/pkg/options/store"
)

// LoaderOptions contains the configuration options for guide-loader.
// Section names match the guidebot server so both read the same config file.
type LoaderOptions struct {
	LogOptions       *logopts.Options         `json:"log" mapstructure:"log"`
	StoreOptions     *storeopts.Options       `json:"store" mapstructure:"store"`
	MongoDBOptions   *mongoopts.Options       `json:"mongodb" mapstructure:"mongodb"`
	DatabaseOptions  *dbopts.Options          `json:"database" mapstructure:"database"`
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	CacheOptions     *cacheopts.Options       `json:"cache" mapstructure:"cache"`
	CorpusOptions    *corpusopts.Options      `json:"corpus" mapstructure:"corpus"`
}

var _ app.CliOptions = (*LoaderOptions)(nil)

// NewLoaderOptions creates a LoaderOptions instance with default values.
func NewLoaderOptions() *LoaderOptions {
	return &LoaderOptions{
		LogOptions:       logopts.NewOptions(),
		StoreOptions:     storeopts.NewOptions(),
		MongoDBOptions:   mongoopts.NewOptions(),
		DatabaseOptions:  dbopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		CorpusOptions:    corpusopts.NewOptions(),
	}
}

// Flags returns flags grouped by section.
func (o *LoaderOptions) Flags() (fss app.NamedFlagSets) {
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.MongoDBOptions.AddFlags(fss.FlagSet("mongodb"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("database"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.CorpusOptions.AddFlags(fss.FlagSet("corpus"))
	return fss
}

// Complete completes all the required options.
func (o *LoaderOptions) Complete() error {
	if err := o.StoreOptions.Complete(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := o.MongoDBOptions.Complete(); err != nil {
		return fmt.Errorf("mongodb: %w", err)
	}
	if err := o.DatabaseOptions.Complete(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return o.CorpusOptions.Complete()
}

// Validate checks the options. The memory backend is rejected since nothing
// would outlive the process.
func (o *LoaderOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	switch o.StoreOptions.Backend {
	case storeopts.BackendMemory:
		errs = append(errs, fmt.Errorf("store.backend %q is not persistent, use mongodb or sql", o.StoreOptions.Backend))
	case storeopts.BackendMongoDB:
		errs = append(errs, o.MongoDBOptions.Validate()...)
	case storeopts.BackendSQL:
		errs = append(errs, o.DatabaseOptions.Validate()...)
	}
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)
	errs = append(errs, o.CorpusOptions.Validate()...)

	return utilerrors.NewAggregate(errs)
}

// Config builds a guidebot.LoaderConfig based on LoaderOptions.
func (o *LoaderOptions) Config() *guidebot.LoaderConfig {
	return &guidebot.LoaderConfig{
		StorageConfig: guidebot.StorageConfig{
			StoreOptions:     o.StoreOptions,
			MongoDBOptions:   o.MongoDBOptions,
			DatabaseOptions:  o.DatabaseOptions,
			EmbeddingOptions: o.EmbeddingOptions,
			CacheOptions:     o.CacheOptions,
			CorpusOptions:    o.CorpusOptions,
		},
		LogOptions: o.LogOptions,
	}
}
