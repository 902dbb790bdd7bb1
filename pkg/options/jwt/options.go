// Package jwt provides JWT verification options.
//
// Configuration Example (YAML):
//
//	jwt:
//	  key: "shared-secret-at-least-32-characters"
//	  signing-method: "HS256"
//	  issuer: ""
//	  audience: []
//	  leeway: "30s"
//
// Environment Variables:
//
//	GUIDEBOT_JWT_KEY            - JWT signing key
//	GUIDEBOT_JWT_SIGNING_METHOD - Signing algorithm
package jwt

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/guidebot/pkg/options"
)

const (
	// DefaultSigningMethod is the default JWT signing algorithm.
	DefaultSigningMethod = "HS256"

	// DefaultExpired is the lifetime of tokens issued by Sign.
	DefaultExpired = 2 * time.Hour

	// MinKeyLength is the minimum required key length for HMAC keys.
	MinKeyLength = 32

	// MaxKeyLength is the maximum allowed key length.
	MaxKeyLength = 256
)

// SupportedSigningMethods contains the accepted HMAC algorithms.
var SupportedSigningMethods = map[string]bool{
	"HS256": true,
	"HS384": true,
	"HS512": true,
}

// Options contains JWT configuration.
type Options struct {
	// Key is the shared HMAC secret.
	Key string `json:"key" mapstructure:"key"`

	// SigningMethod is the JWT signing algorithm (HS256, HS384, HS512).
	SigningMethod string `json:"signing-method" mapstructure:"signing-method"`

	// Issuer, when set, must match the iss claim.
	Issuer string `json:"issuer" mapstructure:"issuer"`

	// Audience, when set, requires one of the values in the aud claim.
	Audience []string `json:"audience" mapstructure:"audience"`

	// Expired is the lifetime of tokens issued by Sign.
	Expired time.Duration `json:"expired" mapstructure:"expired"`

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration `json:"leeway" mapstructure:"leeway"`
}

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		SigningMethod: DefaultSigningMethod,
		Expired:       DefaultExpired,
		Audience:      []string{},
	}
}

// Validate validates the JWT options.
func (o *Options) Validate() []error {
	var errs []error

	if !SupportedSigningMethods[o.SigningMethod] {
		errs = append(errs, fmt.Errorf("jwt.signing-method: unsupported signing method %q", o.SigningMethod))
	}

	switch {
	case o.Key == "":
		errs = append(errs, fmt.Errorf("jwt.key is required"))
	case len(o.Key) < MinKeyLength:
		errs = append(errs, fmt.Errorf("jwt.key must be at least %d characters, got: %d", MinKeyLength, len(o.Key)))
	case len(o.Key) > MaxKeyLength:
		errs = append(errs, fmt.Errorf("jwt.key must be at most %d characters, got: %d", MaxKeyLength, len(o.Key)))
	}

	if o.Expired <= 0 {
		errs = append(errs, fmt.Errorf("jwt.expired must be positive, got: %v", o.Expired))
	}
	if o.Leeway < 0 {
		errs = append(errs, fmt.Errorf("jwt.leeway must not be negative, got: %v", o.Leeway))
	}

	return errs
}

// Complete fills in default values for unset fields.
func (o *Options) Complete() error {
	if o.SigningMethod == "" {
		o.SigningMethod = DefaultSigningMethod
	}
	if o.Expired == 0 {
		o.Expired = DefaultExpired
	}
	return nil
}

// AddFlags adds flags for JWT options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "jwt."
	fs.StringVar(&o.Key, p+"key", o.Key,
		"JWT HMAC secret (min 32 chars)")
	fs.StringVar(&o.SigningMethod, p+"signing-method", o.SigningMethod,
		"JWT signing algorithm (HS256, HS384, HS512)")
	fs.StringVar(&o.Issuer, p+"issuer", o.Issuer,
		"Required iss claim, empty to accept any issuer")
	fs.StringSliceVar(&o.Audience, p+"audience", o.Audience,
		"Accepted aud claim values, empty to accept any audience")
	fs.DurationVar(&o.Expired, p+"expired", o.Expired,
		"Lifetime of tokens issued by the token command")
	fs.DurationVar(&o.Leeway, p+"leeway", o.Leeway,
		"Allowed clock skew when validating time claims")
}
