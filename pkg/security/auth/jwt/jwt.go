// Package jwt implements auth.Authenticator with HMAC-signed JSON Web Tokens.
//
// Usage:
//
//	authn, err := jwt.New(jwt.WithKey("shared-secret-at-least-32-characters"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Verify a bearer token
//	claims, err := authn.Verify(ctx, tokenString)
//	phone := claims.PhoneNumber
package jwt

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/guidebot/pkg/errors"
	jwtopts "github.com/kart-io/guidebot/pkg/options/jwt"
	"github.com/kart-io/guidebot/pkg/security/auth"
)

// JWT implements auth.Authenticator using JSON Web Tokens.
type JWT struct {
	opts   *jwtopts.Options
	method jwt.SigningMethod
	now    func() time.Time
}

// Option is a functional option for JWT authenticator.
type Option func(*JWT)

// New creates a new JWT authenticator.
func New(opts ...Option) (*JWT, error) {
	j := &JWT{
		opts: jwtopts.NewOptions(),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(j)
	}

	if err := j.opts.Complete(); err != nil {
		return nil, fmt.Errorf("complete options: %w", err)
	}
	if errs := j.opts.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("validate options: %w", utilerrors.NewAggregate(errs))
	}

	j.method = jwt.GetSigningMethod(j.opts.SigningMethod)
	if j.method == nil {
		return nil, fmt.Errorf("unsupported signing method: %s", j.opts.SigningMethod)
	}

	return j, nil
}

// WithOptions sets the JWT options.
func WithOptions(opts *jwtopts.Options) Option {
	return func(j *JWT) {
		if opts != nil {
			j.opts = opts
		}
	}
}

// WithKey sets the signing key.
func WithKey(key string) Option {
	return func(j *JWT) {
		j.opts.Key = key
	}
}

// WithSigningMethod sets the signing algorithm.
func WithSigningMethod(method string) Option {
	return func(j *JWT) {
		j.opts.SigningMethod = method
	}
}

// WithIssuer requires the iss claim to match.
func WithIssuer(issuer string) Option {
	return func(j *JWT) {
		j.opts.Issuer = issuer
	}
}

// WithAudience requires one of the values in the aud claim.
func WithAudience(audience ...string) Option {
	return func(j *JWT) {
		j.opts.Audience = audience
	}
}

// WithExpired sets the lifetime of issued tokens.
func WithExpired(d time.Duration) Option {
	return func(j *JWT) {
		j.opts.Expired = d
	}
}

// Sign issues a token for subject carrying the given phone number claim.
// The service only verifies tokens; Sign exists for operators and tests.
func (j *JWT) Sign(_ context.Context, subject, phoneNumber string) (string, error) {
	now := j.now()

	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}

	claims := &customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.opts.Expired)),
			NotBefore: jwt.NewNumericDate(now),
			ID:        tokenID,
		},
		PhoneNumber: phoneNumber,
	}
	if len(j.opts.Audience) > 0 {
		claims.Audience = j.opts.Audience
	}

	tokenString, err := jwt.NewWithClaims(j.method, claims).SignedString([]byte(j.opts.Key))
	if err != nil {
		return "", errors.ErrInternal.WithCause(err).WithMessage("failed to sign token")
	}
	return tokenString, nil
}

// Verify validates the token and returns the claims.
func (j *JWT) Verify(_ context.Context, tokenString string) (*auth.Claims, error) {
	if tokenString == "" {
		return nil, errors.ErrUnauthorized.WithMessage("token is empty")
	}

	// 时间类声明在下面按 leeway 手动校验
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &customClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(j.opts.Key), nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}
	if !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	if err := j.validateClaims(claims); err != nil {
		return nil, err
	}

	out := &auth.Claims{
		Subject:     claims.Subject,
		Issuer:      claims.Issuer,
		Audience:    claims.Audience,
		ID:          claims.ID,
		PhoneNumber: claims.PhoneNumber,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	return out, nil
}

func (j *JWT) validateClaims(claims *customClaims) *errors.Errno {
	now := j.now()
	leeway := j.opts.Leeway

	if !claims.VerifyExpiresAt(now.Add(-leeway), false) {
		return errors.ErrTokenExpired
	}
	if !claims.VerifyNotBefore(now.Add(leeway), false) {
		return errors.ErrInvalidToken.WithMessage("token not valid yet")
	}
	if !claims.VerifyIssuedAt(now.Add(leeway), false) {
		return errors.ErrInvalidToken.WithMessage("token used before issued")
	}
	if j.opts.Issuer != "" && !claims.VerifyIssuer(j.opts.Issuer, true) {
		return errors.ErrInvalidToken.WithMessage("unexpected issuer")
	}
	if len(j.opts.Audience) > 0 {
		ok := false
		for _, aud := range j.opts.Audience {
			if claims.VerifyAudience(aud, true) {
				ok = true
				break
			}
		}
		if !ok {
			return errors.ErrInvalidToken.WithMessage("unexpected audience")
		}
	}
	return nil
}

// mapParseError maps jwt parse errors to guidebot errors.
func mapParseError(err error) *errors.Errno {
	var ve *jwt.ValidationError
	if !errors.As(err, &ve) {
		return errors.ErrInvalidToken.WithCause(err)
	}

	switch {
	case ve.Errors&jwt.ValidationErrorMalformed != 0:
		return errors.ErrInvalidToken.WithCause(err).WithMessage("malformed token")
	case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
		return errors.ErrInvalidToken.WithCause(err).WithMessage("invalid signature")
	case ve.Errors&jwt.ValidationErrorUnverifiable != 0:
		return errors.ErrInvalidToken.WithCause(err).WithMessage("unverifiable token")
	default:
		return errors.ErrInvalidToken.WithCause(err)
	}
}

// customClaims extends jwt.RegisteredClaims with the delivery address.
type customClaims struct {
	jwt.RegisteredClaims
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// generateTokenID generates a random token ID.
func generateTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.ErrInternal.WithCause(err).WithMessage("failed to generate token ID")
	}
	return hex.EncodeToString(b), nil
}

var _ auth.Authenticator = (*JWT)(nil)
