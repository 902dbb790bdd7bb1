// Package auth defines the verified caller identity shared by the HTTP
// middleware and the business layer.
package auth

import "context"

// Claims is the verified claim set of a caller.
type Claims struct {
	// Subject is the sub claim.
	Subject string `json:"sub,omitempty"`

	// Issuer is the iss claim.
	Issuer string `json:"iss,omitempty"`

	// Audience is the aud claim.
	Audience []string `json:"aud,omitempty"`

	// ExpiresAt is the exp claim (Unix seconds), 0 when absent.
	ExpiresAt int64 `json:"exp,omitempty"`

	// IssuedAt is the iat claim (Unix seconds), 0 when absent.
	IssuedAt int64 `json:"iat,omitempty"`

	// ID is the jti claim.
	ID string `json:"jti,omitempty"`

	// PhoneNumber is the delivery address used by the messaging relay.
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// Authenticator verifies a raw credential and returns its claims.
type Authenticator interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}
