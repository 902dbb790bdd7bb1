// Package redact seals user text for audit logs.
//
// Each call produces an XChaCha20-Poly1305 ciphertext under a fresh random
// 24-byte nonce. The AEAD key is derived from the configured secret with
// HKDF-SHA256, so operators can use any passphrase length. The record id is
// bound as additional data: a ciphertext cannot be replayed under another id.
//
// Usage:
//
//	sealer, err := redact.New("operator-secret")
//	rec, err := sealer.Seal([]byte(query))
//	logger.Infow("query received", rec.Fields()...)
package redact

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfo = "guidebot/redact/v1"

// ErrEmptyKey is returned by New when no secret is configured.
var ErrEmptyKey = errors.New("redact: key is required")

// Record is a sealed audit entry. Ciphertext and Nonce are base64 (std) encoded.
type Record struct {
	ID         string `json:"id"`
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}

// Fields returns the record as structured logging key/value pairs.
func (r *Record) Fields() []interface{} {
	return []interface{}{
		"record_id", r.ID,
		"ciphertext", r.Ciphertext,
		"nonce", r.Nonce,
	}
}

// Sealer encrypts and decrypts audit records.
type Sealer struct {
	aead cipher.AEAD
	rand io.Reader
}

// New derives the AEAD key from secret and returns a Sealer.
func New(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("redact: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("redact: init cipher: %w", err)
	}

	return &Sealer{aead: aead, rand: rand.Reader}, nil
}

// Seal encrypts plaintext under a fresh nonce and a new record id.
func (s *Sealer) Seal(plaintext []byte) (*Record, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return nil, fmt.Errorf("redact: generate nonce: %w", err)
	}

	id := uuid.NewString()
	ct := s.aead.Seal(nil, nonce, plaintext, []byte(id))

	return &Record{
		ID:         id,
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// Open decrypts a record produced by Seal with the same secret.
func (s *Sealer) Open(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("redact: nil record")
	}
	nonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
	if err != nil {
		return nil, fmt.Errorf("redact: decode nonce: %w", err)
	}
	if len(nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("redact: nonce must be %d bytes, got %d", s.aead.NonceSize(), len(nonce))
	}
	ct, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("redact: decode ciphertext: %w", err)
	}

	pt, err := s.aead.Open(nil, nonce, ct, []byte(rec.ID))
	if err != nil {
		return nil, fmt.Errorf("redact: open: %w", err)
	}
	return pt, nil
}
