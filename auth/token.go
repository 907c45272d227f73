/*
token.go - Bearer token issuing and verification

PURPOSE:
  Stands in for the external identity provider. A token proves WHO the
  caller is (subject + email); WHAT they may do comes from the stored
  profile, resolved afterwards by cleaning.SessionResolver.

TOKENS:
  HS256 JWT with sub, email, iat and exp. Only HS256 is accepted on
  verification.

REVOCATION:
  A token whose iat is not after the subject's revocation instant is
  rejected. Revocation happens when a verified identity turns out to have
  no profile (see revoker.go).

SEE ALSO:
  - revoker.go: Memory and Redis revocation lists
  - api/middleware.go: Authenticate middleware
  - cmd/token: CLI issuing tokens for local use
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, expired and badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRevoked is returned for tokens issued before a session termination.
	ErrRevoked = errors.New("session revoked")
)

const issuerName = "operations-management-system"

// Claims carried by every token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// =============================================================================
// ISSUER
// =============================================================================

type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer signs tokens valid for ttl.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Issuer{key: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces time.Now, for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue returns a signed token for subject.
func (i *Issuer) Issue(subject, email string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject cannot be empty")
	}
	now := i.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// =============================================================================
// VERIFIER
// =============================================================================

type Verifier struct {
	key     []byte
	revoked Revoker
	now     func() time.Time
}

// NewVerifier checks signatures with secret and consults revoked (may be
// nil) for terminated sessions.
func NewVerifier(secret string, revoked Revoker) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}
	return &Verifier{key: []byte(secret), revoked: revoked, now: time.Now}, nil
}

// WithClock replaces time.Now, for tests.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify parses raw and returns the identity it vouches for.
func (v *Verifier) Verify(ctx context.Context, raw string) (cleaning.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return cleaning.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return cleaning.Identity{}, fmt.Errorf("%w: missing sub or iat", ErrInvalidToken)
	}

	if v.revoked != nil {
		at, ok, err := v.revoked.RevokedAt(ctx, claims.Subject)
		if err != nil {
			return cleaning.Identity{}, err
		}
		// iat has whole-second precision. A token minted in the same
		// second as the termination cannot be ordered against it and is
		// rejected; the client signs in again a second later.
		if ok && !claims.IssuedAt.Time.After(at.Truncate(time.Second)) {
			return cleaning.Identity{}, ErrRevoked
		}
	}
	return cleaning.Identity{Subject: claims.Subject, Email: claims.Email}, nil
}
