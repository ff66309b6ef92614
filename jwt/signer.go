// Package jwt issues the access/refresh token pair handed out once a login
// OTP verifies. Tokens are HS256-signed; validation of inbound tokens is the
// host's concern and only a minimal parse helper is provided.
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTypeAccess is an exported constant or variable used by the token signer.
	TokenTypeAccess = "access"
	// TokenTypeRefresh is an exported constant or variable used by the token signer.
	TokenTypeRefresh = "refresh"

	minSecretBytes = 32
)

var (
	// ErrTokenInvalid indicates a token failed signature or claim checks.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims are the registered claims plus the token type discriminator.
type Claims struct {
	TokenType string `json:"typ"`
	jwtlib.RegisteredClaims
}

// TokenPair is the issued credential set.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Signer issues token pairs for authenticated users.
type Signer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewSigner validates the secret length and returns a [Signer]. now is the
// injected clock; pass time.Now outside of tests.
func NewSigner(secret []byte, issuer string, accessTTL, refreshTTL time.Duration, now func() time.Time) (*Signer, error) {
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("jwt secret below %d bytes", minSecretBytes)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}

	return &Signer{
		secret:     append([]byte(nil), secret...),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}, nil
}

// IssuePair signs an access and a refresh token for the user.
func (s *Signer) IssuePair(userID string) (TokenPair, error) {
	access, err := s.sign(userID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := s.sign(userID, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Signer) sign(userID, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()

	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies the signature and standard claims of a token and returns its
// claims. The expected token type must match.
func (s *Signer) Parse(token, expectedType string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	}, jwtlib.WithIssuer(s.issuer), jwtlib.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.TokenType != expectedType {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
