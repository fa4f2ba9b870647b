// Package auth implements the stateless token service for the Cybether
// dashboard. It issues and verifies HS256-signed JWTs carrying the user ID
// as the subject claim.
//
// Two token kinds exist: short-lived access tokens accepted by [Service.Verify]
// and longer-lived refresh tokens accepted only by [Service.Renew]. The kind
// is recorded in a "type" claim so one can never stand in for the other.
// Tokens are self-contained and never persisted; possession of a token with a
// valid signature and unexpired "exp" claim is the entire proof of identity.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Typed verification failures. Callers map these onto HTTP statuses.
var (
	// ErrMissingToken is returned when the presented token is empty.
	ErrMissingToken = errors.New("auth: token is missing")

	// ErrInvalidToken is returned on signature, format, or claim failures.
	ErrInvalidToken = errors.New("auth: token is invalid")

	// ErrExpiredToken is returned when the token's exp claim has passed.
	ErrExpiredToken = errors.New("auth: token has expired")
)

// Token type claim values.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// claims is the JWT payload for both token kinds. Subject holds the decimal
// user ID; TokenType distinguishes access from refresh tokens.
type claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Service issues and verifies tokens with a shared HMAC secret.
// The zero value is not usable; construct with [NewService].
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService returns a Service that signs with secret and stamps the given
// lifetimes into the exp claim of issued tokens.
func NewService(secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue creates an access/refresh token pair identifying userID.
func (s *Service) Issue(userID int64) (access, refresh string, err error) {
	access, err = s.sign(userID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, err = s.sign(userID, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh token: %w", err)
	}
	return access, refresh, nil
}

// Renew validates refreshToken and returns a fresh access token for the same
// user. An access token presented here is rejected as invalid.
func (s *Service) Renew(refreshToken string) (string, error) {
	userID, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	access, err := s.sign(userID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("renew access token: %w", err)
	}
	return access, nil
}

// Verify validates an access token and returns the user ID it identifies.
// It fails with [ErrMissingToken], [ErrExpiredToken], or [ErrInvalidToken];
// a refresh token presented here is rejected as invalid.
func (s *Service) Verify(token string) (int64, error) {
	return s.parse(token, tokenTypeAccess)
}

// sign builds and signs a token of the given kind.
func (s *Service) sign(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	c := claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// parse verifies the signature, expiry, token type, and subject of token and
// returns the embedded user ID.
func (s *Service) parse(token, wantType string) (int64, error) {
	if token == "" {
		return 0, ErrMissingToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// ParseWithClaims joins signature and claim errors; a bad signature
		// must win over expiry so tampered tokens are never reported as
		// merely expired.
		return 0, ErrInvalidToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, ErrExpiredToken
	default:
		return 0, ErrInvalidToken
	}

	if c.TokenType != wantType {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
