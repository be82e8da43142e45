// Package auth signs and verifies the access and refresh tokens handed to
// Tresorly clients. It is transport agnostic: tokens are opaque strings.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Kind tells access and refresh tokens apart. It is embedded in the claims
// so a token of one kind never verifies as the other even if secrets leak
// or are misconfigured to be equal.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the signed payload of a Tresorly token. The subject id travels
// as the registered "sub" claim and is mirrored into UserID on verification.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string    `json:"-"`
	Email     string    `json:"email"`
	Kind      Kind      `json:"kind"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// TokenService issues and verifies HS256 tokens. Access and refresh tokens
// are signed with different secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccess returns a signed access token for the user.
func (s *TokenService) IssueAccess(userID, email string) (string, error) {
	return s.issue(userID, email, KindAccess, s.accessSecret, s.accessTTL)
}

// IssueRefresh returns a signed refresh token for the user.
func (s *TokenService) IssueRefresh(userID, email string) (string, error) {
	return s.issue(userID, email, KindRefresh, s.refreshSecret, s.refreshTTL)
}

// AccessTTL is the lifetime of access tokens, used for cookie max-age.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL is the lifetime of refresh tokens, used for cookie max-age.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// VerifyAccess checks signature, expiry and kind of an access token.
func (s *TokenService) VerifyAccess(token string) (*Claims, error) {
	return s.verify(token, KindAccess, s.accessSecret)
}

// VerifyRefresh checks signature, expiry and kind of a refresh token.
func (s *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return s.verify(token, KindRefresh, s.refreshSecret)
}

func (s *TokenService) issue(userID, email string, kind Kind, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Kind:  kind,
	})

	return token.SignedString(secret)
}

func (s *TokenService) verify(tokenString string, kind Kind, secret []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	claims.UserID = claims.Subject
	if claims.RegisteredClaims.IssuedAt != nil {
		claims.IssuedAt = claims.RegisteredClaims.IssuedAt.Time
	}
	claims.ExpiresAt = claims.RegisteredClaims.ExpiresAt.Time

	return claims, nil
}
