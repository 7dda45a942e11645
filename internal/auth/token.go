package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims extends the registered JWT claims with the token kind. The user id
// travels in the standard Subject claim.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

// Issuer mints and verifies the access/refresh token pair. Each kind is
// signed with its own secret and TTL, so an access token can never pass as a
// refresh token and vice versa.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("token signing secrets are not configured")
	}
	if accessSecret == refreshSecret {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}

	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// Issue mints a fresh pair for the user. It has no persistence side effect;
// storing the refresh token is the caller's job.
func (i *Issuer) Issue(userID string) (TokenPair, error) {
	access, err := i.sign(userID, tokenTypeAccess, i.accessSecret, i.accessTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := i.sign(userID, tokenTypeRefresh, i.refreshSecret, i.refreshTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess returns the user id carried by a valid access token.
func (i *Issuer) VerifyAccess(token string) (string, error) {
	return i.verify(token, tokenTypeAccess, i.accessSecret)
}

// VerifyRefresh returns the user id carried by a cryptographically valid
// refresh token. It says nothing about whether the token is still the
// persisted one; that comparison belongs to the rotation protocol.
func (i *Issuer) VerifyRefresh(token string) (string, error) {
	return i.verify(token, tokenTypeRefresh, i.refreshSecret)
}

func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }
func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }

func (i *Issuer) sign(userID, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := i.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps consecutive issuances distinct even inside
			// the same second; rotation relies on old != new.
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
	})

	return token.SignedString(secret)
}

func (i *Issuer) verify(tokenStr, wantType string, secret []byte) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return i.now()
	}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenType != wantType || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
