// Package auth mints and verifies the HS256 access and refresh tokens used by
// every protected endpoint.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

// ClaimsKey is the request-context key under which the authentication
// middleware stores the verified claims.
const ClaimsKey ctxKey = 1

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	// Refresh marks tokens that may only be exchanged for a new access token.
	Refresh bool `json:"refresh,omitempty"`
}

// Keys holds the signing secrets. Access and refresh tokens are signed with
// separate secrets so a leaked access secret cannot mint refresh tokens.
type Keys struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewKeys(accessSecret, refreshSecret string) (*Keys, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("token secrets must not be empty")
	}
	return &Keys{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

func (k *Keys) NewAccessToken(userID, role string) (string, error) {
	return k.sign(userID, role, false, AccessTokenTTL, k.accessSecret)
}

func (k *Keys) NewRefreshToken(userID, role string) (string, error) {
	return k.sign(userID, role, true, RefreshTokenTTL, k.refreshSecret)
}

func (k *Keys) sign(userID, role string, refresh bool, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    "quikkart",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:    role,
		Refresh: refresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken parses and validates an access token. Refresh tokens are
// rejected here so they cannot be replayed against protected endpoints.
func (k *Keys) VerifyAccessToken(tokenStr string) (Claims, error) {
	claims, err := k.verify(tokenStr, k.accessSecret)
	if err != nil {
		return Claims{}, err
	}
	if claims.Refresh {
		return Claims{}, fmt.Errorf("refresh token used as access token")
	}
	return claims, nil
}

func (k *Keys) VerifyRefreshToken(tokenStr string) (Claims, error) {
	claims, err := k.verify(tokenStr, k.refreshSecret)
	if err != nil {
		return Claims{}, err
	}
	if !claims.Refresh {
		return Claims{}, fmt.Errorf("not a refresh token")
	}
	return claims, nil
}

func (k *Keys) verify(tokenStr string, secret []byte) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	return claims, nil
}
