// Package token mints the first-party flexio service token issued after a
// successful bbauth login. The token is a signed, self-contained bearer
// credential; nothing about it is persisted server-side beyond the signing
// secret.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceTokenTTL is the fixed lifetime of an issued service token.
const ServiceTokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken covers bad signatures, expired tokens and malformed input.
var ErrInvalidToken = errors.New("invalid service token")

// Claims are the statements carried by a service token.
type Claims struct {
	jwt.RegisteredClaims
	ServiceID string `json:"service_id"`
	AccountID string `json:"account_id"`
}

// Issuer signs service tokens for resolved accounts.
type Issuer struct {
	serviceID string
	secret    []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewIssuer constructs an Issuer for the given service identity and HMAC
// secret.
func NewIssuer(serviceID string, secret []byte) *Issuer {
	return &Issuer{
		serviceID: serviceID,
		secret:    secret,
		ttl:       ServiceTokenTTL,
		now:       time.Now,
	}
}

// Issue mints a signed service token bound to accountID, valid for 30 days.
func (i *Issuer) Issue(accountID string) (string, error) {
	if accountID == "" {
		return "", errors.New("token: empty account id")
	}
	now := i.now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		ServiceID: i.serviceID,
		AccountID: accountID,
	})
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a service token and returns its
// claims. Used by the link/unlink/status endpoints to authenticate callers;
// the general verification path for other subsystems lives elsewhere.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid || claims.ServiceID != i.serviceID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
