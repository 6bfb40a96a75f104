package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cppla/gympoints/config"
)

// RoleAdmin marks front-desk staff allowed on /api/v1/admin.
const RoleAdmin = "admin"

const tokenIssuer = "gympoints"

var errNoSecret = errors.New("jwt secret not configured")

// Claims carries the staff role next to the registered claims.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func signingKey() ([]byte, error) {
	secret := config.Get().JWTSecret
	if secret == "" {
		return nil, errNoSecret
	}
	return []byte(secret), nil
}

// GenerateToken signs an HS256 token for subject valid for ttl.
func GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	key, err := signingKey()
	if err != nil {
		return "", err
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString(key)
}

// ParseToken verifies signature, issuer and expiry.
func ParseToken(raw string) (*Claims, error) {
	key, err := signingKey()
	if err != nil {
		return nil, err
	}
	var claims Claims
	_, err = jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}
