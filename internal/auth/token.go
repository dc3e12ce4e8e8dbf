// internal/auth/token.go
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ProfileClaims is the identity hand-off from the surrounding platform: a
// display name and ladder rating, signed with the shared HS256 secret. The
// arena never mints these tokens, it only verifies them.
type ProfileClaims struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	jwt.RegisteredClaims
}

// ParseProfileToken verifies a platform token and returns its claims. The
// signing method is pinned to HMAC so an asymmetric-alg downgrade cannot
// slip through.
func ParseProfileToken(secret []byte, tokenString string) (*ProfileClaims, error) {
	claims := &ProfileClaims{}
	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
