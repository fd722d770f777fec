package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token subjects are usernames: editAccess compares the subject against the
// target user's current username, and a profile update that renames the user
// must re-mint with the new name.
type tokenClaims struct {
	jwt.RegisteredClaims
}

func GenerateToken(username string, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("GenerateToken: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature and expiry and returns the subject
// username. Signature and expiry failures stay distinguishable through
// jwt.ErrTokenSignatureInvalid and jwt.ErrTokenExpired.
func ValidateToken(tokenString string, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("ValidateToken: %w", err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("ValidateToken: invalid token claims")
	}
	if tc.Subject == "" {
		return "", fmt.Errorf("ValidateToken: token has no subject")
	}
	return tc.Subject, nil
}

// ExtractSubject reads the subject without checking the signature. Only safe
// on tokens that already passed ValidateToken upstream (e.g. re-reading the
// header after the auth middleware ran).
func ExtractSubject(tokenString string) (string, error) {
	var claims tokenClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return "", fmt.Errorf("ExtractSubject: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("ExtractSubject: token has no subject")
	}
	return claims.Subject, nil
}
