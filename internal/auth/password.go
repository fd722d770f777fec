package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLen is bcrypt's input limit; longer passwords are silently
// truncated by the algorithm, so they are rejected up front instead.
const MaxPasswordLen = 72

// Hasher wraps bcrypt with a fixed cost. bcrypt embeds a random salt, so
// hashing the same plaintext twice yields different strings; Matches still
// verifies either of them.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordLen {
		return "", fmt.Errorf("Hash: password exceeds %d bytes", MaxPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("Hash: %w", err)
	}
	return string(hash), nil
}

// Matches reports whether plaintext is the password behind hash. bcrypt's
// comparison is constant-time.
func (h *Hasher) Matches(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
