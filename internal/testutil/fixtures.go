package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkaelin/account-service/internal/domain"
)

// TestPassword is the plaintext behind every seeded user's hash.
const TestPassword = "password123"

func SeedUser(t *testing.T, db *sql.DB, username string, status domain.UserStatus) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Status:       status,
		Token:        "",
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, username, password_hash, status, birthday, token, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.PasswordHash, u.Status, u.Birthday, u.Token, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func GetUserStatus(t *testing.T, db *sql.DB, id uuid.UUID) domain.UserStatus {
	t.Helper()
	var status domain.UserStatus
	if err := db.QueryRow(`SELECT status FROM users WHERE id = $1`, id).Scan(&status); err != nil {
		t.Fatalf("get user status: %v", err)
	}
	return status
}

func CountUsersByName(t *testing.T, db *sql.DB, username string) int {
	t.Helper()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM users WHERE username = $1`, username).Scan(&n); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}
