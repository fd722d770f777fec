package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusOnline  UserStatus = "ONLINE"
	UserStatusOffline UserStatus = "OFFLINE"
)

// User is the persisted account record. Token always holds the most recently
// minted bearer token for the user; there is no multi-session tracking.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Status       UserStatus
	Birthday     *time.Time
	Token        string
	CreatedAt    time.Time
}
