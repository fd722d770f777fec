package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/mkaelin/account-service/internal/domain"
)

type userRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	SetSession(ctx context.Context, id uuid.UUID, status domain.UserStatus, token string) error
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Matches(plaintext, hash string) bool
}
