package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkaelin/account-service/internal/auth"
	"github.com/mkaelin/account-service/internal/domain"
)

// UserService is the session/identity core: it owns the ONLINE/OFFLINE state
// machine and the edit-access check that gates profile mutation.
type UserService struct {
	users     userRepository
	hasher    passwordHasher
	jwtSecret string
	jwtTTL    time.Duration
}

func NewUserService(users userRepository, hasher passwordHasher, jwtSecret string, jwtTTL time.Duration) *UserService {
	return &UserService{
		users:     users,
		hasher:    hasher,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
	}
}

// UserChanges carries the mutable profile fields of an update request. Nil
// means "leave unchanged".
type UserChanges struct {
	Username *string
	Birthday *time.Time
}

// Register creates the user ONLINE with a freshly minted token. The username
// pre-check is an early exit only; a concurrent registration still resolves
// at the storage unique index.
func (s *UserService) Register(ctx context.Context, username, password string, birthday *time.Time) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("Register: %w", domain.ErrUsernameTaken)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("Register: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	token, err := auth.GenerateToken(username, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Status:       domain.UserStatusOnline,
		Birthday:     birthday,
		Token:        token,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	return u, nil
}

// Login verifies the credentials, flips the user ONLINE and replaces the
// stored token. An unknown username is a distinct failure from a wrong
// password.
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}

	if !s.hasher.Matches(password, u.PasswordHash) {
		return nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
	}

	token, err := auth.GenerateToken(u.Username, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}

	if err := s.users.SetSession(ctx, u.ID, domain.UserStatusOnline, token); err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	u.Status = domain.UserStatusOnline
	u.Token = token
	return u, nil
}

// Logout flips the user behind a verified token subject OFFLINE. A subject
// that maps to no user signals a tampered token rather than a missing
// resource.
func (s *UserService) Logout(ctx context.Context, subject string) (*domain.User, error) {
	u, err := s.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Logout: %w", domain.ErrTamperedSubject)
		}
		return nil, fmt.Errorf("Logout: %w", err)
	}

	if err := s.users.SetSession(ctx, u.ID, domain.UserStatusOffline, u.Token); err != nil {
		return nil, fmt.Errorf("Logout: %w", err)
	}
	u.Status = domain.UserStatusOffline
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return users, nil
}

// Update applies the proposed changes to the target user if the requester is
// that user. A rename re-mints the token with the new username as subject, so
// the stored token keeps matching the record.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, subject string, changes UserChanges) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}

	if !EditAccess(u, subject) {
		return nil, fmt.Errorf("Update: %w", domain.ErrEditForbidden)
	}

	if changes.Username != nil {
		u.Username = *changes.Username
	}
	if changes.Birthday != nil {
		u.Birthday = changes.Birthday
	}

	token, err := auth.GenerateToken(u.Username, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	u.Token = token

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("Update: %w", err)
	}
	return u, nil
}

// EditAccessByID resolves the target and runs the edit-access predicate, for
// callers that only hold the id.
func (s *UserService) EditAccessByID(ctx context.Context, id uuid.UUID, subject string) (bool, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("EditAccessByID: %w", err)
	}
	return EditAccess(u, subject), nil
}

// EditAccess is the authorization predicate: a user may only mutate their own
// record, identified by the token subject matching the current username.
func EditAccess(u *domain.User, subject string) bool {
	return subject != "" && subject == u.Username
}
