package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mkaelin/account-service/internal/auth"
	"github.com/mkaelin/account-service/internal/domain"
	"github.com/mkaelin/account-service/internal/logging"
	"github.com/mkaelin/account-service/internal/service"
)

const birthdayLayout = "2006-01-02"

type userService interface {
	Register(ctx context.Context, username, password string, birthday *time.Time) (*domain.User, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, id uuid.UUID, subject string, changes service.UserChanges) (*domain.User, error)
	EditAccessByID(ctx context.Context, id uuid.UUID, subject string) (bool, error)
}

type UserHandler struct {
	users userService
}

func NewUserHandler(users userService) *UserHandler {
	return &UserHandler{users: users}
}

type registerRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Birthday *string `json:"birthday"`
}

func (r registerRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	} else if len(r.Password) > auth.MaxPasswordLen {
		errs = append(errs, FieldError{Field: "password", Message: "must be at most 72 characters"})
	}
	if r.Birthday != nil {
		if _, err := time.Parse(birthdayLayout, *r.Birthday); err != nil {
			errs = append(errs, FieldError{Field: "birthday", Message: "must be a YYYY-MM-DD date"})
		}
	}
	return errs
}

// userDTO is the outward view of a user. Token is set only on the
// creation and login responses, for the owner; the password hash never
// leaves the service.
type userDTO struct {
	ID        uuid.UUID         `json:"id"`
	Username  string            `json:"username"`
	Status    domain.UserStatus `json:"status"`
	Birthday  *string           `json:"birthday,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Token     string            `json:"token,omitempty"`
}

func toUserDTO(u *domain.User, includeToken bool) userDTO {
	dto := userDTO{
		ID:        u.ID,
		Username:  u.Username,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
	if u.Birthday != nil {
		b := u.Birthday.Format(birthdayLayout)
		dto.Birthday = &b
	}
	if includeToken {
		dto.Token = u.Token
	}
	return dto
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	var birthday *time.Time
	if req.Birthday != nil {
		t, _ := time.Parse(birthdayLayout, *req.Birthday)
		birthday = &t
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password, birthday)
	if err != nil {
		if !errors.Is(err, domain.ErrUsernameTaken) {
			logging.FromContext(r.Context()).Error("failed to register user", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Access-Control-Expose-Headers", "Access-Token")
	w.Header().Set("Access-Token", user.Token)
	RespondSuccess(w, http.StatusCreated, toUserDTO(user, true))
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list users", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]userDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, toUserDTO(&users[i], false))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}

func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.FromContext(r.Context()).Error("failed to get user", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	canEdit := false
	if subject, ok := auth.SubjectFromContext(r.Context()); ok {
		canEdit = service.EditAccess(user, subject)
	}
	w.Header().Set("Access-Control-Expose-Headers", "Edit-Access")
	w.Header().Set("Edit-Access", strconv.FormatBool(canEdit))

	RespondSuccess(w, http.StatusOK, toUserDTO(user, false))
}

type updateRequest struct {
	Username *string `json:"username"`
	Birthday *string `json:"birthday"`
}

func (r updateRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Username != nil && *r.Username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "must not be empty"})
	}
	if r.Birthday != nil {
		if _, err := time.Parse(birthdayLayout, *r.Birthday); err != nil {
			errs = append(errs, FieldError{Field: "birthday", Message: "must be a YYYY-MM-DD date"})
		}
	}
	return errs
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	changes := service.UserChanges{Username: req.Username}
	if req.Birthday != nil {
		t, _ := time.Parse(birthdayLayout, *req.Birthday)
		changes.Birthday = &t
	}

	user, err := h.users.Update(r.Context(), id, subject, changes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrEditForbidden),
			errors.Is(err, domain.ErrUsernameTaken):
		default:
			logging.FromContext(r.Context()).Error("failed to update user", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	// A rename re-mints the token, so hand the replacement back to the owner.
	w.Header().Set("Access-Control-Expose-Headers", "Access-Token, Edit-Access")
	w.Header().Set("Access-Token", user.Token)
	w.Header().Set("Edit-Access", "true")
	w.WriteHeader(http.StatusNoContent)
}
