package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkaelin/account-service/internal/auth"
	"github.com/mkaelin/account-service/internal/domain"
	"github.com/mkaelin/account-service/internal/logging"
)

type sessionService interface {
	Login(ctx context.Context, username, password string) (*domain.User, error)
	Logout(ctx context.Context, subject string) (*domain.User, error)
}

type AuthHandler struct {
	sessions sessionService
}

func NewAuthHandler(sessions sessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "required"})
	}
	if r.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "required"})
	}
	return errs
}

type loginResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	user, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidCredentials):
		default:
			logging.FromContext(r.Context()).Error("login failed", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Access-Control-Expose-Headers", "Access-Token")
	w.Header().Set("Access-Token", user.Token)
	RespondSuccess(w, http.StatusOK, loginResponse{
		Token: user.Token,
		User:  toUserDTO(user, true),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	if _, err := h.sessions.Logout(r.Context(), subject); err != nil {
		if !errors.Is(err, domain.ErrTamperedSubject) {
			logging.FromContext(r.Context()).Error("logout failed", "error", err)
		}
		RespondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
