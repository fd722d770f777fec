package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaelin/account-service/internal/auth"
	"github.com/mkaelin/account-service/internal/domain"
	"github.com/mkaelin/account-service/internal/service"
)

type mockUserService struct {
	registerUser *domain.User
	registerErr  error
	getUser      *domain.User
	getErr       error
	listUsers    []domain.User
	listErr      error
	updateUser   *domain.User
	updateErr    error

	gotChanges service.UserChanges
	gotSubject string
}

func (m *mockUserService) Register(_ context.Context, username, password string, birthday *time.Time) (*domain.User, error) {
	return m.registerUser, m.registerErr
}

func (m *mockUserService) Get(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return m.getUser, m.getErr
}

func (m *mockUserService) List(_ context.Context) ([]domain.User, error) {
	return m.listUsers, m.listErr
}

func (m *mockUserService) Update(_ context.Context, id uuid.UUID, subject string, changes service.UserChanges) (*domain.User, error) {
	m.gotSubject = subject
	m.gotChanges = changes
	return m.updateUser, m.updateErr
}

func (m *mockUserService) EditAccessByID(_ context.Context, id uuid.UUID, subject string) (bool, error) {
	if m.getUser == nil {
		return false, m.getErr
	}
	return service.EditAccess(m.getUser, subject), nil
}

func testUser(username string) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Username:  username,
		Status:    domain.UserStatusOnline,
		Token:     "tok-" + username,
		CreatedAt: time.Now().UTC(),
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRegister(t *testing.T) {
	u := testUser("alice")

	tests := []struct {
		name       string
		body       string
		svc        *mockUserService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			body:       `{"username":"alice","password":"pw1"}`,
			svc:        &mockUserService{registerUser: u},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "success with birthday",
			body:       `{"username":"alice","password":"pw1","birthday":"1995-06-15"}`,
			svc:        &mockUserService{registerUser: u},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "invalid json",
			body:       `{"username":`,
			svc:        &mockUserService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "missing fields",
			body:       `{}`,
			svc:        &mockUserService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad birthday",
			body:       `{"username":"alice","password":"pw1","birthday":"June 15"}`,
			svc:        &mockUserService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "duplicate username",
			body:       `{"username":"alice","password":"pw1"}`,
			svc:        &mockUserService{registerErr: domain.ErrUsernameTaken},
			wantStatus: http.StatusConflict,
			wantCode:   "USERNAME_TAKEN",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewUserHandler(tc.svc)
			req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.Register(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			resp := decodeResponse(t, rec)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			} else {
				assert.True(t, resp.Success)
				assert.Equal(t, u.Token, rec.Header().Get("Access-Token"))
			}
		})
	}
}

func TestRegister_ResponseContainsTokenButNoHash(t *testing.T) {
	u := testUser("alice")
	h := NewUserHandler(&mockUserService{registerUser: u})

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(`{"username":"alice","password":"pw1"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, u.Token)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "hash")
}

func TestGetByID(t *testing.T) {
	u := testUser("alice")

	tests := []struct {
		name       string
		pathID     string
		subject    string
		svc        *mockUserService
		wantStatus int
		wantEdit   string
	}{
		{
			name:       "owner sees edit access",
			pathID:     u.ID.String(),
			subject:    "alice",
			svc:        &mockUserService{getUser: u},
			wantStatus: http.StatusOK,
			wantEdit:   "true",
		},
		{
			name:       "other user has no edit access",
			pathID:     u.ID.String(),
			subject:    "bob",
			svc:        &mockUserService{getUser: u},
			wantStatus: http.StatusOK,
			wantEdit:   "false",
		},
		{
			name:       "unknown id",
			pathID:     uuid.NewString(),
			subject:    "alice",
			svc:        &mockUserService{getErr: domain.ErrNotFound},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "malformed id",
			pathID:     "42",
			subject:    "alice",
			svc:        &mockUserService{},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewUserHandler(tc.svc)
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/users/%s", tc.pathID), nil)
			req.SetPathValue("id", tc.pathID)
			req = req.WithContext(auth.ContextWithSubject(req.Context(), tc.subject))
			rec := httptest.NewRecorder()

			h.GetByID(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantEdit != "" {
				assert.Equal(t, tc.wantEdit, rec.Header().Get("Edit-Access"))
			}
			if tc.wantStatus == http.StatusOK {
				// Single-user views never leak the token or hash.
				assert.NotContains(t, rec.Body.String(), u.Token)
			}
		})
	}
}

func TestList_ViewExcludesTokenAndHash(t *testing.T) {
	u := testUser("alice")
	u.PasswordHash = "$2a$10$secret"
	h := NewUserHandler(&mockUserService{listUsers: []domain.User{*u}})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "alice")
	assert.NotContains(t, body, u.Token)
	assert.NotContains(t, body, u.PasswordHash)
}

func TestUpdate(t *testing.T) {
	u := testUser("alice2")

	tests := []struct {
		name       string
		subject    string
		body       string
		svc        *mockUserService
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			subject:    "alice",
			body:       `{"username":"alice2","birthday":"1990-01-02"}`,
			svc:        &mockUserService{updateUser: u},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "no identity",
			subject:    "",
			body:       `{"username":"alice2"}`,
			svc:        &mockUserService{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "MISSING_TOKEN",
		},
		{
			name:       "forbidden",
			subject:    "bob",
			body:       `{"username":"mallory"}`,
			svc:        &mockUserService{updateErr: domain.ErrEditForbidden},
			wantStatus: http.StatusForbidden,
			wantCode:   "EDIT_FORBIDDEN",
		},
		{
			name:       "username conflict",
			subject:    "alice",
			body:       `{"username":"bob"}`,
			svc:        &mockUserService{updateErr: domain.ErrUsernameTaken},
			wantStatus: http.StatusConflict,
			wantCode:   "USERNAME_TAKEN",
		},
		{
			name:       "empty username",
			subject:    "alice",
			body:       `{"username":""}`,
			svc:        &mockUserService{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewUserHandler(tc.svc)
			id := uuid.NewString()
			req := httptest.NewRequest(http.MethodPut, "/users/"+id, strings.NewReader(tc.body))
			req.SetPathValue("id", id)
			if tc.subject != "" {
				req = req.WithContext(auth.ContextWithSubject(req.Context(), tc.subject))
			}
			rec := httptest.NewRecorder()

			h.Update(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				resp := decodeResponse(t, rec)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestUpdate_ReturnsFreshTokenHeader(t *testing.T) {
	u := testUser("alice2")
	svc := &mockUserService{updateUser: u}
	h := NewUserHandler(svc)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPut, "/users/"+id, strings.NewReader(`{"username":"alice2"}`))
	req.SetPathValue("id", id)
	req = req.WithContext(auth.ContextWithSubject(req.Context(), "alice"))
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, u.Token, rec.Header().Get("Access-Token"))
	assert.Equal(t, "true", rec.Header().Get("Edit-Access"))
	assert.Equal(t, "alice", svc.gotSubject)
	require.NotNil(t, svc.gotChanges.Username)
	assert.Equal(t, "alice2", *svc.gotChanges.Username)
}
