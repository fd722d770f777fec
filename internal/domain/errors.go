package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEditForbidden      = errors.New("not allowed to edit another user")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrTamperedSubject    = errors.New("userid manipulated")
	ErrInvalidRequest     = errors.New("invalid request")
)
