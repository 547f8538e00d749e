package domain

import (
	"context"
	"errors"
)

type UserFields struct {
	Username string
	Name     string
	Position string
	Phone    string
	Email    string
	Notes    string
}

type CreateUserRequest struct {
	UserFields
	Password string
}

// UpdateUserRequest keeps the stored password when Password is empty.
type UpdateUserRequest struct {
	ID string
	UserFields
	Password string
}

type LoginRequest struct {
	Username string
	Password string
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	Update(ctx context.Context, req UpdateUserRequest) (User, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context) ([]User, error)
	// Authenticate checks credentials and records a login activity.
	Authenticate(ctx context.Context, req LoginRequest) (User, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrDuplicateUsername  = errors.New("duplicate_username")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotFound           = errors.New("not_found")
)
