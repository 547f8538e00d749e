package domain

import (
	"context"
	"errors"
	"time"
)

// ContractFields are the user-editable contract attributes. Derived fields
// are never accepted from callers.
type ContractFields struct {
	Name       string
	ProjectID  string
	Category   Category
	Type       Type
	Amount     int64
	SignedDate *time.Time
	StartDate  *time.Time
	EndDate    *time.Time
	Notes      string
}

type CreateContractRequest struct {
	ContractFields
}

type UpdateContractRequest struct {
	ID string
	ContractFields
}

type ListContractRequest struct {
	ProjectID  string
	CustomerID string
	Category   string
}

type Service interface {
	Create(ctx context.Context, req CreateContractRequest) (Contract, error)
	Update(ctx context.Context, req UpdateContractRequest) (Contract, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Contract, error)
	List(ctx context.Context, req ListContractRequest) ([]Contract, error)
}

var (
	ErrInvalidID             = errors.New("invalid_id")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidProject        = errors.New("invalid_project")
	ErrInvalidCategory       = errors.New("invalid_category")
	ErrInvalidType           = errors.New("invalid_contract_type")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidPeriod         = errors.New("invalid_period")
	ErrAmountBelowRegistered = errors.New("amount_below_registered_payments")
	ErrProjectNotFound       = errors.New("project_not_found")
	ErrNotFound              = errors.New("not_found")
)
