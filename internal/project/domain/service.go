package domain

import (
	"context"
	"errors"
	"time"
)

// ProjectFields are the user-editable project attributes.
type ProjectFields struct {
	Name         string
	CustomerID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Budget       int64
	DeptName     string
	ManagerName  string
	ManagerPhone string
	Notes        string
	Metadata     map[string]any
}

type CreateProjectRequest struct {
	ProjectFields
}

type UpdateProjectRequest struct {
	ID string
	ProjectFields
}

type ListProjectRequest struct {
	CustomerID string
	Name       string
	Status     string
}

type Service interface {
	Create(ctx context.Context, req CreateProjectRequest) (Project, error)
	Update(ctx context.Context, req UpdateProjectRequest) (Project, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Project, error)
	List(ctx context.Context, req ListProjectRequest) ([]Project, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidCustomer  = errors.New("invalid_customer")
	ErrInvalidBudget    = errors.New("invalid_budget")
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrInvalidStatus    = errors.New("invalid_project_status")
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrNotFound         = errors.New("not_found")
)
