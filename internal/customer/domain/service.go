package domain

import (
	"context"
	"errors"
)

// CustomerFields are the user-editable customer attributes.
type CustomerFields struct {
	Name          string
	RegNo         string
	Type          Type
	CEOName       string
	BizType       string
	BizItem       string
	FinanceDept   string
	ManagerName   string
	Phone         string
	Email         string
	BankName      string
	AccountNo     string
	AccountHolder string
	ZipCode       string
	Address       string
	Notes         string
}

type CreateCustomerRequest struct {
	CustomerFields
}

type UpdateCustomerRequest struct {
	ID string
	CustomerFields
}

type ListCustomerRequest struct {
	Name string
	Type string
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	Update(ctx context.Context, req UpdateCustomerRequest) (Customer, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) ([]Customer, error)
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidRegNo   = errors.New("invalid_reg_no")
	ErrInvalidType    = errors.New("invalid_customer_type")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrDuplicateName  = errors.New("duplicate_name")
	ErrDuplicateRegNo = errors.New("duplicate_reg_no")
	ErrNotFound       = errors.New("not_found")
)
