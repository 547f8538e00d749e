package domain

import (
	"context"
	"errors"
	"time"
)

// PaymentFields are the user-editable milestone attributes. Status is
// accepted only as a completion request: StatusCompleted without a
// completion date completes the milestone today.
type PaymentFields struct {
	Item           Item
	Amount         int64
	ScheduledDate  *time.Time
	InvoiceDate    *time.Time
	CompletionDate *time.Time
	Status         Status
}

type CreatePaymentRequest struct {
	ContractID string
	PaymentFields
}

type UpdatePaymentRequest struct {
	ID string
	PaymentFields
}

// EditResponse is the outcome of a milestone mutation.
type EditResponse struct {
	Payment Payment `json:"payment"`
	// Changed holds every milestone rewritten by the edit, the edited one
	// first.
	Changed  []Payment `json:"changed"`
	Reverted bool      `json:"reverted"`
}

type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (Payment, error)
	Update(ctx context.Context, req UpdatePaymentRequest) (EditResponse, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Payment, error)
	ListByContract(ctx context.Context, contractID string) ([]Payment, error)
}

var (
	ErrInvalidID                = errors.New("invalid_id")
	ErrInvalidContract          = errors.New("invalid_contract")
	ErrInvalidItem              = errors.New("invalid_item")
	ErrInvalidAmount            = errors.New("invalid_amount")
	ErrInvalidScheduledDate     = errors.New("invalid_scheduled_date")
	ErrDuplicateDeposit         = errors.New("duplicate_deposit")
	ErrExceedsRegisteredBalance = errors.New("exceeds_registered_balance")
	ErrContractNotFound         = errors.New("contract_not_found")
	ErrNotFound                 = errors.New("not_found")
)
