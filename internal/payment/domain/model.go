package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Item is the milestone kind of a payment.
type Item string

const (
	ItemDeposit      Item = "deposit"
	ItemProgress     Item = "progress"
	ItemFinalBalance Item = "final_balance"
)

// Rank orders milestone kinds; deposit settles first.
func (i Item) Rank() int {
	switch i {
	case ItemDeposit:
		return 1
	case ItemProgress:
		return 2
	case ItemFinalBalance:
		return 3
	default:
		return 99
	}
}

func (i Item) Valid() bool {
	return i.Rank() != 99
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusInvoiced  Status = "invoiced"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
)

// Payment is a single milestone on a contract. Status is derived and never
// read back as input.
type Payment struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ContractID     snowflake.ID `gorm:"not null;index" json:"contract_id"`
	Item           Item         `gorm:"type:text;not null" json:"item"`
	Amount         int64        `gorm:"not null" json:"amount"`
	ScheduledDate  time.Time    `gorm:"not null" json:"scheduled_date"`
	InvoiceDate    *time.Time   `json:"invoice_date,omitempty"`
	CompletionDate *time.Time   `json:"completion_date,omitempty"`
	Status         Status       `gorm:"type:text;not null" json:"status"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

func (p Payment) IsCompleted() bool {
	return p.CompletionDate != nil
}
