package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Category is the money-flow direction of a contract.
type Category string

const (
	CategorySales    Category = "sales"
	CategoryPurchase Category = "purchase"
)

func (c Category) Valid() bool {
	return c == CategorySales || c == CategoryPurchase
}

type Type string

const (
	TypeDevelopment Type = "development"
	TypeMaintenance Type = "maintenance"
	TypeGoods       Type = "goods"
	TypeOther       Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeDevelopment, TypeMaintenance, TypeGoods, TypeOther:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPreparing       Status = "preparing"
	StatusContracted      Status = "contracted"
	StatusInProgress      Status = "in_progress"
	StatusCompletedUnpaid Status = "completed_unpaid"
	StatusClosed          Status = "closed"
)

// Contract carries four derived fields (AccumulatedPayment, Balance,
// RegisteredBalance, Status) that only the reconciliation aggregator writes.
type Contract struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	Name               string       `gorm:"not null" json:"name"`
	ProjectID          snowflake.ID `gorm:"not null;index" json:"project_id"`
	CustomerID         snowflake.ID `gorm:"not null;index" json:"customer_id"`
	Category           Category     `gorm:"type:text;not null" json:"category"`
	Type               Type         `gorm:"type:text;not null" json:"type"`
	Amount             int64        `gorm:"not null" json:"amount"`
	SignedDate         *time.Time   `json:"signed_date,omitempty"`
	StartDate          *time.Time   `json:"start_date,omitempty"`
	EndDate            *time.Time   `json:"end_date,omitempty"`
	AccumulatedPayment int64        `gorm:"not null;default:0" json:"accumulated_payment"`
	Balance            int64        `gorm:"not null;default:0" json:"balance"`
	RegisteredBalance  int64        `gorm:"not null;default:0" json:"registered_balance"`
	Status             Status       `gorm:"type:text;not null" json:"status"`
	Notes              string       `json:"notes,omitempty"`
	CreatedAt          time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }
