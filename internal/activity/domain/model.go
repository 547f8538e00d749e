package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeCreate Type = "create"
	TypeUpdate Type = "update"
	TypeDelete Type = "delete"
	TypeLogin  Type = "login"
	TypeSystem Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCreate, TypeUpdate, TypeDelete, TypeLogin, TypeSystem:
		return true
	default:
		return false
	}
}

type Category string

const (
	CategoryCustomer Category = "customer"
	CategoryProject  Category = "project"
	CategoryContract Category = "contract"
	CategoryPayment  Category = "payment"
	CategoryUser     Category = "user"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryCustomer, CategoryProject, CategoryContract, CategoryPayment, CategoryUser:
		return true
	default:
		return false
	}
}

// Activity is one entry of the recent-changes feed.
type Activity struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Type        Type              `gorm:"type:text;not null" json:"type"`
	Category    Category          `gorm:"type:text;not null" json:"category"`
	TargetName  string            `gorm:"not null" json:"target_name"`
	Description string            `gorm:"not null" json:"description"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (Activity) TableName() string { return "activities" }
