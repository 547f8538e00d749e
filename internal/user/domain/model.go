package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is an operator account. The password hash never leaves the service
// layer in JSON.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Name         string       `gorm:"not null" json:"name"`
	Position     string       `json:"position,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Email        string       `json:"email,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	PasswordHash string       `gorm:"type:text" json:"-"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
