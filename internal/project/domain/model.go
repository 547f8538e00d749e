package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPreparing  Status = "preparing"
	StatusInProgress Status = "in_progress"
	StatusDelayed    Status = "delayed"
	StatusCompleted  Status = "completed"
)

// Project groups contracts for one customer. Status is not persisted.
type Project struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"not null" json:"name"`
	CustomerID   snowflake.ID      `gorm:"not null;index" json:"customer_id"`
	StartDate    *time.Time        `json:"start_date,omitempty"`
	EndDate      *time.Time        `json:"end_date,omitempty"`
	Budget       int64             `gorm:"not null;default:0" json:"budget"`
	DeptName     string            `json:"dept_name,omitempty"`
	ManagerName  string            `json:"manager_name,omitempty"`
	ManagerPhone string            `json:"manager_phone,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	Status       Status            `gorm:"-" json:"status"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Project) TableName() string { return "projects" }
