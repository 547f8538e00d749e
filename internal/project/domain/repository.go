package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListProjectFilter struct {
	CustomerID snowflake.ID
	Name       string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	Update(ctx context.Context, db *gorm.DB, project *Project) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	List(ctx context.Context, db *gorm.DB, filter ListProjectFilter) ([]*Project, error)
	ListIDsByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]snowflake.ID, error)
}
