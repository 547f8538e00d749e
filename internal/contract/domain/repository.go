package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListContractFilter struct {
	ProjectID  snowflake.ID
	CustomerID snowflake.ID
	Category   Category
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contract *Contract) error
	// UpdateTerms writes only the user-editable fields.
	UpdateTerms(ctx context.Context, db *gorm.DB, contract *Contract) error
	// UpdateMetrics writes only the aggregator-owned fields.
	UpdateMetrics(ctx context.Context, db *gorm.DB, contract *Contract) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteByProjects(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Contract, error)
	List(ctx context.Context, db *gorm.DB, filter ListContractFilter) ([]*Contract, error)
	ListByProjects(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]Contract, error)
	ListIDsByProjects(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]snowflake.ID, error)
}
