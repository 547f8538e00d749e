package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteByContracts(ctx context.Context, db *gorm.DB, contractIDs []snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	ListByContract(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]Payment, error)
	ListByContracts(ctx context.Context, db *gorm.DB, contractIDs []snowflake.ID) ([]Payment, error)
	// ListAll returns every payment, used by read-side aggregations.
	ListAll(ctx context.Context, db *gorm.DB) ([]Payment, error)
}
