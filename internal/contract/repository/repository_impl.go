package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/contract/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Create(contract).Error
}

func (r *repo) UpdateTerms(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).
		Model(&domain.Contract{ID: contract.ID}).
		Select("name", "project_id", "customer_id", "category", "type", "amount",
			"signed_date", "start_date", "end_date", "notes", "updated_at").
		Updates(map[string]any{
			"name":        contract.Name,
			"project_id":  contract.ProjectID,
			"customer_id": contract.CustomerID,
			"category":    contract.Category,
			"type":        contract.Type,
			"amount":      contract.Amount,
			"signed_date": contract.SignedDate,
			"start_date":  contract.StartDate,
			"end_date":    contract.EndDate,
			"notes":       contract.Notes,
			"updated_at":  contract.UpdatedAt,
		}).Error
}

func (r *repo) UpdateMetrics(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).
		Model(&domain.Contract{ID: contract.ID}).
		Select("accumulated_payment", "balance", "registered_balance", "status", "updated_at").
		Updates(map[string]any{
			"accumulated_payment": contract.AccumulatedPayment,
			"balance":             contract.Balance,
			"registered_balance":  contract.RegisteredBalance,
			"status":              contract.Status,
			"updated_at":          contract.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Contract{}).Error
}

func (r *repo) DeleteByProjects(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) error {
	if len(projectIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("project_id IN ?", projectIDs).Delete(&domain.Contract{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contract, error) {
	var contract domain.Contract
	err := db.WithContext(ctx).Where("id = ?", id).First(&contract).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListContractFilter) ([]*domain.Contract, error) {
	var contracts []*domain.Contract
	stmt := db.WithContext(ctx).Model(&domain.Contract{})
	if filter.ProjectID != 0 {
		stmt = stmt.Where("project_id = ?", filter.ProjectID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if err := stmt.Order("created_at desc, id desc").Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repo) ListByProjects(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]domain.Contract, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	var contracts []domain.Contract
	err := db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("created_at asc, id asc").
		Find(&contracts).Error
	return contracts, err
}

func (r *repo) ListIDsByProjects(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) ([]snowflake.ID, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Contract{}).
		Where("project_id IN ?", projectIDs).
		Pluck("id", &ids).Error
	return ids, err
}
