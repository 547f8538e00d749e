package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Save(payment).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Payment{}).Error
}

func (r *repo) DeleteByContracts(ctx context.Context, db *gorm.DB, contractIDs []snowflake.ID) error {
	if len(contractIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Where("contract_id IN ?", contractIDs).Delete(&domain.Payment{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ListByContract(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("scheduled_date asc, id asc").
		Find(&payments).Error
	return payments, err
}

func (r *repo) ListByContracts(ctx context.Context, db *gorm.DB, contractIDs []snowflake.ID) ([]domain.Payment, error) {
	if len(contractIDs) == 0 {
		return nil, nil
	}
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Where("contract_id IN ?", contractIDs).
		Order("scheduled_date asc, id asc").
		Find(&payments).Error
	return payments, err
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).Order("scheduled_date asc, id asc").Find(&payments).Error
	return payments, err
}
