package library

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
)

// Repository handles bookshelf persistence.
type Repository interface {
	Create(ctx context.Context, item *models.TestItem) error
	Update(ctx context.Context, item *models.TestItem) error
	Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.TestItem, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.TestItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bookshelf repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, item *models.TestItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Update(ctx context.Context, item *models.TestItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.TestItem{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.TestItem, error) {
	var item models.TestItem
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.TestItem, error) {
	var items []models.TestItem
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("acronym ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
