package bookmarks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
)

// Repository handles saved-link persistence.
type Repository interface {
	Create(ctx context.Context, bookmark *models.Bookmark) error
	Update(ctx context.Context, bookmark *models.Bookmark) error
	Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.Bookmark, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Bookmark, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bookmark repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, bookmark *models.Bookmark) error {
	return r.db.WithContext(ctx).Create(bookmark).Error
}

func (r *repository) Update(ctx context.Context, bookmark *models.Bookmark) error {
	return r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("id = ? AND account_id = ?", bookmark.ID, bookmark.AccountID).
		Updates(map[string]any{
			"title": bookmark.Title,
			"url":   bookmark.URL,
			"notes": bookmark.Notes,
		}).Error
}

func (r *repository) Delete(ctx context.Context, accountID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.Bookmark{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&bookmark, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&bookmarks).Error; err != nil {
		return nil, err
	}
	return bookmarks, nil
}
