package content

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
)

// Repository is the Postgres-backed remote content store.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// List returns every content record, newest first.
func (r *Repository) List(ctx context.Context) ([]models.ContentRecord, error) {
	var records []models.ContentRecord
	if err := r.db.WithContext(ctx).
		Order("createdat DESC, id").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindByID loads one record.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.ContentRecord, error) {
	var rec models.ContentRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content record not found")
		}
		return nil, err
	}
	return &rec, nil
}

// Insert creates a new record row.
func (r *Repository) Insert(ctx context.Context, rec *models.ContentRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// Update saves the full record, zero fields included, so an edit can clear
// an asset slot. The ID never changes.
func (r *Repository) Update(ctx context.Context, rec *models.ContentRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.ContentRecord{}).
		Where("id = ?", rec.ID).
		Select("*").
		Updates(rec)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "content record not found")
	}
	return nil
}

// Delete removes the record row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.ContentRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "content record not found")
	}
	return nil
}
