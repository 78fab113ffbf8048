package banners

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
)

// Repository is the Postgres-backed banner store. Banner rows shadow Banner
// Slider content records and share their IDs. The content service removes
// the shadow row in the same transaction as the record; the schema-level
// cascade backs that up on Postgres.
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

// List returns every banner in slider order.
func (r *Repository) List(ctx context.Context) ([]models.Banner, error) {
	var banners []models.Banner
	if err := r.db.WithContext(ctx).
		Order("position, createdat, id").
		Find(&banners).Error; err != nil {
		return nil, err
	}
	return banners, nil
}

// Upsert inserts or refreshes the banner row inside the caller's
// transaction. Content writes use it to keep the shadow row in step with
// the record.
func (r *Repository) Upsert(ctx context.Context, tx *gorm.DB, banner *models.Banner) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "imageurl"}),
		}).
		Create(banner).Error
}

// Delete removes the shadow row inside the caller's transaction. Records
// outside the slider have no shadow row, so a missing row is not an error.
func (r *Repository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	return db.WithContext(ctx).Where("id = ?", id).Delete(&models.Banner{}).Error
}

// SetPosition moves one banner within the slider.
func (r *Repository) SetPosition(ctx context.Context, id string, position int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Banner{}).
		Where("id = ?", id).
		Update("position", position)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "banner not found")
	}
	return nil
}
