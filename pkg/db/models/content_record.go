package models

import (
	"time"

	"github.com/lib/pq"

	"github.com/mirelletran/fangallery-backend/pkg/enums"
)

// ContentRecord is the canonical stored unit for one uploaded asset and its
// metadata. IDs are opaque string tokens that stay stable across the remote
// store and the fallback snapshot.
type ContentRecord struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Title       string         `gorm:"column:title;not null"`
	Description string         `gorm:"column:description"`
	Section     enums.Section  `gorm:"column:section;not null"`
	Category    string         `gorm:"column:category"`
	Subcategory string         `gorm:"column:subcategory"`
	Tags        pq.StringArray `gorm:"column:tags;type:text[]"`

	ImageURL        string `gorm:"column:imageurl"`
	ImageFileID     string `gorm:"column:imagefileid"`
	ThumbnailURL    string `gorm:"column:thumbnailurl"`
	ThumbnailFileID string `gorm:"column:thumbnailfileid"`
	ZipURL          string `gorm:"column:zipurl"`
	ZipFileID       string `gorm:"column:zipfileid"`
	VideoURL        string `gorm:"column:videourl"`
	VideoFileID     string `gorm:"column:videofileid"`

	// Legacy free-form date fields carried over from historical records.
	// Resolution priority is DateAdded > Date > CreatedAt.
	DateAdded string `gorm:"column:dateadded"`
	Date      string `gorm:"column:date"`

	Folder    string    `gorm:"column:folder"`
	CreatedAt time.Time `gorm:"column:createdat;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updatedat;autoUpdateTime"`
}

// TableName keeps the legacy lower-flattened table name.
func (ContentRecord) TableName() string {
	return "sitecontent"
}
