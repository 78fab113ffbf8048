package models

import "time"

// Banner is a slider entry derived from a Banner Slider content record. It
// shares the record's ID so a record delete can cascade to its banner.
type Banner struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	ImageURL  string    `gorm:"column:imageurl;not null"`
	LinkURL   string    `gorm:"column:linkurl"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:createdat;autoCreateTime"`
}

// TableName keeps the legacy lower-flattened table name.
func (Banner) TableName() string {
	return "banners"
}
