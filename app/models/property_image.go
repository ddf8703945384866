package models

import (
	"time"

	"gorm.io/gorm"
)

// PropertyImage is a stored photo of a listing. ObjectKey points at the
// original in S3, the variant keys at the resized derivatives.
type PropertyImage struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	PropertyID      uint   `gorm:"not null;index" json:"property_id"`
	UUID            string `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	FileName        string `gorm:"type:varchar(255);not null" json:"file_name"`
	ObjectKey       string `gorm:"type:varchar(512);not null" json:"-"`
	ThumbObjectKey  string `gorm:"type:varchar(512);default:''" json:"-"`
	MediumObjectKey string `gorm:"type:varchar(512);default:''" json:"-"`
	ContentType     string `gorm:"type:varchar(100);default:''" json:"content_type"`
	FileSize        int64  `gorm:"default:0" json:"file_size"`
	Width           int    `gorm:"default:0" json:"width"`
	Height          int    `gorm:"default:0" json:"height"`
	SortIndex       int    `gorm:"default:0;index" json:"sort_index"`
	IsCover         bool   `gorm:"default:false" json:"is_cover"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
