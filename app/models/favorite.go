package models

import "time"

// Favorite bookmarks a listing for a user.
type Favorite struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:ux_favorites_user_property,unique,priority:1" json:"user_id"`
	PropertyID uint      `gorm:"not null;index:ux_favorites_user_property,unique,priority:2" json:"property_id"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	Property Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
