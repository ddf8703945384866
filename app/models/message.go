package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Message is one entry in a property-scoped conversation between an
// interested user and the listing owner. A thread is identified by
// (property, lower user id, higher user id); we keep it simple and scope
// every message to SenderID/RecipientID plus the listing.
type Message struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PropertyID  uint       `gorm:"not null;index:idx_messages_thread,priority:1" json:"property_id"`
	SenderID    uint       `gorm:"not null;index:idx_messages_thread,priority:2" json:"sender_id"`
	RecipientID uint       `gorm:"not null;index:idx_messages_thread,priority:3;index" json:"recipient_id"`
	Body        string     `gorm:"type:text;not null" json:"body" validate:"required,min=1,max=5000"`
	ReadAt      *time.Time `gorm:"type:timestamp;default:null;index" json:"read_at,omitempty"`

	Property  Property `gorm:"foreignKey:PropertyID" json:"-"`
	Sender    User     `gorm:"foreignKey:SenderID" json:"-"`
	Recipient User     `gorm:"foreignKey:RecipientID" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (m *Message) Validate() error {
	v := validator.New()
	return v.Struct(m)
}

// IsRead reports whether the recipient has seen the message.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// MarkRead sets the read timestamp once; repeated calls keep the first one.
func (m *Message) MarkRead() {
	if m.ReadAt == nil {
		now := time.Now()
		m.ReadAt = &now
	}
}
