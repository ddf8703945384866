package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoFox/app/models"
)

// messageRepository implements the MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create stores a new message
func (r *messageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetByID retrieves a message by its ID
func (r *messageRepository) GetByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// GetThread retrieves the conversation between two users about one listing,
// oldest first
func (r *messageRepository) GetThread(propertyID, userA, userB uint, offset, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("property_id = ?", propertyID).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userA, userB, userB, userA).
		Order("created_at ASC").Offset(offset).Limit(limit).
		Find(&messages).Error
	return messages, err
}

// GetInbox retrieves the latest messages addressed to a user, newest first
func (r *messageRepository) GetInbox(userID uint, offset, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Preload("Property").Preload("Sender").
		Where("recipient_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&messages).Error
	return messages, err
}

// CountUnread returns the number of unread messages for a user
func (r *messageRepository) CountUnread(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// MarkThreadRead marks all unread messages of one thread as read
func (r *messageRepository) MarkThreadRead(propertyID, recipientID, senderID uint) error {
	return r.db.Model(&models.Message{}).
		Where("property_id = ? AND recipient_id = ? AND sender_id = ? AND read_at IS NULL",
			propertyID, recipientID, senderID).
		Update("read_at", time.Now()).Error
}

// Delete soft deletes a message
func (r *messageRepository) Delete(id uint) error {
	return r.db.Delete(&models.Message{}, id).Error
}
