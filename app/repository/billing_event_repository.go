package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoFox/app/models"
)

// billingEventRepository implements the BillingEventRepository interface
type billingEventRepository struct {
	db *gorm.DB
}

// NewBillingEventRepository creates a new billing event repository instance
func NewBillingEventRepository(db *gorm.DB) BillingEventRepository {
	return &billingEventRepository{db: db}
}

// List retrieves received webhook events, newest first
func (r *billingEventRepository) List(offset, limit int) ([]models.BillingWebhookEvent, error) {
	var events []models.BillingWebhookEvent
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&events).Error
	return events, err
}

// Count returns the total number of recorded webhook events
func (r *billingEventRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.BillingWebhookEvent{}).Count(&count).Error
	return count, err
}

// GetByStripeEventID retrieves one event from the ledger
func (r *billingEventRepository) GetByStripeEventID(eventID string) (*models.BillingWebhookEvent, error) {
	var event models.BillingWebhookEvent
	err := r.db.Where("stripe_event_id = ?", eventID).First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CountFailedSince counts events whose processing recorded an error
func (r *billingEventRepository) CountFailedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.BillingWebhookEvent{}).
		Where("processing_error <> '' AND created_at >= ?", since).
		Count(&count).Error
	return count, err
}
