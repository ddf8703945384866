package billing

import (
	"time"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the billing service. Every
// subscription mutation is keyed by the Stripe customer id and scoped to a
// single user row, so the store's row-level atomicity is all the locking we
// need.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByStripeCustomerID(customerID string) (*models.User, error)
	LinkStripeCustomer(userID uint, customerID string) error
	UpdateSubscriptionByCustomerID(customerID, subscriptionID string, periodEnd *time.Time) error
	ClearSubscriptionByCustomerID(customerID string) error
	GetOrCreateUserSettings(userID uint) (*models.UserSettings, error)
	SaveUserSettings(us *models.UserSettings) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) GetUserByStripeCustomerID(customerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LinkStripeCustomer stores the customer id on first checkout. The id is
// set once; an already linked user keeps its original value.
func (r *gormRepository) LinkStripeCustomer(userID uint, customerID string) error {
	return r.db.Model(&models.User{}).
		Where("id = ? AND stripe_customer_id IS NULL", userID).
		Update("stripe_customer_id", customerID).Error
}

func (r *gormRepository) UpdateSubscriptionByCustomerID(customerID, subscriptionID string, periodEnd *time.Time) error {
	return r.db.Model(&models.User{}).
		Where("stripe_customer_id = ?", customerID).
		Updates(map[string]interface{}{
			"stripe_subscription_id": subscriptionID,
			"current_period_end":     periodEnd,
		}).Error
}

func (r *gormRepository) ClearSubscriptionByCustomerID(customerID string) error {
	return r.db.Model(&models.User{}).
		Where("stripe_customer_id = ?", customerID).
		Updates(map[string]interface{}{
			"stripe_subscription_id": nil,
			"current_period_end":     nil,
		}).Error
}

func (r *gormRepository) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	return models.GetOrCreateUserSettings(r.db, userID)
}

func (r *gormRepository) SaveUserSettings(us *models.UserSettings) error {
	return r.db.Save(us).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
