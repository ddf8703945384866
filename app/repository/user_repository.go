package repository

import (
	"strings"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByActivationToken retrieves a user by their activation token
func (r *userRepository) GetByActivationToken(token string) (*models.User, error) {
	var user models.User
	err := r.db.Where("activation_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByAPIKeyHash resolves an active API key hash to its user and user settings.
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, nil, gorm.ErrRecordNotFound
	}
	var settings models.UserSettings
	query := r.db.Where("api_key_hash = ? AND api_key_hash <> '' AND api_key_revoked_at IS NULL", trimmed)
	if err := query.First(&settings).Error; err != nil {
		return nil, nil, err
	}
	var user models.User
	if err := r.db.First(&user, settings.UserID).Error; err != nil {
		return nil, nil, err
	}
	return &user, &settings, nil
}

// GetByStripeCustomerID retrieves the user linked to a Stripe customer
func (r *userRepository) GetByStripeCustomerID(customerID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates an existing user in the database
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete soft deletes a user by their ID
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// List retrieves a paginated list of users
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// Search searches for users by name, email or agency name
func (r *userRepository) Search(query string) ([]models.User, error) {
	var users []models.User
	searchPattern := "%" + strings.TrimSpace(query) + "%"
	err := r.db.Where("name LIKE ? OR email LIKE ? OR agency_name LIKE ?",
		searchPattern, searchPattern, searchPattern).Find(&users).Error
	return users, err
}

// GetStatsByUserID returns aggregate statistics for the given user.
func (r *userRepository) GetStatsByUserID(userID uint) (*UserStats, error) {
	stats := &UserStats{}

	if err := r.db.Model(&models.Property{}).
		Where("user_id = ?", userID).Count(&stats.PropertyCount).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Property{}).
		Where("user_id = ? AND status IN ?", userID,
			[]string{models.PropertyStatusPublished, models.PropertyStatusReserved}).
		Count(&stats.PublishedCount).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Favorite{}).
		Where("user_id = ?", userID).Count(&stats.FavoriteCount).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&stats.UnreadMessages).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// GetWithStats retrieves users with their listing and message counts for the admin list
func (r *userRepository) GetWithStats(offset, limit int) ([]UserWithStats, error) {
	users, err := r.List(offset, limit)
	if err != nil {
		return nil, err
	}

	result := make([]UserWithStats, 0, len(users))
	for _, user := range users {
		var propertyCount, messageCount int64
		if err := r.db.Model(&models.Property{}).
			Where("user_id = ?", user.ID).Count(&propertyCount).Error; err != nil {
			return nil, err
		}
		if err := r.db.Model(&models.Message{}).
			Where("sender_id = ?", user.ID).Count(&messageCount).Error; err != nil {
			return nil, err
		}
		result = append(result, UserWithStats{
			User:          user,
			PropertyCount: propertyCount,
			MessageCount:  messageCount,
		})
	}
	return result, nil
}
