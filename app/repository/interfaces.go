package repository

import (
	"time"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"gorm.io/gorm"
)

// PropertySearchFilter narrows down listing queries. Zero values mean
// "no constraint" for the respective field.
type PropertySearchFilter struct {
	Query         string
	City          string
	Kind          string
	OfferType     string
	MinPriceCents int64
	MaxPriceCents int64
	MinRooms      float32
	FeaturedOnly  bool
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	GetByStripeCustomerID(customerID string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	GetStatsByUserID(userID uint) (*UserStats, error)
	GetWithStats(offset, limit int) ([]UserWithStats, error)
}

// PropertyRepository defines the interface for listing-related database operations
type PropertyRepository interface {
	Create(property *models.Property) error
	GetByID(id uint) (*models.Property, error)
	GetByUUID(uuid string) (*models.Property, error)
	GetByShareLink(shareLink string) (*models.Property, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Property, error)
	Update(property *models.Property) error
	Delete(id uint) error
	Search(filter PropertySearchFilter, offset, limit int) ([]models.Property, int64, error)
	GetPublished(offset, limit int) ([]models.Property, error)
	GetFeatured(limit int) ([]models.Property, error)
	GetRecent(limit int) ([]models.Property, error)
	Count() (int64, error)
	CountByUserID(userID uint) (int64, error)
	CountPublishedByUserID(userID uint) (int64, error)
	CountFeaturedByUserID(userID uint) (int64, error)
	IncrementViewCount(id uint) error

	AddImage(image *models.PropertyImage) error
	UpdateImage(image *models.PropertyImage) error
	GetImages(propertyID uint) ([]models.PropertyImage, error)
	GetImageByUUID(uuid string) (*models.PropertyImage, error)
	DeleteImage(id uint) error
	CountImages(propertyID uint) (int64, error)

	AddFavorite(userID, propertyID uint) error
	RemoveFavorite(userID, propertyID uint) error
	IsFavorite(userID, propertyID uint) (bool, error)
	GetFavorites(userID uint) ([]models.Property, error)
	CountFavorites(propertyID uint) (int64, error)
}

// MessageRepository defines the interface for inquiry/conversation operations
type MessageRepository interface {
	Create(message *models.Message) error
	GetByID(id uint) (*models.Message, error)
	GetThread(propertyID, userA, userB uint, offset, limit int) ([]models.Message, error)
	GetInbox(userID uint, offset, limit int) ([]models.Message, error)
	CountUnread(userID uint) (int64, error)
	MarkThreadRead(propertyID, recipientID, senderID uint) error
	Delete(id uint) error
}

// PageRepository defines the interface for page-related operations
type PageRepository interface {
	Create(page *models.Page) error
	GetByID(id uint) (*models.Page, error)
	GetBySlug(slug string) (*models.Page, error)
	GetAll() ([]models.Page, error)
	GetActive() ([]models.Page, error)
	Update(page *models.Page) error
	Delete(id uint) error
	SlugExists(slug string) (bool, error)
	SlugExistsExceptID(slug string, id uint) (bool, error)
}

// BillingEventRepository exposes the webhook event ledger for the admin UI
type BillingEventRepository interface {
	List(offset, limit int) ([]models.BillingWebhookEvent, error)
	Count() (int64, error)
	GetByStripeEventID(eventID string) (*models.BillingWebhookEvent, error)
	CountFailedSince(since time.Time) (int64, error)
}

// UserWithStats represents a user with additional statistics
type UserWithStats struct {
	User          models.User
	PropertyCount int64
	MessageCount  int64
}

// UserStats provides aggregated counts for a single user.
type UserStats struct {
	PropertyCount  int64
	PublishedCount int64
	FavoriteCount  int64
	UnreadMessages int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Property     PropertyRepository
	Message      MessageRepository
	Page         PageRepository
	BillingEvent BillingEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Property:     NewPropertyRepository(db),
		Message:      NewMessageRepository(db),
		Page:         NewPageRepository(db),
		BillingEvent: NewBillingEventRepository(db),
	}
}
