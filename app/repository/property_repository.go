package repository

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/ImmoFox/app/models"
)

// propertyRepository implements the PropertyRepository interface
type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository instance
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

// Create creates a new listing in the database
func (r *propertyRepository) Create(property *models.Property) error {
	return r.db.Create(property).Error
}

// GetByID retrieves a listing by its ID including images
func (r *propertyRepository) GetByID(id uint) (*models.Property, error) {
	var property models.Property
	err := r.db.Preload("Images", imageOrder).First(&property, id).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// GetByUUID retrieves a listing by its UUID
func (r *propertyRepository) GetByUUID(uuid string) (*models.Property, error) {
	var property models.Property
	err := r.db.Preload("Images", imageOrder).Where("uuid = ?", uuid).First(&property).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// GetByShareLink retrieves a listing by its public share slug
func (r *propertyRepository) GetByShareLink(shareLink string) (*models.Property, error) {
	var property models.Property
	err := r.db.Preload("Images", imageOrder).Preload("User").
		Where("share_link = ?", shareLink).First(&property).Error
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// GetByUserID retrieves a paginated list of the user's own listings
func (r *propertyRepository) GetByUserID(userID uint, offset, limit int) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Preload("Images", imageOrder).
		Where("user_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&properties).Error
	return properties, err
}

// Update updates an existing listing
func (r *propertyRepository) Update(property *models.Property) error {
	return r.db.Save(property).Error
}

// Delete soft deletes a listing and its images
func (r *propertyRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("property_id = ?", id).Delete(&models.PropertyImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Property{}, id).Error
	})
}

// Search runs a filtered, paginated query over published listings and
// returns the matching page plus the total match count.
func (r *propertyRepository) Search(filter PropertySearchFilter, offset, limit int) ([]models.Property, int64, error) {
	query := r.db.Model(&models.Property{}).
		Where("status IN ?", []string{models.PropertyStatusPublished, models.PropertyStatusReserved})

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("title LIKE ? OR description LIKE ? OR city LIKE ?", pattern, pattern, pattern)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.OfferType != "" {
		query = query.Where("offer_type = ?", filter.OfferType)
	}
	if filter.MinPriceCents > 0 {
		query = query.Where("price_cents >= ?", filter.MinPriceCents)
	}
	if filter.MaxPriceCents > 0 {
		query = query.Where("price_cents <= ?", filter.MaxPriceCents)
	}
	if filter.MinRooms > 0 {
		query = query.Where("rooms >= ?", filter.MinRooms)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var properties []models.Property
	err := query.Preload("Images", imageOrder).
		Order("is_featured DESC, published_at DESC").
		Offset(offset).Limit(limit).
		Find(&properties).Error
	return properties, total, err
}

// GetPublished retrieves publicly visible listings, featured first
func (r *propertyRepository) GetPublished(offset, limit int) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Preload("Images", imageOrder).
		Where("status IN ?", []string{models.PropertyStatusPublished, models.PropertyStatusReserved}).
		Order("is_featured DESC, published_at DESC").
		Offset(offset).Limit(limit).
		Find(&properties).Error
	return properties, err
}

// GetFeatured retrieves featured listings for the start page
func (r *propertyRepository) GetFeatured(limit int) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Preload("Images", imageOrder).
		Where("status = ? AND is_featured = ?", models.PropertyStatusPublished, true).
		Order("published_at DESC").Limit(limit).
		Find(&properties).Error
	return properties, err
}

// GetRecent retrieves the most recently published listings
func (r *propertyRepository) GetRecent(limit int) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Preload("Images", imageOrder).
		Where("status = ?", models.PropertyStatusPublished).
		Order("published_at DESC").Limit(limit).
		Find(&properties).Error
	return properties, err
}

// Count returns the total number of listings
func (r *propertyRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Property{}).Count(&count).Error
	return count, err
}

// CountByUserID returns the number of listings owned by a user
func (r *propertyRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Property{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// CountPublishedByUserID counts a user's publicly visible listings.
// Used for plan limit checks before publishing.
func (r *propertyRepository) CountPublishedByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Property{}).
		Where("user_id = ? AND status IN ?", userID,
			[]string{models.PropertyStatusPublished, models.PropertyStatusReserved}).
		Count(&count).Error
	return count, err
}

// CountFeaturedByUserID counts a user's featured listings
func (r *propertyRepository) CountFeaturedByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Property{}).
		Where("user_id = ? AND is_featured = ?", userID, true).
		Count(&count).Error
	return count, err
}

// IncrementViewCount bumps the listing view counter without touching updated_at
func (r *propertyRepository) IncrementViewCount(id uint) error {
	return r.db.Model(&models.Property{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// AddImage stores a new photo record for a listing
func (r *propertyRepository) AddImage(image *models.PropertyImage) error {
	return r.db.Create(image).Error
}

// UpdateImage updates a photo record (variant keys after processing)
func (r *propertyRepository) UpdateImage(image *models.PropertyImage) error {
	return r.db.Save(image).Error
}

// GetImages retrieves all photos of a listing in display order
func (r *propertyRepository) GetImages(propertyID uint) ([]models.PropertyImage, error) {
	var images []models.PropertyImage
	err := r.db.Where("property_id = ?", propertyID).
		Order("sort_index ASC, id ASC").Find(&images).Error
	return images, err
}

// GetImageByUUID retrieves a single photo by its UUID
func (r *propertyRepository) GetImageByUUID(uuid string) (*models.PropertyImage, error) {
	var image models.PropertyImage
	err := r.db.Where("uuid = ?", uuid).First(&image).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// DeleteImage soft deletes a photo record
func (r *propertyRepository) DeleteImage(id uint) error {
	return r.db.Delete(&models.PropertyImage{}, id).Error
}

// CountImages returns the number of photos on a listing
func (r *propertyRepository) CountImages(propertyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PropertyImage{}).
		Where("property_id = ?", propertyID).Count(&count).Error
	return count, err
}

// AddFavorite bookmarks a listing; repeated calls are no-ops
func (r *propertyRepository) AddFavorite(userID, propertyID uint) error {
	fav := models.Favorite{UserID: userID, PropertyID: propertyID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error
}

// RemoveFavorite removes a bookmark
func (r *propertyRepository) RemoveFavorite(userID, propertyID uint) error {
	return r.db.Where("user_id = ? AND property_id = ?", userID, propertyID).
		Delete(&models.Favorite{}).Error
}

// IsFavorite reports whether the user bookmarked the listing
func (r *propertyRepository) IsFavorite(userID, propertyID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Favorite{}).
		Where("user_id = ? AND property_id = ?", userID, propertyID).
		Count(&count).Error
	return count > 0, err
}

// GetFavorites retrieves all listings a user bookmarked
func (r *propertyRepository) GetFavorites(userID uint) ([]models.Property, error) {
	var properties []models.Property
	err := r.db.Preload("Images", imageOrder).
		Joins("JOIN favorites ON favorites.property_id = properties.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC").
		Find(&properties).Error
	return properties, err
}

// CountFavorites returns how many users bookmarked a listing
func (r *propertyRepository) CountFavorites(propertyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Favorite{}).
		Where("property_id = ?", propertyID).Count(&count).Error
	return count, err
}

// imageOrder keeps preloaded photos in display order
func imageOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sort_index ASC, id ASC")
}
