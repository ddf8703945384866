package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PropertyKindApartment  = "apartment"
	PropertyKindHouse      = "house"
	PropertyKindLand       = "land"
	PropertyKindCommercial = "commercial"
)

const (
	OfferTypeSale = "sale"
	OfferTypeRent = "rent"
)

const (
	PropertyStatusDraft     = "draft"
	PropertyStatusPublished = "published"
	PropertyStatusReserved  = "reserved"
	PropertyStatusSold      = "sold"
	PropertyStatusArchived  = "archived"
)

// Property is a single real-estate listing. The UUID identifies the listing
// in the API, the ShareLink is the short public slug used in listing URLs.
type Property struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UUID        string `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title" validate:"required,min=5,max=255"`
	ShareLink   string `gorm:"type:varchar(20);uniqueIndex;not null" json:"share_link"`
	Description string `gorm:"type:longtext" json:"description" validate:"max=20000"`
	Kind        string `gorm:"type:varchar(20);not null;index:idx_properties_kind_offer,priority:1" json:"kind" validate:"oneof=apartment house land commercial"`
	OfferType   string `gorm:"type:varchar(10);not null;index:idx_properties_kind_offer,priority:2" json:"offer_type" validate:"oneof=sale rent"`
	Status      string `gorm:"type:varchar(20);not null;default:'draft';index" json:"status" validate:"oneof=draft published reserved sold archived"`

	// Price is stored in euro cents; for rentals it is the monthly cold rent.
	PriceCents int64  `gorm:"not null;index" json:"price_cents" validate:"gte=0"`
	City       string `gorm:"type:varchar(150);not null;index" json:"city" validate:"required,min=2,max=150"`
	PostalCode string `gorm:"type:varchar(10);not null;index" json:"postal_code" validate:"required,min=3,max=10"`
	Address    string `gorm:"type:varchar(255)" json:"address" validate:"max=255"`
	Rooms      float32 `gorm:"default:0" json:"rooms" validate:"gte=0"`
	LivingArea float32 `gorm:"default:0" json:"living_area" validate:"gte=0"`
	PlotArea   float32 `gorm:"default:0" json:"plot_area" validate:"gte=0"`
	YearBuilt  int     `gorm:"default:0" json:"year_built"`

	IsFeatured  bool       `gorm:"default:false;index" json:"is_featured"`
	ViewCount   int64      `gorm:"default:0" json:"view_count"`
	PublishedAt *time.Time `gorm:"type:timestamp;default:null" json:"published_at,omitempty"`

	User   User            `gorm:"foreignKey:UserID" json:"-"`
	Images []PropertyImage `gorm:"foreignKey:PropertyID" json:"images,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Property) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// NewProperty creates an unsaved draft listing with fresh identifiers.
func NewProperty(userID uint, title string) *Property {
	return &Property{
		UUID:   uuid.New().String(),
		UserID: userID,
		Title:  title,
		Status: PropertyStatusDraft,
	}
}

// IsPublished reports whether the listing is publicly visible.
func (p *Property) IsPublished() bool {
	return p.Status == PropertyStatusPublished || p.Status == PropertyStatusReserved
}
