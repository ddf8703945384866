package apiv1

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/database"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/photos"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/utils"
)

// Pong is the health-check response body.
type Pong struct {
	Ping string `json:"ping"`
}

// PropertySummary is the public JSON shape of a listing in list responses.
type PropertySummary struct {
	UUID           string  `json:"uuid"`
	Title          string  `json:"title"`
	Kind           string  `json:"kind"`
	OfferType      string  `json:"offer_type"`
	Status         string  `json:"status"`
	City           string  `json:"city"`
	PostalCode     string  `json:"postal_code"`
	PriceCents     int64   `json:"price_cents"`
	PriceFormatted string  `json:"price_formatted"`
	Rooms          float32 `json:"rooms"`
	LivingArea     float32 `json:"living_area"`
	IsFeatured     bool    `json:"is_featured"`
	ShareLink      string  `json:"share_link"`
	CoverPhotoURL  string  `json:"cover_photo_url,omitempty"`
}

// PropertyDetail extends the summary with the full description and photos.
type PropertyDetail struct {
	PropertySummary
	Description string       `json:"description"`
	Address     string       `json:"address"`
	PlotArea    float32      `json:"plot_area"`
	YearBuilt   int          `json:"year_built"`
	ViewCount   int64        `json:"view_count"`
	Photos      []PhotoEntry `json:"photos"`
}

// PhotoEntry describes one processed listing photo.
type PhotoEntry struct {
	UUID      string `json:"uuid"`
	URL       string `json:"url,omitempty"`
	ThumbURL  string `json:"thumb_url,omitempty"`
	MediumURL string `json:"medium_url,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	IsCover   bool   `json:"is_cover"`
}

// APIServer bundles the v1 JSON handlers.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetProperties lists published listings, filtered and paginated.
func (s *APIServer) GetProperties(c *fiber.Ctx) error {
	filter := repository.PropertySearchFilter{
		Query:     c.Query("q"),
		City:      c.Query("city"),
		Kind:      c.Query("kind"),
		OfferType: c.Query("offer_type"),
	}
	filter.MinPriceCents = int64(c.QueryInt("min_price_cents", 0))
	filter.MaxPriceCents = int64(c.QueryInt("max_price_cents", 0))
	if c.Query("featured") == "true" {
		filter.FeaturedOnly = true
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 20)
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	propertyRepo := repository.GetGlobalFactory().GetPropertyRepository()
	items, total, err := propertyRepo.Search(filter, (page-1)*perPage, perPage)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	photoCfg, _ := photos.LoadConfig()
	summaries := make([]PropertySummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, summarize(&items[i], photoCfg))
	}

	return c.JSON(fiber.Map{
		"items":    summaries,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// GetProperty returns a single listing by UUID. Drafts and archived
// listings are only visible to their owner.
func (s *APIServer) GetProperty(c *fiber.Ctx, uuid string) error {
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "uuid missing"})
	}

	propertyRepo := repository.GetGlobalFactory().GetPropertyRepository()
	property, err := propertyRepo.GetByUUID(uuid)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	public := property.Status == models.PropertyStatusPublished ||
		property.Status == models.PropertyStatusReserved ||
		property.Status == models.PropertyStatusSold
	if !public && property.UserID != usercontext.GetUserID(c) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	photoCfg, _ := photos.LoadConfig()
	detail := PropertyDetail{
		PropertySummary: summarize(property, photoCfg),
		Description:     property.Description,
		Address:         property.Address,
		PlotArea:        property.PlotArea,
		YearBuilt:       property.YearBuilt,
		ViewCount:       property.ViewCount,
		Photos:          make([]PhotoEntry, 0, len(property.Images)),
	}
	for i := range property.Images {
		detail.Photos = append(detail.Photos, photoEntry(&property.Images[i], photoCfg))
	}

	return c.JSON(detail)
}

// GetMyProperties returns the authenticated user's own listings, drafts included.
func (s *APIServer) GetMyProperties(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	propertyRepo := repository.GetGlobalFactory().GetPropertyRepository()
	items, err := propertyRepo.GetByUserID(userID, 0, 200)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	photoCfg, _ := photos.LoadConfig()
	summaries := make([]PropertySummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, summarize(&items[i], photoCfg))
	}
	return c.JSON(fiber.Map{"items": summaries, "total": len(summaries)})
}

// GetPhotoStatus returns processing status for a listing photo (JSON)
func (s *APIServer) GetPhotoStatus(c *fiber.Ctx, uuid string) error {
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "uuid missing"})
	}

	propertyRepo := repository.GetGlobalFactory().GetPropertyRepository()
	image, err := propertyRepo.GetImageByUUID(uuid)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	complete := image.ThumbObjectKey != "" && image.MediumObjectKey != ""
	resp := fiber.Map{"complete": complete}
	if complete {
		if cfg, err := photos.LoadConfig(); err == nil {
			resp["url"] = cfg.PublicURL(image.ObjectKey)
			resp["thumb_url"] = cfg.PublicURL(image.ThumbObjectKey)
			resp["medium_url"] = cfg.PublicURL(image.MediumObjectKey)
		}
	}
	return c.JSON(resp)
}

// GetUserProfile returns account information for the authenticated user (API key).
// Security is enforced via API key middleware attached in the router.
func (s *APIServer) GetUserProfile(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	user, err := userRepo.GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	stats, err := userRepo.GetStatsByUserID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	return c.JSON(fiber.Map{
		"name":            user.Name,
		"email":           user.Email,
		"agency_name":     user.AgencyName,
		"plan":            settings.Plan,
		"member_since":    user.CreatedAt,
		"property_count":  stats.PropertyCount,
		"published_count": stats.PublishedCount,
		"unread_messages": stats.UnreadMessages,
	})
}

func summarize(p *models.Property, cfg *photos.Config) PropertySummary {
	s := PropertySummary{
		UUID:           p.UUID,
		Title:          p.Title,
		Kind:           p.Kind,
		OfferType:      p.OfferType,
		Status:         p.Status,
		City:           p.City,
		PostalCode:     p.PostalCode,
		PriceCents:     p.PriceCents,
		PriceFormatted: utils.FormatPriceCents(p.PriceCents, p.OfferType == models.OfferTypeRent),
		Rooms:          p.Rooms,
		LivingArea:     p.LivingArea,
		IsFeatured:     p.IsFeatured,
		ShareLink:      p.ShareLink,
	}
	if cfg != nil {
		for i := range p.Images {
			img := &p.Images[i]
			if img.IsCover && img.ThumbObjectKey != "" {
				s.CoverPhotoURL = cfg.PublicURL(img.ThumbObjectKey)
				break
			}
		}
	}
	return s
}

func photoEntry(img *models.PropertyImage, cfg *photos.Config) PhotoEntry {
	e := PhotoEntry{
		UUID:    img.UUID,
		Width:   img.Width,
		Height:  img.Height,
		IsCover: img.IsCover,
	}
	if cfg != nil {
		e.URL = cfg.PublicURL(img.ObjectKey)
		if img.ThumbObjectKey != "" {
			e.ThumbURL = cfg.PublicURL(img.ThumbObjectKey)
		}
		if img.MediumObjectKey != "" {
			e.MediumURL = cfg.PublicURL(img.MediumObjectKey)
		}
	}
	return e
}
