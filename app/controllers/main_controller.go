package controllers

import (
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/cache"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/statistics"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/utils"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/viewmodel"
)

// HandleHome renders the start page with featured and recent listings
func HandleHome(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	featured, err := repo.GetFeatured(6)
	if err != nil {
		log.Warnf("[Main] loading featured listings failed: %v", err)
	}
	recent, err := repo.GetRecent(12)
	if err != nil {
		log.Warnf("[Main] loading recent listings failed: %v", err)
	}

	stats := statistics.GetStatistics()

	data := renderData(c, "Immobilien finden")
	data["Featured"] = featured
	data["Recent"] = recent
	data["Stats"] = stats
	return c.Render("main/home", data)
}

// HandleSearch runs the listing search with filters from the query string
func HandleSearch(c *fiber.Ctx) error {
	filter := repository.PropertySearchFilter{
		Query:     c.Query("q"),
		City:      c.Query("city"),
		Kind:      c.Query("kind"),
		OfferType: c.Query("offer_type"),
	}
	if v := c.Query("min_price"); v != "" {
		if euros, err := strconv.ParseInt(v, 10, 64); err == nil && euros > 0 {
			filter.MinPriceCents = euros * 100
		}
	}
	if v := c.Query("max_price"); v != "" {
		if euros, err := strconv.ParseInt(v, 10, 64); err == nil && euros > 0 {
			filter.MaxPriceCents = euros * 100
		}
	}
	if v := c.Query("min_rooms"); v != "" {
		if rooms, err := strconv.ParseFloat(v, 32); err == nil && rooms > 0 {
			filter.MinRooms = float32(rooms)
		}
	}

	page := parsePage(c.Query("page"))
	const perPage = 20

	repo := repository.GetGlobalFactory().GetPropertyRepository()
	properties, total, err := repo.Search(filter, (page-1)*perPage, perPage)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Suche fehlgeschlagen")
	}

	data := renderData(c, "Suchergebnisse")
	data["Properties"] = properties
	data["Total"] = total
	data["Page"] = page
	data["TotalPages"] = (total + perPage - 1) / perPage
	data["Filter"] = filter
	return c.Render("main/search", data)
}

// HandleExpose renders the public detail page of a listing via its share link
func HandleExpose(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	property, err := repo.GetByShareLink(c.Params("sharelink"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Inserat konnte nicht geladen werden")
	}

	userCtx := usercontext.GetUserContext(c)
	isOwner := userCtx.IsLoggedIn && userCtx.UserID == property.UserID
	if !property.IsPublished() && !isOwner && !userCtx.IsAdmin {
		return fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
	}

	trackView(c, property, isOwner)

	isFavorite := false
	if userCtx.IsLoggedIn {
		isFavorite, _ = repo.IsFavorite(userCtx.UserID, property.ID)
	}

	vm := viewmodel.NewExpose(property, publicDomain(c))

	data := renderData(c, property.Title)
	data["Property"] = property
	data["Owner"] = property.User
	data["OwnerAvatar"] = avatarFor(&property.User)
	data["IsOwner"] = isOwner
	data["IsFavorite"] = isFavorite
	data["Expose"] = vm
	data["PriceFormatted"] = vm.PriceFormatted
	data["OG"] = vm.OG
	return c.Render("main/expose", data)
}

// trackView counts a view at most once per IP and hour, using Redis as dedupe
func trackView(c *fiber.Ctx, property *models.Property, isOwner bool) {
	if isOwner {
		return
	}

	ipv4, ipv6 := GetClientIP(c)
	ip := ipv4
	if ip == "" {
		ip = ipv6
	}

	key := fmt.Sprintf("view:%d:%s", property.ID, ip)
	if val, err := cache.Get(key); err == nil && val != "" {
		return
	}
	if err := cache.Set(key, "1", time.Hour); err != nil {
		log.Warnf("[Main] view dedupe cache write failed: %v", err)
	}

	if err := counter.AddPropertyView(property.ID); err != nil {
		log.Warnf("[Main] view count increment failed for property %d: %v", property.ID, err)
	}
}

// HandlePage serves an editorial page (impressum, AGB, ratgeber) by slug
func HandlePage(c *fiber.Ctx) error {
	pageRepo := repository.GetGlobalFactory().GetPageRepository()

	page, err := pageRepo.GetBySlug(c.Params("slug"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Seite nicht gefunden")
	}

	data := renderData(c, page.Title)
	data["Page"] = page
	data["Content"] = template.HTML(utils.ProcessHTMLContent(page.Content))
	data["MetaDescription"] = page.MetaDescription
	return c.Render("main/page", data)
}

// HandleAbout renders the static about page
func HandleAbout(c *fiber.Ctx) error {
	data := renderData(c, "Über uns")
	return c.Render("main/about", data)
}
