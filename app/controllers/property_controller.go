package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/photos"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/realtime"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/shortener"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/upload"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/usercontext"
)

// photoProcessor is lazily initialized; nil while S3 is not configured
var photoProcessor *photos.Processor

// SetPhotoProcessor wires the photo pipeline into the upload handlers
func SetPhotoProcessor(p *photos.Processor) {
	photoProcessor = p
}

// HandlePropertyList shows the logged-in user's own listings
func HandlePropertyList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	page := parsePage(c.Query("page"))
	properties, err := repo.GetByUserID(userCtx.UserID, (page-1)*20, 20)
	if err != nil {
		log.Errorf("[Property] listing own properties failed for user %d: %v", userCtx.UserID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Inserate konnten nicht geladen werden")
	}

	data := renderData(c, "Meine Inserate")
	data["Properties"] = properties
	data["Page"] = page
	return c.Render("property/list", data)
}

// HandlePropertyNew renders the creation form and creates a draft on POST
func HandlePropertyNew(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	if c.Method() == fiber.MethodPost {
		property := models.NewProperty(userCtx.UserID, strings.TrimSpace(c.FormValue("title")))
		if err := fillPropertyFromForm(property, c); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": err.Error()}).Redirect("/properties/new")
		}

		shareLink, err := shortener.GenerateShareLink()
		if err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Inserat konnte nicht angelegt werden"}).Redirect("/properties/new")
		}
		property.ShareLink = shareLink

		if err := property.Validate(); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": fmt.Sprintf("Eingaben unvollständig: %s", err)}).Redirect("/properties/new")
		}

		repo := repository.GetGlobalFactory().GetPropertyRepository()
		if err := repo.Create(property); err != nil {
			log.Errorf("[Property] create failed for user %d: %v", userCtx.UserID, err)
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Inserat konnte nicht gespeichert werden"}).Redirect("/properties/new")
		}

		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Entwurf angelegt. Füge jetzt Fotos hinzu!"}).
			Redirect("/properties/" + property.UUID + "/edit")
	}

	data := renderData(c, "Neues Inserat")
	return c.Render("property/new", data)
}

// HandlePropertyEdit renders the edit form and applies updates on POST
func HandlePropertyEdit(c *fiber.Ctx) error {
	property, err := ownedProperty(c)
	if err != nil {
		return err
	}

	if c.Method() == fiber.MethodPost {
		oldPrice := property.PriceCents
		if err := fillPropertyFromForm(property, c); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": err.Error()}).
				Redirect("/properties/" + property.UUID + "/edit")
		}
		if err := property.Validate(); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": fmt.Sprintf("Eingaben unvollständig: %s", err)}).
				Redirect("/properties/" + property.UUID + "/edit")
		}

		repo := repository.GetGlobalFactory().GetPropertyRepository()
		if err := repo.Update(property); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Speichern fehlgeschlagen"}).
				Redirect("/properties/" + property.UUID + "/edit")
		}

		if property.IsPublished() && property.PriceCents != oldPrice {
			publishRealtime(realtime.EventPriceChanged, property)
		}

		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Inserat gespeichert"}).
			Redirect("/properties/" + property.UUID + "/edit")
	}

	data := renderData(c, "Inserat bearbeiten")
	data["Property"] = property
	return c.Render("property/edit", data)
}

// HandlePropertyPublish makes a draft publicly visible if the plan allows it
func HandlePropertyPublish(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	property, err := ownedProperty(c)
	if err != nil {
		return err
	}

	repo := repository.GetGlobalFactory().GetPropertyRepository()
	activeCount, err := repo.CountPublishedByUserID(userCtx.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Limitprüfung fehlgeschlagen")
	}

	plan := entitlements.ParsePlan(userCtx.Plan)
	if !property.IsPublished() && !entitlements.CanPublish(plan, int(activeCount)) {
		return flash.WithError(c, fiber.Map{
			"type":    "error",
			"message": "Dein Tarif erlaubt keine weiteren aktiven Inserate. Jetzt upgraden!",
		}).Redirect("/preise")
	}

	now := time.Now()
	property.Status = models.PropertyStatusPublished
	if property.PublishedAt == nil {
		property.PublishedAt = &now
	}
	if err := repo.Update(property); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Veröffentlichen fehlgeschlagen"}).
			Redirect("/properties")
	}

	publishRealtime(realtime.EventPublished, property)

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Inserat ist jetzt online!"}).
		Redirect("/properties")
}

// HandlePropertyStatus moves a listing to reserved, sold, or archived
func HandlePropertyStatus(c *fiber.Ctx) error {
	property, err := ownedProperty(c)
	if err != nil {
		return err
	}

	target := c.FormValue("status")
	var eventKind string
	switch target {
	case models.PropertyStatusReserved:
		eventKind = realtime.EventReserved
	case models.PropertyStatusSold:
		eventKind = realtime.EventSold
	case models.PropertyStatusArchived:
		eventKind = realtime.EventRemoved
	case models.PropertyStatusDraft:
		eventKind = realtime.EventRemoved
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Ungültiger Status")
	}

	property.Status = target
	repo := repository.GetGlobalFactory().GetPropertyRepository()
	if err := repo.Update(property); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Statuswechsel fehlgeschlagen"}).
			Redirect("/properties")
	}

	publishRealtime(eventKind, property)

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Status aktualisiert"}).
		Redirect("/properties")
}

// HandlePropertyFeature toggles the featured flag within the plan limit
func HandlePropertyFeature(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	property, err := ownedProperty(c)
	if err != nil {
		return err
	}

	repo := repository.GetGlobalFactory().GetPropertyRepository()

	if !property.IsFeatured {
		featuredCount, err := repo.CountFeaturedByUserID(userCtx.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Limitprüfung fehlgeschlagen")
		}
		plan := entitlements.ParsePlan(userCtx.Plan)
		if !entitlements.CanFeature(plan, int(featuredCount)) {
			return flash.WithError(c, fiber.Map{
				"type":    "error",
				"message": "Dein Tarif erlaubt keine weiteren Top-Inserate",
			}).Redirect("/properties")
		}
	}

	property.IsFeatured = !property.IsFeatured
	if err := repo.Update(property); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Speichern fehlgeschlagen"}).
			Redirect("/properties")
	}

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Inserat aktualisiert"}).
		Redirect("/properties")
}

// HandlePropertyDelete removes a listing and announces the removal
func HandlePropertyDelete(c *fiber.Ctx) error {
	property, err := ownedProperty(c)
	if err != nil {
		return err
	}

	wasPublic := property.IsPublished()
	repo := repository.GetGlobalFactory().GetPropertyRepository()
	if err := repo.Delete(property.ID); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Löschen fehlgeschlagen"}).
			Redirect("/properties")
	}

	if wasPublic {
		publishRealtime(realtime.EventRemoved, property)
	}

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Inserat gelöscht"}).
		Redirect("/properties")
}

// HandlePropertyPhotoUpload accepts a multipart photo and queues processing
func HandlePropertyPhotoUpload(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	property, err := ownedProperty(c)
	if err != nil {
		return err
	}

	repo := repository.GetGlobalFactory().GetPropertyRepository()
	photoCount, err := repo.CountImages(property.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Fotoprüfung fehlgeschlagen")
	}

	limits := entitlements.LimitsFor(entitlements.ParsePlan(userCtx.Plan))
	if limits.MaxPhotosPerListing >= 0 && int(photoCount) >= limits.MaxPhotosPerListing {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "photo_limit_reached",
			"message": "Fotolimit für diesen Tarif erreicht",
		})
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_file"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable_file"})
	}
	defer file.Close()

	head := make([]byte, 512)
	n, _ := io.ReadFull(file, head)
	contentType, err := upload.ValidateImageBySniff(fileHeader.Filename, head[:n])
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "unsupported_image",
			"message": err.Error(),
		})
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable_file"})
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "unsupported_image"})
	}

	photo := &models.PropertyImage{
		PropertyID:  property.ID,
		UUID:        uuid.New().String(),
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		SortIndex:   int(photoCount),
		IsCover:     photoCount == 0,
	}
	if err := repo.AddImage(photo); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "photo_persist_failed"})
	}

	if photoProcessor == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "photo_storage_unconfigured"})
	}
	photoProcessor.Enqueue(photo, img)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"ok":   true,
		"uuid": photo.UUID,
	})
}

// HandleFavoriteToggle bookmarks or unbookmarks a listing for the user
func HandleFavoriteToggle(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	property, err := repo.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Inserat konnte nicht geladen werden")
	}

	isFav, err := repo.IsFavorite(userCtx.UserID, property.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Merkliste nicht verfügbar")
	}

	if isFav {
		err = repo.RemoveFavorite(userCtx.UserID, property.ID)
	} else {
		err = repo.AddFavorite(userCtx.UserID, property.ID)
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Merkliste nicht verfügbar")
	}

	return c.JSON(fiber.Map{"ok": true, "favorite": !isFav})
}

// HandleFavoritesList shows the user's bookmarked listings
func HandleFavoritesList(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	properties, err := repo.GetFavorites(userCtx.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Merkliste konnte nicht geladen werden")
	}

	data := renderData(c, "Merkliste")
	data["Properties"] = properties
	return c.Render("property/favorites", data)
}

// ownedProperty loads the listing from the :uuid param and checks ownership.
// Admins may edit any listing.
func ownedProperty(c *fiber.Ctx) (*models.Property, error) {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	property, err := repo.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
		}
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Inserat konnte nicht geladen werden")
	}

	if property.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return nil, fiber.NewError(fiber.StatusForbidden, "Kein Zugriff auf dieses Inserat")
	}

	return property, nil
}

func fillPropertyFromForm(p *models.Property, c *fiber.Ctx) error {
	if title := strings.TrimSpace(c.FormValue("title")); title != "" {
		p.Title = title
	}
	p.Description = c.FormValue("description")
	p.Kind = c.FormValue("kind", p.Kind)
	p.OfferType = c.FormValue("offer_type", p.OfferType)
	p.City = strings.TrimSpace(c.FormValue("city", p.City))
	p.PostalCode = strings.TrimSpace(c.FormValue("postal_code", p.PostalCode))
	p.Address = strings.TrimSpace(c.FormValue("address", p.Address))

	if v := c.FormValue("price_euro"); v != "" {
		euros, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		if err != nil || euros < 0 {
			return errors.New("Ungültiger Preis")
		}
		p.PriceCents = int64(euros * 100)
	}
	if v := c.FormValue("rooms"); v != "" {
		rooms, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 32)
		if err != nil || rooms < 0 {
			return errors.New("Ungültige Zimmeranzahl")
		}
		p.Rooms = float32(rooms)
	}
	if v := c.FormValue("living_area"); v != "" {
		area, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 32)
		if err != nil || area < 0 {
			return errors.New("Ungültige Wohnfläche")
		}
		p.LivingArea = float32(area)
	}
	if v := c.FormValue("plot_area"); v != "" {
		area, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 32)
		if err != nil || area < 0 {
			return errors.New("Ungültige Grundstücksfläche")
		}
		p.PlotArea = float32(area)
	}
	if v := c.FormValue("year_built"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil || year < 0 {
			return errors.New("Ungültiges Baujahr")
		}
		p.YearBuilt = year
	}

	return nil
}

func publishRealtime(kind string, p *models.Property) {
	hub := realtime.GetHub()
	if hub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Publish(ctx, realtime.Event{
		Kind:       kind,
		UUID:       p.UUID,
		ShareLink:  p.ShareLink,
		Title:      p.Title,
		City:       p.City,
		PriceCents: p.PriceCents,
	})
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
