package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/realtime"
)

// HandleAdminDashboard shows platform-wide counts and webhook health
func HandleAdminDashboard(c *fiber.Ctx) error {
	factory := repository.GetGlobalFactory()

	userCount, err := factory.GetUserRepository().Count()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Admin-Übersicht konnte nicht geladen werden")
	}
	propertyCount, err := factory.GetPropertyRepository().Count()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Admin-Übersicht konnte nicht geladen werden")
	}
	eventCount, err := factory.GetBillingEventRepository().Count()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Admin-Übersicht konnte nicht geladen werden")
	}
	failedEvents, err := factory.GetBillingEventRepository().CountFailedSince(time.Now().Add(-24 * time.Hour))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Admin-Übersicht konnte nicht geladen werden")
	}

	data := renderData(c, "Admin")
	data["UserCount"] = userCount
	data["PropertyCount"] = propertyCount
	data["WebhookEventCount"] = eventCount
	data["FailedWebhookEvents24h"] = failedEvents
	if hub := realtime.GetHub(); hub != nil {
		data["WebsocketClients"] = hub.ClientCount()
	}
	return c.Render("admin/dashboard", data)
}

// HandleAdminUsers lists users with their listing counts, with search
func HandleAdminUsers(c *fiber.Ctx) error {
	userRepo := repository.GetGlobalFactory().GetUserRepository()

	data := renderData(c, "Benutzerverwaltung")

	if query := strings.TrimSpace(c.Query("q")); query != "" {
		users, err := userRepo.Search(query)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Suche fehlgeschlagen")
		}
		data["Users"] = users
		data["Query"] = query
		return c.Render("admin/users", data)
	}

	page := parsePage(c.Query("page"))
	users, err := userRepo.GetWithStats((page-1)*50, 50)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Benutzer konnten nicht geladen werden")
	}

	data["UsersWithStats"] = users
	data["Page"] = page
	return c.Render("admin/users", data)
}

// HandleAdminUserStatus activates or disables a user account
func HandleAdminUserStatus(c *fiber.Ctx) error {
	userRepo := repository.GetGlobalFactory().GetUserRepository()

	userID := parseUintParam(c, "id")
	user, err := userRepo.GetByID(userID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Benutzer nicht gefunden")
	}

	status := c.FormValue("status")
	switch status {
	case models.STATUS_ACTIVE, models.STATUS_DISABLED:
		user.Status = status
	default:
		return fiber.NewError(fiber.StatusBadRequest, "Ungültiger Status")
	}

	if err := userRepo.Update(user); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Speichern fehlgeschlagen"}).Redirect("/admin/users")
	}

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Benutzer aktualisiert"}).Redirect("/admin/users")
}

// HandleAdminProperties lists all listings for moderation
func HandleAdminProperties(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	page := parsePage(c.Query("page"))
	properties, total, err := repo.Search(repository.PropertySearchFilter{Query: c.Query("q")}, (page-1)*50, 50)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Inserate konnten nicht geladen werden")
	}

	data := renderData(c, "Inseratsmoderation")
	data["Properties"] = properties
	data["Total"] = total
	data["Page"] = page
	return c.Render("admin/properties", data)
}

// HandleAdminPropertyTakedown archives a listing violating the rules
func HandleAdminPropertyTakedown(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetPropertyRepository()

	property, err := repo.GetByUUID(c.Params("uuid"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
	}

	property.Status = models.PropertyStatusArchived
	property.IsFeatured = false
	if err := repo.Update(property); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Speichern fehlgeschlagen"}).Redirect("/admin/properties")
	}

	publishRealtime(realtime.EventRemoved, property)

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Inserat offline genommen"}).Redirect("/admin/properties")
}

// HandleAdminPages manages editorial pages
func HandleAdminPages(c *fiber.Ctx) error {
	pageRepo := repository.GetGlobalFactory().GetPageRepository()

	if c.Method() == fiber.MethodPost {
		page := &models.Page{
			Title:           strings.TrimSpace(c.FormValue("title")),
			Slug:            strings.TrimSpace(c.FormValue("slug")),
			Content:         c.FormValue("content"),
			MetaDescription: strings.TrimSpace(c.FormValue("meta_description")),
			IsActive:        c.FormValue("is_active") == "on",
		}
		if err := page.Validate(); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Eingaben unvollständig"}).Redirect("/admin/pages")
		}
		if exists, err := pageRepo.SlugExists(page.Slug); err != nil || exists {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Slug bereits vergeben"}).Redirect("/admin/pages")
		}
		if err := pageRepo.Create(page); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Seite konnte nicht angelegt werden"}).Redirect("/admin/pages")
		}
		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Seite angelegt"}).Redirect("/admin/pages")
	}

	pages, err := pageRepo.GetAll()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Seiten konnten nicht geladen werden")
	}

	data := renderData(c, "Seitenverwaltung")
	data["Pages"] = pages
	return c.Render("admin/pages", data)
}

// HandleAdminBillingEvents shows the received Stripe webhook ledger
func HandleAdminBillingEvents(c *fiber.Ctx) error {
	eventRepo := repository.GetGlobalFactory().GetBillingEventRepository()

	page := parsePage(c.Query("page"))
	events, err := eventRepo.List((page-1)*50, 50)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Ereignisse konnten nicht geladen werden")
	}
	total, err := eventRepo.Count()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Ereignisse konnten nicht geladen werden")
	}

	data := renderData(c, "Billing-Ereignisse")
	data["Events"] = events
	data["Total"] = total
	data["Page"] = page
	return c.Render("admin/billing_events", data)
}
