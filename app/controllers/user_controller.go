package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/database"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/utils"
)

// HandleUserDashboard shows listings, inquiries and plan usage at a glance
func HandleUserDashboard(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	factory := repository.GetGlobalFactory()

	stats, err := factory.GetUserRepository().GetStatsByUserID(userCtx.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Dashboard konnte nicht geladen werden")
	}

	properties, err := factory.GetPropertyRepository().GetByUserID(userCtx.UserID, 0, 5)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Dashboard konnte nicht geladen werden")
	}

	user, err := factory.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Dashboard konnte nicht geladen werden")
	}

	limits := entitlements.LimitsFor(entitlements.ParsePlan(userCtx.Plan))

	data := renderData(c, "Dashboard")
	data["Stats"] = stats
	data["Properties"] = properties
	data["Limits"] = limits
	data["HasSubscription"] = user.HasActiveSubscription()
	if user.CurrentPeriodEnd != nil {
		data["PeriodEnd"] = user.CurrentPeriodEnd.Format("02.01.2006")
	}
	return c.Render("user/dashboard", data)
}

// HandleUserSettings renders and updates profile and notification settings
func HandleUserSettings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	userRepo := repository.GetGlobalFactory().GetUserRepository()

	user, err := userRepo.GetByID(userCtx.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Einstellungen konnten nicht geladen werden")
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userCtx.UserID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Einstellungen konnten nicht geladen werden")
	}

	if c.Method() == fiber.MethodPost {
		user.Name = strings.TrimSpace(c.FormValue("name", user.Name))
		user.Bio = c.FormValue("bio", user.Bio)
		user.Phone = strings.TrimSpace(c.FormValue("phone", user.Phone))
		user.AgencyName = strings.TrimSpace(c.FormValue("agency_name", user.AgencyName))

		settings.NotifyOnMessage = c.FormValue("notify_on_message") == "on"
		settings.NotifyOnSavedQuery = c.FormValue("notify_on_saved_query") == "on"
		settings.PublicProfile = c.FormValue("public_profile") == "on"

		if err := userRepo.Update(user); err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Speichern fehlgeschlagen"}).Redirect("/user/settings")
		}
		if err := database.GetDB().Save(settings).Error; err != nil {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Speichern fehlgeschlagen"}).Redirect("/user/settings")
		}

		refreshSessionPlan(c, settings.Plan)

		return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Einstellungen gespeichert"}).Redirect("/user/settings")
	}

	var linked []models.ProviderAccount
	_ = database.GetDB().Where("user_id = ?", user.ID).Find(&linked).Error

	data := renderData(c, "Einstellungen")
	data["User"] = user
	data["Settings"] = settings
	data["LinkedAccounts"] = linked
	data["AvatarURL"] = avatarFor(user)
	data["HasSubscription"] = user.HasActiveSubscription()
	if user.CurrentPeriodEnd != nil {
		data["PeriodEnd"] = user.CurrentPeriodEnd.Format("02.01.2006")
	}
	return c.Render("user/settings", data)
}

// HandleUserAPIKeyIssue generates a fresh API key and shows it exactly once
func HandleUserAPIKeyIssue(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht erstellt werden"}).Redirect("/user/settings")
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht erstellt werden"}).Redirect("/user/settings")
	}
	if err := database.GetDB().Save(settings).Error; err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht gespeichert werden"}).Redirect("/user/settings")
	}

	// The raw key is only shown in this one response
	return flash.WithSuccess(c, fiber.Map{
		"type":    "success",
		"message": fmt.Sprintf("Neuer API-Key: %s (wird nur einmal angezeigt)", rawKey),
	}).Redirect("/user/settings")
}

// HandleUserAPIKeyRevoke invalidates the current API key
func HandleUserAPIKeyRevoke(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), userCtx.UserID)
	if err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht widerrufen werden"}).Redirect("/user/settings")
	}

	settings.RevokeAPIKey()
	if err := database.GetDB().Save(settings).Error; err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "API-Key konnte nicht widerrufen werden"}).Redirect("/user/settings")
	}

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "API-Key widerrufen"}).Redirect("/user/settings")
}

// HandleUserProfile shows a public agent profile with their active listings
func HandleUserProfile(c *fiber.Ctx) error {
	userID := parseUintParam(c, "id")
	if userID == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Profil nicht gefunden")
	}

	factory := repository.GetGlobalFactory()
	user, err := factory.GetUserRepository().GetByID(userID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Profil nicht gefunden")
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), user.ID)
	if err != nil || !settings.PublicProfile {
		return fiber.NewError(fiber.StatusNotFound, "Profil nicht gefunden")
	}

	properties, err := factory.GetPropertyRepository().GetByUserID(user.ID, 0, 50)
	if err != nil {
		log.Warnf("[User] loading listings for profile %d failed: %v", user.ID, err)
	}
	public := make([]models.Property, 0, len(properties))
	for _, p := range properties {
		if p.IsPublished() {
			public = append(public, p)
		}
	}

	data := renderData(c, user.Name)
	data["Profile"] = user
	data["AvatarURL"] = avatarFor(user)
	data["Properties"] = public
	data["MemberSince"] = user.CreatedAt.Format("January 2006")
	return c.Render("user/profile", data)
}

func avatarFor(user *models.User) string {
	if user.AvatarURL != "" {
		return user.AvatarURL
	}
	return utils.GetGravatarURL(user.Email, 200)
}
