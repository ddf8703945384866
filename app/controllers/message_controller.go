package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/app/repository"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/database"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/mail"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/usercontext"
)

// HandleMessageInbox shows received inquiries, newest first
func HandleMessageInbox(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetMessageRepository()

	page := parsePage(c.Query("page"))
	messages, err := repo.GetInbox(userCtx.UserID, (page-1)*25, 25)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Nachrichten konnten nicht geladen werden")
	}

	unread, err := repo.CountUnread(userCtx.UserID)
	if err != nil {
		log.Warnf("[Message] unread count failed for user %d: %v", userCtx.UserID, err)
	}

	data := renderData(c, "Nachrichten")
	data["Messages"] = messages
	data["UnreadCount"] = unread
	data["Page"] = page
	return c.Render("message/inbox", data)
}

// HandleMessageThread shows one conversation and marks it read
func HandleMessageThread(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	propertyRepo := repository.GetGlobalFactory().GetPropertyRepository()
	messageRepo := repository.GetGlobalFactory().GetMessageRepository()

	property, err := propertyRepo.GetByUUID(c.Params("uuid"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
	}

	otherID := parseUintParam(c, "user_id")
	if otherID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Ungültiger Gesprächspartner")
	}

	// Only the two participants may read the thread
	if userCtx.UserID != property.UserID && otherID != property.UserID {
		return fiber.NewError(fiber.StatusForbidden, "Kein Zugriff auf dieses Gespräch")
	}

	messages, err := messageRepo.GetThread(property.ID, userCtx.UserID, otherID, 0, 200)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Gespräch konnte nicht geladen werden")
	}

	if err := messageRepo.MarkThreadRead(property.ID, userCtx.UserID, otherID); err != nil {
		log.Warnf("[Message] mark read failed: %v", err)
	}

	data := renderData(c, "Gespräch")
	data["Property"] = property
	data["Messages"] = messages
	data["OtherUserID"] = otherID
	return c.Render("message/thread", data)
}

// HandleMessageSend stores an inquiry to a listing and notifies the recipient
func HandleMessageSend(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	propertyRepo := repository.GetGlobalFactory().GetPropertyRepository()
	messageRepo := repository.GetGlobalFactory().GetMessageRepository()

	property, err := propertyRepo.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Inserat konnte nicht geladen werden")
	}

	if !property.IsPublished() && property.UserID != userCtx.UserID {
		return fiber.NewError(fiber.StatusNotFound, "Inserat nicht gefunden")
	}

	recipientID := property.UserID
	if recipientID == userCtx.UserID {
		// Owner replying inside an existing thread
		recipientID = parseUintParam(c, "user_id")
		if recipientID == 0 || recipientID == userCtx.UserID {
			return fiber.NewError(fiber.StatusBadRequest, "Ungültiger Empfänger")
		}
	}

	message := &models.Message{
		PropertyID:  property.ID,
		SenderID:    userCtx.UserID,
		RecipientID: recipientID,
		Body:        strings.TrimSpace(c.FormValue("body")),
	}
	if err := message.Validate(); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Nachricht darf nicht leer sein"}).
			Redirect(c.OriginalURL())
	}

	if err := messageRepo.Create(message); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Nachricht konnte nicht gesendet werden"}).
			Redirect(c.OriginalURL())
	}

	go notifyRecipient(property, message, userCtx.Username)

	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Nachricht gesendet"}).
		Redirect(fmt.Sprintf("/messages/%s/%d", property.UUID, recipientID))
}

// notifyRecipient sends the email notification if the recipient opted in
func notifyRecipient(property *models.Property, message *models.Message, senderName string) {
	userRepo := repository.GetGlobalFactory().GetUserRepository()
	recipient, err := userRepo.GetByID(message.RecipientID)
	if err != nil {
		log.Warnf("[Message] recipient %d not found for notification: %v", message.RecipientID, err)
		return
	}

	settings, err := models.GetOrCreateUserSettings(database.GetDB(), recipient.ID)
	if err != nil || settings == nil || !settings.NotifyOnMessage {
		return
	}

	messageURL := fmt.Sprintf("%s/messages/%s/%d",
		strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/"), property.UUID, message.SenderID)
	if err := mail.SendInquiryNotification(recipient.Email, property.Title, senderName, messageURL); err != nil {
		log.Warnf("[Message] notification mail to %s failed: %v", recipient.Email, err)
	}
}

func parseUintParam(c *fiber.Ctx, name string) uint {
	v, err := c.ParamsInt(name)
	if err != nil || v <= 0 {
		return 0
	}
	return uint(v)
}
