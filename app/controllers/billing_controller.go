package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/billing"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/database"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/mail"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/session"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/usercontext"
)

// billingService lets tests swap in a service wired to fakes
var billingService *billing.Service

// SetBillingService installs the billing service used by the handlers
func SetBillingService(svc *billing.Service) {
	billingService = svc
}

func getBillingService() *billing.Service {
	if billingService == nil {
		gateway := billing.NewStripeGateway(billing.ConfigFromEnv())
		billingService = billing.NewServiceFromDB(database.GetDB(), gateway, billing.NewPriceCatalogFromEnv())
		billingService.SetSubscriptionEndedHook(func(user *models.User) {
			if err := mail.SendSubscriptionEndedMail(user.Email, user.Name); err != nil {
				log.Errorf("[Billing] Abo-Ende-Mail an %s fehlgeschlagen: %v", user.Email, err)
			}
		})
	}
	return billingService
}

// HandleStripeWebhook receives Stripe webhook deliveries. The raw body is
// verified against the signature header, recorded in the event ledger for
// dedupe, and then handed to the synchronizer.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	svc := getBillingService()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	event, err := svc.VerifyWebhook(rawBody, signature)
	if err != nil {
		if errors.Is(err, billing.ErrMissingSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing_signature"})
		}
		if errors.Is(err, billing.ErrInvalidSignature) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	created, stored, err := svc.RecordWebhookEvent(ctx, event)
	if err != nil {
		log.Errorf("[Billing] failed to persist webhook event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	syncErr := svc.SyncEvent(ctx, event)
	if markErr := svc.MarkWebhookProcessed(ctx, stored.ID, syncErr); markErr != nil {
		log.Errorf("[Billing] failed to mark webhook event %d processed: %v", stored.ID, markErr)
	}
	if syncErr != nil {
		log.Errorf("[Billing] sync failed for event %s (%s): %v", event.ID, event.Kind, syncErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_sync_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}

// HandleBillingCheckout starts a Stripe Checkout session for the chosen price
func HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	priceID := strings.TrimSpace(c.FormValue("price_id"))
	if priceID == "" {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Kein Tarif ausgewählt"}).Redirect("/preise")
	}

	svc := getBillingService()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	domain := publicDomain(c)
	checkout, err := svc.CreateCheckoutSession(ctx, userCtx.UserID, priceID,
		domain+"/dashboard?checkout=success", domain+"/preise?checkout=cancelled")
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPrice) {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Unbekannter Tarif"}).Redirect("/preise")
		}
		log.Errorf("[Billing] checkout failed for user %d: %v", userCtx.UserID, err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Checkout konnte nicht gestartet werden"}).Redirect("/preise")
	}

	return c.Redirect(checkout.URL, fiber.StatusSeeOther)
}

// HandleBillingPortal redirects a subscribed user to the Stripe customer portal
func HandleBillingPortal(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	svc := getBillingService()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := svc.CreatePortalSession(ctx, userCtx.UserID, publicDomain(c)+"/user/settings")
	if err != nil {
		if errors.Is(err, billing.ErrNotLinked) {
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Kein aktives Abo vorhanden"}).Redirect("/preise")
		}
		log.Errorf("[Billing] portal session failed for user %d: %v", userCtx.UserID, err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Kundenportal ist gerade nicht erreichbar"}).Redirect("/user/settings")
	}

	return c.Redirect(url, fiber.StatusSeeOther)
}

// HandlePricing renders the plan comparison page
func HandlePricing(c *fiber.Ctx) error {
	data := renderData(c, "Preise")
	data["Plans"] = []fiber.Map{
		planEntry(entitlements.PlanFree, ""),
		planEntry(entitlements.PlanAgent, "STRIPE_PRICE_AGENT_MONTHLY"),
		planEntry(entitlements.PlanAgency, "STRIPE_PRICE_AGENCY_MONTHLY"),
	}
	return c.Render("billing/pricing", data)
}

func planEntry(plan entitlements.Plan, priceEnvKey string) fiber.Map {
	limits := entitlements.LimitsFor(plan)
	entry := fiber.Map{
		"Name":             string(plan),
		"MaxListings":      limits.MaxActiveListings,
		"MaxFeatured":      limits.MaxFeaturedListings,
		"MaxPhotos":        limits.MaxPhotosPerListing,
		"UnlimitedListing": limits.MaxActiveListings < 0,
	}
	if priceEnvKey != "" {
		entry["PriceID"] = env.GetEnv(priceEnvKey, "")
	}
	return entry
}

func publicDomain(c *fiber.Ctx) string {
	domain := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if domain == "" {
		domain = c.Protocol() + "://" + c.Hostname()
	}
	return domain
}

// refreshSessionPlan re-reads the plan after billing changes so the navbar
// and entitlement checks pick it up without re-login
func refreshSessionPlan(c *fiber.Ctx, plan string) {
	if plan == "" {
		plan = string(entitlements.PlanFree)
	}
	_ = session.SetSessionValue(c, usercontext.KeyPlan, plan)
}
