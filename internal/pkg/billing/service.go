package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
	"gorm.io/gorm"
)

// Service synchronizes Stripe lifecycle events into user records and
// creates checkout/portal sessions. All handlers are idempotent: delivery
// is at-least-once and Stripe may also reorder, so the design is
// last-write-wins per customer rather than locally ordered.
type Service struct {
	repo    Repository
	gateway Gateway
	catalog *PriceCatalog

	onSubscriptionEnded func(user *models.User)
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, gateway Gateway, catalog *PriceCatalog) *Service {
	return &Service{repo: repo, gateway: gateway, catalog: catalog}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, catalog *PriceCatalog) *Service {
	return NewService(NewRepository(db), gateway, catalog)
}

// SetSubscriptionEndedHook installs a callback that fires after a paid
// plan drops to free. The hook runs at most once per downgrade, not per
// delivery, so redelivered events stay quiet.
func (s *Service) SetSubscriptionEndedHook(fn func(user *models.User)) {
	s.onSubscriptionEnded = fn
}

// SyncEvent applies one verified webhook event to the record store. The
// event kinds we act on form a closed set; everything else is a deliberate
// no-op that still acknowledges the delivery. Events for customers without
// a local user row are likewise acknowledged and ignored.
func (s *Service) SyncEvent(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case "customer.subscription.created", "customer.subscription.updated":
		return s.syncSubscription(ctx, ev.Raw)
	case "customer.subscription.deleted":
		return s.clearSubscription(ctx, ev.Raw)
	case "invoice.paid":
		return s.syncInvoicePaid(ctx, ev.Raw)
	case "invoice.payment_failed":
		return s.clearOnPaymentFailure(ctx, ev.Raw)
	case "checkout.session.completed":
		return s.linkCheckoutCustomer(ctx, ev.Raw)
	default:
		// Stripe sends many event kinds we do not subscribe to logically;
		// they must never fail the delivery.
		return nil
	}
}

// syncSubscription upserts subscription id and period end on the row
// matching the customer id and reconciles the effective plan.
func (s *Service) syncSubscription(ctx context.Context, raw json.RawMessage) error {
	var p subscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.ID == "" || p.Customer == "" {
		return nil
	}

	user, err := s.repo.GetUserByStripeCustomerID(string(p.Customer))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return &PersistenceError{Op: "user lookup", Err: err}
	}

	if err := s.repo.UpdateSubscriptionByCustomerID(string(p.Customer), p.ID, p.periodEnd()); err != nil {
		return &PersistenceError{Op: "subscription upsert", Err: err}
	}

	plan := entitlements.PlanFree
	if isEntitlingStatus(p.Status) {
		plan = s.catalog.PlanFor(p.priceID())
	}
	return s.reconcilePlan(user.ID, plan)
}

// clearSubscription handles customer.subscription.deleted: both
// subscription fields go back to null and the plan drops to free.
func (s *Service) clearSubscription(ctx context.Context, raw json.RawMessage) error {
	var p subscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.Customer == "" {
		return nil
	}
	return s.clearByCustomer(string(p.Customer))
}

// syncInvoicePaid re-fetches the subscription from Stripe so the stored
// period end is the authoritative one, never locally derived from the
// invoice.
func (s *Service) syncInvoicePaid(ctx context.Context, raw json.RawMessage) error {
	var p invoicePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	subID := p.subscriptionID()
	if subID == "" {
		// One-off invoices carry no subscription; nothing to sync.
		return nil
	}

	sub, err := s.gateway.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}

	customerID := sub.CustomerID
	if customerID == "" {
		customerID = string(p.Customer)
	}
	if customerID == "" {
		return nil
	}

	user, err := s.repo.GetUserByStripeCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return &PersistenceError{Op: "user lookup", Err: err}
	}

	var pe *time.Time
	if !sub.CurrentPeriodEnd.IsZero() {
		t := sub.CurrentPeriodEnd
		pe = &t
	}
	if err := s.repo.UpdateSubscriptionByCustomerID(customerID, sub.ID, pe); err != nil {
		return &PersistenceError{Op: "subscription upsert", Err: err}
	}

	plan := entitlements.PlanFree
	if isEntitlingStatus(sub.Status) {
		plan = s.catalog.PlanFor(sub.PriceID)
	}
	return s.reconcilePlan(user.ID, plan)
}

// clearOnPaymentFailure treats a failed payment as loss of access until the
// user resolves it through the portal.
func (s *Service) clearOnPaymentFailure(ctx context.Context, raw json.RawMessage) error {
	var p invoicePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.subscriptionID() == "" || p.Customer == "" {
		return nil
	}
	return s.clearByCustomer(string(p.Customer))
}

// linkCheckoutCustomer stores the customer id minted during the user's
// first checkout. The user is referenced through client_reference_id.
func (s *Service) linkCheckoutCustomer(ctx context.Context, raw json.RawMessage) error {
	var p checkoutSessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	if p.Customer == "" || p.ClientReferenceID == "" {
		return nil
	}
	userID, err := strconv.ParseUint(p.ClientReferenceID, 10, 64)
	if err != nil || userID == 0 {
		return nil
	}
	if err := s.repo.LinkStripeCustomer(uint(userID), string(p.Customer)); err != nil {
		return &PersistenceError{Op: "customer link", Err: err}
	}
	return nil
}

func (s *Service) clearByCustomer(customerID string) error {
	user, err := s.repo.GetUserByStripeCustomerID(customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return &PersistenceError{Op: "user lookup", Err: err}
	}
	if err := s.repo.ClearSubscriptionByCustomerID(customerID); err != nil {
		return &PersistenceError{Op: "subscription clear", Err: err}
	}
	us, err := s.repo.GetOrCreateUserSettings(user.ID)
	if err != nil {
		return &PersistenceError{Op: "settings load", Err: err}
	}
	if entitlements.ParsePlan(us.Plan) == entitlements.PlanFree {
		return nil
	}
	us.Plan = string(entitlements.PlanFree)
	if err := s.repo.SaveUserSettings(us); err != nil {
		return &PersistenceError{Op: "settings save", Err: err}
	}
	if s.onSubscriptionEnded != nil {
		s.onSubscriptionEnded(user)
	}
	return nil
}

// reconcilePlan writes the effective plan into the user settings. Applying
// the same plan twice is a no-op, which keeps the handlers idempotent.
func (s *Service) reconcilePlan(userID uint, plan entitlements.Plan) error {
	us, err := s.repo.GetOrCreateUserSettings(userID)
	if err != nil {
		return &PersistenceError{Op: "settings load", Err: err}
	}
	if entitlements.ParsePlan(us.Plan) == plan {
		return nil
	}
	us.Plan = string(plan)
	if err := s.repo.SaveUserSettings(us); err != nil {
		return &PersistenceError{Op: "settings save", Err: err}
	}
	return nil
}

// RecordWebhookEvent persists the verified payload idempotently and reports
// whether this delivery is the first one for the event id.
func (s *Service) RecordWebhookEvent(ctx context.Context, ev Event) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(ev.ID)
	if eventID == "" {
		return false, nil, errors.New("billing: event id is required")
	}
	stored := &models.BillingWebhookEvent{
		StripeEventID: eventID,
		EventType:     ev.Kind,
		PayloadJSON:   string(ev.Raw),
	}
	return s.repo.CreateWebhookEventIfNotExists(stored)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("billing: webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// VerifyWebhook delegates to the gateway's signature check.
func (s *Service) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	return s.gateway.VerifyWebhook(payload, signatureHeader)
}

// CreateCheckoutSession validates the price against the catalog and creates
// a hosted checkout session. Validation happens before any Stripe call.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uint, priceID, successURL, cancelURL string) (*CheckoutSession, error) {
	if !s.catalog.Contains(priceID) {
		return nil, ErrUnknownPrice
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return nil, &PersistenceError{Op: "user lookup", Err: err}
	}

	params := CheckoutParams{
		PriceID:    priceID,
		UserID:     user.ID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	}
	if user.StripeCustomerID != nil {
		params.CustomerID = *user.StripeCustomerID
	} else {
		params.CustomerEmail = user.Email
	}

	return s.gateway.CreateCheckoutSession(ctx, params)
}

// CreatePortalSession creates a customer portal session for a linked user.
func (s *Service) CreatePortalSession(ctx context.Context, userID uint, returnURL string) (string, error) {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return "", &PersistenceError{Op: "user lookup", Err: err}
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNotLinked
	}
	return s.gateway.CreatePortalSession(ctx, *user.StripeCustomerID, returnURL)
}
