package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/billing"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
)

const validTestSignature = "t=1,v1=valid"

// stubGateway verifies against a fixed signature and decodes the standard
// Stripe envelope, mirroring what the real gateway returns.
type stubGateway struct{}

func (g *stubGateway) VerifyWebhook(payload []byte, signatureHeader string) (billing.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return billing.Event{}, billing.ErrMissingSignature
	}
	if signatureHeader != validTestSignature {
		return billing.Event{}, billing.ErrInvalidSignature
	}
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return billing.Event{}, billing.ErrInvalidSignature
	}
	return billing.Event{ID: envelope.ID, Kind: envelope.Type, Raw: envelope.Data.Object}, nil
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, _ billing.CheckoutParams) (*billing.CheckoutSession, error) {
	return nil, errors.New("not used")
}

func (g *stubGateway) CreatePortalSession(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("not used")
}

func (g *stubGateway) GetSubscription(_ context.Context, subscriptionID string) (*billing.Subscription, error) {
	return &billing.Subscription{
		ID:               subscriptionID,
		Status:           "active",
		PriceID:          "price_agent",
		CurrentPeriodEnd: time.Unix(1700000000, 0).UTC(),
	}, nil
}

type stubRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	events   map[string]*models.BillingWebhookEvent
	nextID   uint
	failSave bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:  make(map[string]*models.User),
		events: make(map[string]*models.BillingWebhookEvent),
		nextID: 1,
	}
}

func (r *stubRepo) GetUserByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) GetUserByStripeCustomerID(customerID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[customerID]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) LinkStripeCustomer(userID uint, customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == userID && u.StripeCustomerID == nil {
			cid := customerID
			u.StripeCustomerID = &cid
			r.users[customerID] = u
		}
	}
	return nil
}

func (r *stubRepo) UpdateSubscriptionByCustomerID(customerID, subscriptionID string, periodEnd *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("disk on fire")
	}
	if u, ok := r.users[customerID]; ok {
		sid := subscriptionID
		u.StripeSubscriptionID = &sid
		u.CurrentPeriodEnd = periodEnd
	}
	return nil
}

func (r *stubRepo) ClearSubscriptionByCustomerID(customerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[customerID]; ok {
		u.StripeSubscriptionID = nil
		u.CurrentPeriodEnd = nil
	}
	return nil
}

func (r *stubRepo) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	return &models.UserSettings{UserID: userID, Plan: string(entitlements.PlanFree)}, nil
}

func (r *stubRepo) SaveUserSettings(us *models.UserSettings) error { return nil }

func (r *stubRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.events[event.StripeEventID]; ok {
		return false, existing, nil
	}
	event.ID = r.nextID
	r.nextID++
	r.events[event.StripeEventID] = event
	return true, event, nil
}

func (r *stubRepo) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
		}
	}
	return nil
}

func newWebhookTestApp(repo billing.Repository) *fiber.App {
	SetBillingService(billing.NewService(repo, &stubGateway{}, billing.NewPriceCatalog(map[string]entitlements.Plan{
		"price_agent": entitlements.PlanAgent,
	})))

	app := fiber.New()
	app.Post("/webhook/stripe", HandleStripeWebhook)
	return app
}

func subscriptionEventBody(eventID, customerID string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"type": "customer.subscription.created",
		"data": {"object": {
			"id": "sub_1",
			"customer": %q,
			"status": "active",
			"current_period_end": 1700000000,
			"items": {"data": [{"price": {"id": "price_agent"}, "current_period_end": 1700000000}]}
		}}
	}`, eventID, customerID)
}

func postWebhook(t *testing.T, app *fiber.App, body, signature string) int {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhook/stripe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	app := newWebhookTestApp(newStubRepo())

	status := postWebhook(t, app, subscriptionEventBody("evt_1", "cus_1"), "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestStripeWebhookInvalidSignature(t *testing.T) {
	app := newWebhookTestApp(newStubRepo())

	status := postWebhook(t, app, subscriptionEventBody("evt_1", "cus_1"), "t=1,v1=forged")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestStripeWebhookAppliesSubscription(t *testing.T) {
	repo := newStubRepo()
	uid := uint(7)
	cid := "cus_7"
	repo.users[cid] = &models.User{ID: uid, StripeCustomerID: &cid}
	app := newWebhookTestApp(repo)

	status := postWebhook(t, app, subscriptionEventBody("evt_1", cid), validTestSignature)
	assert.Equal(t, fiber.StatusOK, status)

	user := repo.users[cid]
	require.NotNil(t, user.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *user.StripeSubscriptionID)
	require.NotNil(t, user.CurrentPeriodEnd)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), user.CurrentPeriodEnd.UTC())
}

func TestStripeWebhookDuplicateDeliveryIsAcknowledged(t *testing.T) {
	repo := newStubRepo()
	cid := "cus_7"
	repo.users[cid] = &models.User{ID: 7, StripeCustomerID: &cid}
	app := newWebhookTestApp(repo)

	body := subscriptionEventBody("evt_dup", cid)
	assert.Equal(t, fiber.StatusOK, postWebhook(t, app, body, validTestSignature))
	assert.Equal(t, fiber.StatusOK, postWebhook(t, app, body, validTestSignature))
	assert.Len(t, repo.events, 1)
}

func TestStripeWebhookUnknownKindIsAcknowledged(t *testing.T) {
	app := newWebhookTestApp(newStubRepo())

	body := `{"id": "evt_x", "type": "charge.refunded", "data": {"object": {}}}`
	assert.Equal(t, fiber.StatusOK, postWebhook(t, app, body, validTestSignature))
}

func TestStripeWebhookPersistenceFailureIs500(t *testing.T) {
	repo := newStubRepo()
	cid := "cus_7"
	repo.users[cid] = &models.User{ID: 7, StripeCustomerID: &cid}
	repo.failSave = true
	app := newWebhookTestApp(repo)

	status := postWebhook(t, app, subscriptionEventBody("evt_1", cid), validTestSignature)
	assert.Equal(t, fiber.StatusInternalServerError, status)

	// The failure is recorded on the ledger entry
	ev := repo.events["evt_1"]
	require.NotNil(t, ev)
	assert.NotEmpty(t, ev.ProcessingError)
}
