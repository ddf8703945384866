package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
	"gorm.io/gorm"
)

type fakeRepository struct {
	users     map[string]*models.User // keyed by stripe customer id
	usersByID map[uint]*models.User
	settings  map[uint]*models.UserSettings
	events    map[string]*models.BillingWebhookEvent
	nextID    uint

	failUpdates bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:     make(map[string]*models.User),
		usersByID: make(map[uint]*models.User),
		settings:  make(map[uint]*models.UserSettings),
		events:    make(map[string]*models.BillingWebhookEvent),
	}
}

func (r *fakeRepository) addUser(id uint, customerID string) *models.User {
	u := &models.User{ID: id, Name: "Testuser", Email: "test@example.com"}
	if customerID != "" {
		cid := customerID
		u.StripeCustomerID = &cid
		r.users[customerID] = u
	}
	r.usersByID[id] = u
	return u
}

func (r *fakeRepository) GetUserByID(id uint) (*models.User, error) {
	if u, ok := r.usersByID[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetUserByStripeCustomerID(customerID string) (*models.User, error) {
	if u, ok := r.users[customerID]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) LinkStripeCustomer(userID uint, customerID string) error {
	u, ok := r.usersByID[userID]
	if !ok {
		return nil
	}
	if u.StripeCustomerID != nil {
		return nil // set once
	}
	cid := customerID
	u.StripeCustomerID = &cid
	r.users[customerID] = u
	return nil
}

func (r *fakeRepository) UpdateSubscriptionByCustomerID(customerID, subscriptionID string, periodEnd *time.Time) error {
	if r.failUpdates {
		return errors.New("db down")
	}
	if u, ok := r.users[customerID]; ok {
		sid := subscriptionID
		u.StripeSubscriptionID = &sid
		u.CurrentPeriodEnd = periodEnd
	}
	return nil
}

func (r *fakeRepository) ClearSubscriptionByCustomerID(customerID string) error {
	if r.failUpdates {
		return errors.New("db down")
	}
	if u, ok := r.users[customerID]; ok {
		u.StripeSubscriptionID = nil
		u.CurrentPeriodEnd = nil
	}
	return nil
}

func (r *fakeRepository) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	if us, ok := r.settings[userID]; ok {
		return us, nil
	}
	us := &models.UserSettings{UserID: userID, Plan: "free"}
	r.settings[userID] = us
	return us, nil
}

func (r *fakeRepository) SaveUserSettings(us *models.UserSettings) error {
	r.settings[us.UserID] = us
	return nil
}

func (r *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if stored, ok := r.events[event.StripeEventID]; ok {
		return false, stored, nil
	}
	r.nextID++
	event.ID = r.nextID
	r.events[event.StripeEventID] = event
	return true, event, nil
}

func (r *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, ev := range r.events {
		if ev.ID == id {
			now := time.Now()
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
		}
	}
	return nil
}

type fakeGateway struct {
	subscriptions map[string]*Subscription
	checkoutCalls int
	portalCalls   int
	fail          bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{subscriptions: make(map[string]*Subscription)}
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	g.checkoutCalls++
	if g.fail {
		return nil, &ProviderError{Op: "checkout session create", Err: errors.New("stripe down")}
	}
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (g *fakeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	g.portalCalls++
	if g.fail {
		return "", &ProviderError{Op: "portal session create", Err: errors.New("stripe down")}
	}
	return "https://portal.stripe.test/" + customerID, nil
}

func (g *fakeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if g.fail {
		return nil, &ProviderError{Op: "subscription get", Err: errors.New("stripe down")}
	}
	if sub, ok := g.subscriptions[subscriptionID]; ok {
		return sub, nil
	}
	return nil, &ProviderError{Op: "subscription get", Err: errors.New("no such subscription")}
}

func (g *fakeGateway) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	if signatureHeader == "" {
		return Event{}, ErrMissingSignature
	}
	if signatureHeader != "valid" {
		return Event{}, ErrInvalidSignature
	}
	var env struct {
		ID   string          `json:"id"`
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, ErrInvalidSignature
	}
	return Event{ID: env.ID, Kind: env.Type, Raw: env.Data}, nil
}

func testCatalog() *PriceCatalog {
	return NewPriceCatalog(map[string]entitlements.Plan{
		"price_agent_monthly":  entitlements.PlanAgent,
		"price_agency_monthly": entitlements.PlanAgency,
	})
}

func newTestService() (*Service, *fakeRepository, *fakeGateway) {
	repo := newFakeRepository()
	gw := newFakeGateway()
	return NewService(repo, gw, testCatalog()), repo, gw
}

func subscriptionEvent(kind, subID, customerID string, periodEnd int64, status, priceID string) Event {
	raw, _ := json.Marshal(map[string]interface{}{
		"id":       subID,
		"customer": customerID,
		"status":   status,
		"items": map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"current_period_end": periodEnd,
					"price":              map[string]interface{}{"id": priceID},
				},
			},
		},
	})
	return Event{ID: "evt_" + kind + "_" + subID, Kind: kind, Raw: raw}
}

func TestSyncEventSubscriptionCreated(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "cus_1")

	ev := subscriptionEvent("customer.subscription.created", "sub_1", "cus_1", 1700000000, "active", "price_agent_monthly")
	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("SyncEvent: %v", err)
	}

	u := repo.users["cus_1"]
	if u.StripeSubscriptionID == nil || *u.StripeSubscriptionID != "sub_1" {
		t.Fatalf("expected subscription sub_1 to be stored, got %v", u.StripeSubscriptionID)
	}
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	if u.CurrentPeriodEnd == nil || !u.CurrentPeriodEnd.Equal(want) {
		t.Fatalf("expected period end %v, got %v", want, u.CurrentPeriodEnd)
	}
	if repo.settings[1].Plan != "agent" {
		t.Fatalf("expected plan agent, got %q", repo.settings[1].Plan)
	}
}

func TestSyncEventIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "cus_1")

	ev := subscriptionEvent("customer.subscription.updated", "sub_1", "cus_1", 1700000000, "active", "price_agent_monthly")
	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	first := *repo.users["cus_1"]

	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	second := *repo.users["cus_1"]

	if *first.StripeSubscriptionID != *second.StripeSubscriptionID ||
		!first.CurrentPeriodEnd.Equal(*second.CurrentPeriodEnd) {
		t.Fatalf("applying the same event twice changed the state: %+v vs %+v", first, second)
	}
}

func TestSyncEventDeletedClearsFields(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "cus_1")

	created := subscriptionEvent("customer.subscription.created", "sub_1", "cus_1", 1700000000, "active", "price_agent_monthly")
	deleted := subscriptionEvent("customer.subscription.deleted", "sub_1", "cus_1", 0, "canceled", "")

	if err := svc.SyncEvent(context.Background(), created); err != nil {
		t.Fatalf("created: %v", err)
	}
	if err := svc.SyncEvent(context.Background(), deleted); err != nil {
		t.Fatalf("deleted: %v", err)
	}

	u := repo.users["cus_1"]
	if u.StripeSubscriptionID != nil || u.CurrentPeriodEnd != nil {
		t.Fatalf("expected cleared fields after delete, got %+v", u)
	}
	if repo.settings[1].Plan != "free" {
		t.Fatalf("expected plan free after delete, got %q", repo.settings[1].Plan)
	}
}

func TestSyncEventDeletedFiresEndedHookOnce(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "cus_1")

	var fired int
	svc.SetSubscriptionEndedHook(func(user *models.User) {
		fired++
		if user.ID != 1 {
			t.Fatalf("hook got user %d, want 1", user.ID)
		}
	})

	created := subscriptionEvent("customer.subscription.created", "sub_1", "cus_1", 1700000000, "active", "price_agent_monthly")
	deleted := subscriptionEvent("customer.subscription.deleted", "sub_1", "cus_1", 0, "canceled", "")

	if err := svc.SyncEvent(context.Background(), created); err != nil {
		t.Fatalf("created: %v", err)
	}
	if err := svc.SyncEvent(context.Background(), deleted); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	// Redelivery of the same delete must not notify the user again.
	if err := svc.SyncEvent(context.Background(), deleted); err != nil {
		t.Fatalf("redelivered: %v", err)
	}

	if fired != 1 {
		t.Fatalf("hook fired %d times, want 1", fired)
	}
}

// Reordered delivery (deleted before created) is accepted last-write-wins
// behavior: whatever arrives last dictates the stored state.
func TestSyncEventLastWriteWins(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "cus_1")

	created := subscriptionEvent("customer.subscription.created", "sub_1", "cus_1", 1700000000, "active", "price_agent_monthly")
	deleted := subscriptionEvent("customer.subscription.deleted", "sub_1", "cus_1", 0, "canceled", "")

	if err := svc.SyncEvent(context.Background(), deleted); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if err := svc.SyncEvent(context.Background(), created); err != nil {
		t.Fatalf("created: %v", err)
	}

	u := repo.users["cus_1"]
	if u.StripeSubscriptionID == nil || *u.StripeSubscriptionID != "sub_1" {
		t.Fatalf("last event was created, expected sub_1 stored, got %v", u.StripeSubscriptionID)
	}
}

func TestSyncEventUnknownKindIsNoop(t *testing.T) {
	svc, repo, _ := newTestService()
	u := repo.addUser(1, "cus_1")

	ev := Event{ID: "evt_x", Kind: "customer.tax_id.created", Raw: json.RawMessage(`{"customer":"cus_1"}`)}
	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("unknown kind must be acknowledged, got %v", err)
	}
	if u.StripeSubscriptionID != nil || u.CurrentPeriodEnd != nil {
		t.Fatalf("unknown kind mutated the record store: %+v", u)
	}
}

func TestSyncEventUnknownCustomerIsIgnored(t *testing.T) {
	svc, _, _ := newTestService()

	ev := subscriptionEvent("customer.subscription.updated", "sub_9", "cus_unknown", 1700000000, "active", "price_agent_monthly")
	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("events for unlinked customers must be acknowledged, got %v", err)
	}
}

func TestSyncEventInvoicePaidRefetchesSubscription(t *testing.T) {
	svc, repo, gw := newTestService()
	repo.addUser(1, "cus_1")

	authoritative := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	gw.subscriptions["sub_1"] = &Subscription{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		PriceID:          "price_agency_monthly",
		Status:           "active",
		CurrentPeriodEnd: authoritative,
	}

	raw, _ := json.Marshal(map[string]interface{}{
		"customer":     "cus_1",
		"subscription": "sub_1",
	})
	ev := Event{ID: "evt_inv_1", Kind: "invoice.paid", Raw: raw}
	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("invoice.paid: %v", err)
	}

	u := repo.users["cus_1"]
	if u.CurrentPeriodEnd == nil || !u.CurrentPeriodEnd.Equal(authoritative) {
		t.Fatalf("expected authoritative period end %v, got %v", authoritative, u.CurrentPeriodEnd)
	}
	if repo.settings[1].Plan != "agency" {
		t.Fatalf("expected plan agency, got %q", repo.settings[1].Plan)
	}
}

func TestSyncEventInvoicePaidWithoutSubscriptionIsNoop(t *testing.T) {
	svc, repo, _ := newTestService()
	u := repo.addUser(1, "cus_1")

	ev := Event{ID: "evt_inv_2", Kind: "invoice.paid", Raw: json.RawMessage(`{"customer":"cus_1"}`)}
	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("one-off invoice must be acknowledged, got %v", err)
	}
	if u.StripeSubscriptionID != nil {
		t.Fatalf("one-off invoice mutated the record store")
	}
}

func TestSyncEventPaymentFailedClearsFields(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "cus_1")

	created := subscriptionEvent("customer.subscription.created", "sub_1", "cus_1", 1700000000, "active", "price_agent_monthly")
	if err := svc.SyncEvent(context.Background(), created); err != nil {
		t.Fatalf("created: %v", err)
	}

	raw, _ := json.Marshal(map[string]interface{}{
		"customer":     "cus_1",
		"subscription": "sub_1",
	})
	failed := Event{ID: "evt_inv_3", Kind: "invoice.payment_failed", Raw: raw}
	if err := svc.SyncEvent(context.Background(), failed); err != nil {
		t.Fatalf("payment_failed: %v", err)
	}

	u := repo.users["cus_1"]
	if u.StripeSubscriptionID != nil || u.CurrentPeriodEnd != nil {
		t.Fatalf("expected cleared fields after payment failure, got %+v", u)
	}
}

func TestSyncEventCheckoutCompletedLinksCustomer(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(7, "")

	raw, _ := json.Marshal(map[string]interface{}{
		"customer":            "cus_new",
		"client_reference_id": "7",
		"mode":                "subscription",
	})
	ev := Event{ID: "evt_cs_1", Kind: "checkout.session.completed", Raw: raw}
	if err := svc.SyncEvent(context.Background(), ev); err != nil {
		t.Fatalf("checkout.session.completed: %v", err)
	}

	u := repo.usersByID[7]
	if u.StripeCustomerID == nil || *u.StripeCustomerID != "cus_new" {
		t.Fatalf("expected linked customer cus_new, got %v", u.StripeCustomerID)
	}
}

func TestSyncEventPersistenceErrorIsSurfaced(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "cus_1")
	repo.failUpdates = true

	ev := subscriptionEvent("customer.subscription.updated", "sub_1", "cus_1", 1700000000, "active", "price_agent_monthly")
	err := svc.SyncEvent(context.Background(), ev)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError so the delivery is retried, got %v", err)
	}
}

func TestCreateCheckoutSessionValidatesPrice(t *testing.T) {
	svc, repo, gw := newTestService()
	repo.addUser(1, "")

	_, err := svc.CreateCheckoutSession(context.Background(), 1, "price_bogus", "https://example.test/ok", "https://example.test/cancel")
	if !errors.Is(err, ErrUnknownPrice) {
		t.Fatalf("expected ErrUnknownPrice, got %v", err)
	}
	if gw.checkoutCalls != 0 {
		t.Fatalf("unknown price must not reach the provider, got %d calls", gw.checkoutCalls)
	}

	cs, err := svc.CreateCheckoutSession(context.Background(), 1, "price_agent_monthly", "https://example.test/ok", "https://example.test/cancel")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if cs.ID == "" {
		t.Fatalf("expected a non-empty session id")
	}
	if gw.checkoutCalls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", gw.checkoutCalls)
	}
}

func TestCreatePortalSessionRequiresLinkedCustomer(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.addUser(1, "")
	repo.addUser(2, "cus_2")

	if _, err := svc.CreatePortalSession(context.Background(), 1, "https://example.test/billing"); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}

	url, err := svc.CreatePortalSession(context.Background(), 2, "https://example.test/billing")
	if err != nil {
		t.Fatalf("portal: %v", err)
	}
	if url == "" {
		t.Fatalf("expected a portal url")
	}
}

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	svc, _, _ := newTestService()

	ev := Event{ID: "evt_1", Kind: "invoice.paid", Raw: json.RawMessage(`{}`)}
	created, _, err := svc.RecordWebhookEvent(context.Background(), ev)
	if err != nil || !created {
		t.Fatalf("first delivery should create the ledger row: %v %v", created, err)
	}
	created, _, err = svc.RecordWebhookEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if created {
		t.Fatalf("duplicate delivery must not create a second ledger row")
	}
}
