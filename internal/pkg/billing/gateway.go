package billing

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
)

// Config carries the injected Stripe configuration. It is constructed
// explicitly (not read ambiently) so the service and controllers stay
// testable with a fake gateway.
type Config struct {
	APIKey        string
	WebhookSecret string
	PublicDomain  string
}

// ConfigFromEnv loads the Stripe configuration from the environment.
func ConfigFromEnv() Config {
	domain := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if domain == "" {
		domain = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}
	return Config{
		APIKey:        env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		PublicDomain:  domain,
	}
}

// CheckoutParams describes a checkout session request against the gateway.
type CheckoutParams struct {
	PriceID       string
	UserID        uint
	CustomerID    string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Gateway is the billing provider boundary. Stripe is the only production
// implementation; tests use a fake.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	VerifyWebhook(payload []byte, signatureHeader string) (Event, error)
}

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	cfg Config
}

// NewStripeGateway creates the gateway and installs the API key for the
// stripe-go package clients.
func NewStripeGateway(cfg Config) *StripeGateway {
	stripe.Key = cfg.APIKey
	return &StripeGateway{cfg: cfg}
}

// Domain returns the configured public base URL for redirect targets.
func (g *StripeGateway) Domain() string {
	return g.cfg.PublicDomain
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(strconv.FormatUint(uint64(p.UserID), 10)),
	}
	params.Context = ctx
	// Reuse the linked customer so Stripe does not create a second one.
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		return nil, &ProviderError{Op: "checkout session create", Err: err}
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	ps, err := portalsession.New(params)
	if err != nil {
		return "", &ProviderError{Op: "portal session create", Err: err}
	}
	return ps.URL, nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := subscription.Get(subscriptionID, params)
	if err != nil {
		return nil, &ProviderError{Op: "subscription get", Err: err}
	}

	sub := &Subscription{
		ID:     s.ID,
		Status: string(s.Status),
	}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		if item.Price != nil {
			sub.PriceID = item.Price.ID
		}
		if item.CurrentPeriodEnd > 0 {
			sub.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		}
	}
	return sub, nil
}

// VerifyWebhook checks the signature header against the webhook secret and
// decodes the envelope. A forged or corrupted payload never reaches the
// synchronizer.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return Event{}, ErrMissingSignature
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, ErrInvalidSignature
	}

	return Event{ID: ev.ID, Kind: string(ev.Type), Raw: ev.Data.Raw}, nil
}
