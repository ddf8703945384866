package billing

import (
	"strings"

	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
)

// PriceCatalog is the fixed allow-list of Stripe price ids the shop sells,
// mapped to internal plans. Checkout requests are validated against it
// before Stripe is ever contacted.
type PriceCatalog struct {
	prices map[string]entitlements.Plan
}

// NewPriceCatalog builds a catalog from an explicit price -> plan mapping.
func NewPriceCatalog(prices map[string]entitlements.Plan) *PriceCatalog {
	c := &PriceCatalog{prices: make(map[string]entitlements.Plan, len(prices))}
	for id, plan := range prices {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		c.prices[id] = plan
	}
	return c
}

// NewPriceCatalogFromEnv reads the configured price ids. Unset entries are
// simply absent from the catalog.
func NewPriceCatalogFromEnv() *PriceCatalog {
	return NewPriceCatalog(map[string]entitlements.Plan{
		env.GetEnv("STRIPE_PRICE_AGENT_MONTHLY", ""):  entitlements.PlanAgent,
		env.GetEnv("STRIPE_PRICE_AGENT_YEARLY", ""):   entitlements.PlanAgent,
		env.GetEnv("STRIPE_PRICE_AGENCY_MONTHLY", ""): entitlements.PlanAgency,
		env.GetEnv("STRIPE_PRICE_AGENCY_YEARLY", ""):  entitlements.PlanAgency,
	})
}

// Contains reports whether the price id is sellable.
func (c *PriceCatalog) Contains(priceID string) bool {
	_, ok := c.prices[strings.TrimSpace(priceID)]
	return ok
}

// PlanFor resolves a price id to its internal plan. Unknown prices resolve
// to the free plan so a bad mapping never grants entitlements.
func (c *PriceCatalog) PlanFor(priceID string) entitlements.Plan {
	if plan, ok := c.prices[strings.TrimSpace(priceID)]; ok {
		return plan
	}
	return entitlements.PlanFree
}

// isEntitlingStatus reports whether a subscription status grants paid
// entitlements. past_due keeps access until Stripe gives up on the payment.
func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
