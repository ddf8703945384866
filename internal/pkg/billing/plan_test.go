package billing

import (
	"testing"

	"github.com/ManuelReschke/ImmoFox/internal/pkg/entitlements"
)

func TestPriceCatalog(t *testing.T) {
	c := NewPriceCatalog(map[string]entitlements.Plan{
		"price_agent":  entitlements.PlanAgent,
		"price_agency": entitlements.PlanAgency,
		"":             entitlements.PlanAgency, // unset env entries are skipped
	})

	if !c.Contains("price_agent") {
		t.Fatalf("expected price_agent in catalog")
	}
	if c.Contains("") || c.Contains("price_other") {
		t.Fatalf("catalog must only contain configured prices")
	}
	if got := c.PlanFor("price_agency"); got != entitlements.PlanAgency {
		t.Fatalf("PlanFor(price_agency) = %q", got)
	}
	if got := c.PlanFor("price_other"); got != entitlements.PlanFree {
		t.Fatalf("unknown prices must resolve to free, got %q", got)
	}
}

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due", "ACTIVE"} {
		if !isEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "incomplete", "incomplete_expired", "unpaid", "paused", ""} {
		if isEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}
