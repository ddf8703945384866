package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewHub(t *testing.T) {
	h := NewHub(nil)
	assert.NotNil(t, h)
	assert.Equal(t, 0, h.ClientCount())
}

func TestPublishWithoutClientsDoesNotPanic(t *testing.T) {
	h := NewHub(nil)
	h.Publish(context.Background(), Event{Kind: EventPublished, UUID: "abc"})
}

func TestPublishStampsOccurredAt(t *testing.T) {
	ev := Event{Kind: EventPriceChanged, UUID: "abc", PriceCents: 35000000}
	assert.True(t, ev.OccurredAt.IsZero())

	h := NewHub(nil)
	h.Publish(context.Background(), ev)
	// Publish works on a copy; the caller's event stays untouched.
	assert.True(t, ev.OccurredAt.IsZero())
}

func TestEventJSONShape(t *testing.T) {
	ev := Event{
		Kind:       EventSold,
		UUID:       "9b1deb4d",
		ShareLink:  "aBc123",
		Title:      "Einfamilienhaus in Koeln",
		City:       "Koeln",
		PriceCents: 54900000,
		OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	assert.NoError(t, err)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "property.sold", decoded["kind"])
	assert.Equal(t, "aBc123", decoded["share_link"])
	assert.Equal(t, float64(54900000), decoded["price_cents"])
}
