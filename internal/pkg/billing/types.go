package billing

import (
	"bytes"
	"encoding/json"
	"time"
)

// Event is the verified, decoded webhook envelope handed to the
// synchronizer: the provider event id, the event kind and the raw object
// payload.
type Event struct {
	ID   string
	Kind string
	Raw  json.RawMessage
}

// Subscription is the provider-neutral projection of a Stripe subscription
// as returned by the gateway.
type Subscription struct {
	ID               string
	CustomerID       string
	PriceID          string
	Status           string
	CurrentPeriodEnd time.Time
}

// CheckoutSession is the result of a checkout session creation: the opaque
// session id plus the hosted payment page URL the client redirects to.
type CheckoutSession struct {
	ID  string
	URL string
}

// idRef decodes a Stripe reference field that is either a plain id string
// or an expanded object, depending on the endpoint's expand configuration.
type idRef string

func (r *idRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = idRef(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = idRef(obj.ID)
	return nil
}

// subscriptionPayload covers the subscription object shape across Stripe
// API versions: period end lived on the subscription before 2025-03 and on
// the subscription items afterwards.
type subscriptionPayload struct {
	ID               string `json:"id"`
	Customer         idRef  `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Items            struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

func (p *subscriptionPayload) periodEnd() *time.Time {
	ts := p.CurrentPeriodEnd
	if ts == 0 && len(p.Items.Data) > 0 {
		ts = p.Items.Data[0].CurrentPeriodEnd
	}
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func (p *subscriptionPayload) priceID() string {
	if len(p.Items.Data) > 0 {
		return p.Items.Data[0].Price.ID
	}
	return ""
}

// invoicePayload extracts the customer and subscription references from an
// invoice event, again tolerant of both API shapes.
type invoicePayload struct {
	Customer     idRef `json:"customer"`
	Subscription idRef `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription idRef `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p *invoicePayload) subscriptionID() string {
	if p.Subscription != "" {
		return string(p.Subscription)
	}
	return string(p.Parent.SubscriptionDetails.Subscription)
}

// checkoutSessionPayload is the slice of checkout.session.completed we care
// about: which Stripe customer was created and which local user started the
// checkout.
type checkoutSessionPayload struct {
	Customer          idRef  `json:"customer"`
	ClientReferenceID string `json:"client_reference_id"`
	Mode              string `json:"mode"`
}
