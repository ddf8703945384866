package billing

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIDRefUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain id", in: `"cus_1"`, want: "cus_1"},
		{name: "expanded object", in: `{"id":"cus_2","email":"a@b.c"}`, want: "cus_2"},
		{name: "null", in: `null`, want: ""},
	}

	for _, tt := range tests {
		var r idRef
		if err := json.Unmarshal([]byte(tt.in), &r); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if string(r) != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, r, tt.want)
		}
	}
}

func TestSubscriptionPayloadPeriodEnd(t *testing.T) {
	// Pre-2025 API shape: period end on the subscription itself.
	var old subscriptionPayload
	if err := json.Unmarshal([]byte(`{"id":"sub_1","customer":"cus_1","current_period_end":1700000000}`), &old); err != nil {
		t.Fatal(err)
	}
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	if pe := old.periodEnd(); pe == nil || !pe.Equal(want) {
		t.Fatalf("old shape: got %v, want %v", pe, want)
	}

	// Current API shape: period end on the subscription item.
	var cur subscriptionPayload
	if err := json.Unmarshal([]byte(`{"id":"sub_1","customer":"cus_1","items":{"data":[{"current_period_end":1700000000,"price":{"id":"price_x"}}]}}`), &cur); err != nil {
		t.Fatal(err)
	}
	if pe := cur.periodEnd(); pe == nil || !pe.Equal(want) {
		t.Fatalf("item shape: got %v, want %v", pe, want)
	}
	if cur.priceID() != "price_x" {
		t.Fatalf("priceID: got %q", cur.priceID())
	}

	var empty subscriptionPayload
	if err := json.Unmarshal([]byte(`{"id":"sub_1","customer":"cus_1"}`), &empty); err != nil {
		t.Fatal(err)
	}
	if empty.periodEnd() != nil {
		t.Fatalf("missing period end must stay nil")
	}
}

func TestInvoicePayloadSubscriptionID(t *testing.T) {
	var flat invoicePayload
	if err := json.Unmarshal([]byte(`{"customer":"cus_1","subscription":"sub_1"}`), &flat); err != nil {
		t.Fatal(err)
	}
	if flat.subscriptionID() != "sub_1" {
		t.Fatalf("flat shape: got %q", flat.subscriptionID())
	}

	var nested invoicePayload
	if err := json.Unmarshal([]byte(`{"customer":"cus_1","parent":{"subscription_details":{"subscription":"sub_2"}}}`), &nested); err != nil {
		t.Fatal(err)
	}
	if nested.subscriptionID() != "sub_2" {
		t.Fatalf("nested shape: got %q", nested.subscriptionID())
	}

	var none invoicePayload
	if err := json.Unmarshal([]byte(`{"customer":"cus_1"}`), &none); err != nil {
		t.Fatal(err)
	}
	if none.subscriptionID() != "" {
		t.Fatalf("one-off invoice must have no subscription id")
	}
}
