package billing

import (
	"errors"
	"fmt"
)

// Sentinel errors for client-facing rejections. Controllers map these to
// HTTP statuses; none of them are retried.
var (
	// ErrMissingSignature means the webhook request carried no
	// Stripe-Signature header at all.
	ErrMissingSignature = errors.New("billing: missing stripe signature header")

	// ErrInvalidSignature means signature verification against the webhook
	// secret failed. The payload is treated as forged or corrupted.
	ErrInvalidSignature = errors.New("billing: invalid stripe signature")

	// ErrUnknownPrice means a checkout was requested for a price id that is
	// not in the configured catalog. Checked before any Stripe call.
	ErrUnknownPrice = errors.New("billing: unknown price id")

	// ErrNotLinked means the user has no Stripe customer yet, so no portal
	// session can be created.
	ErrNotLinked = errors.New("billing: user has no linked stripe customer")
)

// ProviderError wraps a failed Stripe call. The webhook path surfaces it as
// a server error so Stripe redelivers; the checkout path surfaces it as a
// generic error and lets the user retry manually.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing: stripe %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed record store write during event
// synchronization. Surfaced as a server error so the provider retries the
// delivery; we never retry locally.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("billing: persist %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
