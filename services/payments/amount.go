// Package payments holds the donation payment orchestration: the Stripe
// PaymentIntent + webhook flow and the PayPal OAuth + order flow. Both are
// hand-written HTTP clients; vendor-side objects stay the source of truth.
package payments

import (
	"errors"
	"math"

	"harborlight/models"
)

const (
	// MinimumAmountCents is the smallest accepted donation ($1.00).
	MinimumAmountCents = 100

	// Currency is fixed for all donations.
	Currency = "usd"
)

var (
	// ErrAmountInvalid marks a non-finite donation amount (400 class).
	ErrAmountInvalid = errors.New("amount must be a finite number of cents")

	// ErrAmountTooSmall marks a donation below the minimum (400 class).
	ErrAmountTooSmall = errors.New("donation amount is below the $1.00 minimum")

	// ErrNotConfigured marks missing vendor credentials (500 class). Kept
	// distinct from vendor failures so operators can tell a deployment gap
	// from a vendor outage.
	ErrNotConfigured = errors.New("payment provider is not configured")

	// ErrVendorResponse marks a vendor call that came back non-success or
	// structurally incomplete (502 class).
	ErrVendorResponse = errors.New("unexpected payment provider response")
)

// Ledger records completed donations for operator traceability. Recording
// failures must never fail the vendor acknowledgment; callers log and move
// on.
type Ledger interface {
	Record(rec models.DonationRecord) error
}

// NormalizeAmount validates a requested donation amount in cents and rounds
// it to the nearest whole cent. Values that round below the minimum are
// rejected, so 99.4 fails while 100.6 becomes 101.
func NormalizeAmount(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrAmountInvalid
	}
	cents := int64(math.Round(amount))
	if cents < MinimumAmountCents {
		return 0, ErrAmountTooSmall
	}
	return cents, nil
}
