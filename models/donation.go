package models

import "time"

// DonationRecord is one completed (or attempted) donation as stored in the
// local ledger. Vendor-side objects remain the source of truth; the ledger
// exists for operator traceability.
type DonationRecord struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"` // "stripe" | "paypal"
	Reference   string    `json:"reference"` // PaymentIntent id or PayPal order id
	CaptureID   string    `json:"captureId,omitempty"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DonationTotals summarizes the ledger for the admin summary endpoint.
type DonationTotals struct {
	Count       int   `json:"count"`
	AmountCents int64 `json:"amountCents"`
}
