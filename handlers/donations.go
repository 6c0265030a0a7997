package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"harborlight/services/donations"
	"harborlight/services/payments"
)

// DonationsHandler serves the donation checkout and summary endpoints.
type DonationsHandler struct {
	Stripe *payments.StripeClient
	PayPal *payments.PayPalClient
	Ledger *donations.Service
	Log    *logrus.Logger
}

// NewDonationsHandler creates a new DonationsHandler.
func NewDonationsHandler(stripe *payments.StripeClient, paypal *payments.PayPalClient, ledger *donations.Service, log *logrus.Logger) *DonationsHandler {
	if log == nil {
		log = logrus.New()
	}
	return &DonationsHandler{
		Stripe: stripe,
		PayPal: paypal,
		Ledger: ledger,
		Log:    log,
	}
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// CreateStripeIntent creates a Stripe PaymentIntent for the requested
// amount in cents and returns its client secret.
func (h *DonationsHandler) CreateStripeIntent(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	clientSecret, err := h.Stripe.CreateIntent(r.Context(), req.Amount)
	if err != nil {
		h.writePaymentError(w, err, "stripe intent")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"clientSecret": clientSecret})
}

// CreatePayPalOrder creates a PayPal order for the requested amount in
// cents and returns its order id for client-side approval.
func (h *DonationsHandler) CreatePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	orderID, err := h.PayPal.CreateOrder(r.Context(), req.Amount)
	if err != nil {
		h.writePaymentError(w, err, "paypal order")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"orderId": orderID})
}

type captureRequest struct {
	OrderID string `json:"orderID"`
}

// CapturePayPalOrder captures an approved PayPal order.
func (h *DonationsHandler) CapturePayPalOrder(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.PayPal.CaptureOrder(r.Context(), req.OrderID)
	if err != nil {
		h.writePaymentError(w, err, "paypal capture")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetSummary returns recorded donation totals and the most recent records.
func (h *DonationsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		writeError(w, http.StatusInternalServerError, "donation ledger is not configured")
		return
	}

	totals, err := h.Ledger.Totals()
	if err != nil {
		h.Log.WithError(err).Error("donation totals query failed")
		writeError(w, http.StatusInternalServerError, "failed to read donation totals")
		return
	}

	recent, err := h.Ledger.List(20)
	if err != nil {
		h.Log.WithError(err).Error("donation list query failed")
		writeError(w, http.StatusInternalServerError, "failed to read donations")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"totals": totals,
		"recent": recent,
	})
}

// Options handles CORS preflight.
func (h *DonationsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// writePaymentError maps the payment error taxonomy to HTTP statuses:
// caller mistakes are 400, missing configuration is 500, and a provider
// that answered strangely is 502.
func (h *DonationsHandler) writePaymentError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, payments.ErrAmountInvalid),
		errors.Is(err, payments.ErrAmountTooSmall),
		errors.Is(err, payments.ErrOrderIDRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrNotConfigured):
		h.Log.WithError(err).Errorf("%s: provider not configured", op)
		writeError(w, http.StatusInternalServerError, "payment provider is not configured")
	case errors.Is(err, payments.ErrVendorResponse):
		h.Log.WithError(err).Errorf("%s: unexpected provider response", op)
		writeError(w, http.StatusBadGateway, "payment provider returned an unexpected response")
	default:
		h.Log.WithError(err).Errorf("%s failed", op)
		writeError(w, http.StatusBadGateway, "payment provider request failed")
	}
}
