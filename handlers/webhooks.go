package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"harborlight/services/payments"
)

// maxWebhookBody caps how much of a webhook request body is read.
const maxWebhookBody = 1 << 20

// WebhooksHandler receives provider webhook callbacks.
type WebhooksHandler struct {
	Stripe *payments.StripeClient
	Log    *logrus.Logger
}

// NewWebhooksHandler creates a new WebhooksHandler.
func NewWebhooksHandler(stripe *payments.StripeClient, log *logrus.Logger) *WebhooksHandler {
	if log == nil {
		log = logrus.New()
	}
	return &WebhooksHandler{Stripe: stripe, Log: log}
}

// HandleStripe verifies and processes a Stripe webhook delivery. The
// signature is computed over the raw body, so the body is read before any
// decoding. A verified event always gets a 200 acknowledgement, whatever
// its type, so Stripe does not redeliver events we simply don't act on.
func (h *WebhooksHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	event, err := h.Stripe.VerifyWebhook(rawBody, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrNotConfigured) {
			h.Log.Error("stripe webhook received but no webhook secret is configured")
			writeError(w, http.StatusInternalServerError, "webhook processing not configured")
			return
		}
		if errors.Is(err, payments.ErrSignatureInvalid) {
			h.Log.Warn("stripe webhook rejected: bad signature")
			writeError(w, http.StatusBadRequest, "signature verification failed")
			return
		}
		h.Log.WithError(err).Warn("stripe webhook rejected")
		writeError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	h.Stripe.HandleEvent(event)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
