package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"harborlight/models"
	"harborlight/services/donations"
	"harborlight/services/payments"
)

func newDonationsHandler(t *testing.T, stripeHandler http.Handler) *DonationsHandler {
	t.Helper()

	stripe := payments.NewStripeClient("sk_test", "whsec_test", nil, nil)
	if stripeHandler != nil {
		srv := httptest.NewServer(stripeHandler)
		t.Cleanup(srv.Close)
		stripe.SetBaseURL(srv.URL)
	}

	paypal := payments.NewPayPalClient("client-id", "client-secret", "sandbox", nil, nil)
	return NewDonationsHandler(stripe, paypal, nil, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCreateStripeIntent(t *testing.T) {
	handler := newDonationsHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "pi_1", "client_secret": "pi_1_secret"}`)
	}))

	rec := postJSON(t, handler.CreateStripeIntent, "/api/donations/stripe/intent", `{"amount": 2500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["clientSecret"] != "pi_1_secret" {
		t.Fatalf("clientSecret = %q", resp["clientSecret"])
	}
}

func TestCreateStripeIntentBadRequests(t *testing.T) {
	handler := newDonationsHandler(t, nil)

	tests := []string{
		`not json`,
		`{"amount": 50}`,
		`{"amount": 99.4}`,
	}
	for _, body := range tests {
		rec := postJSON(t, handler.CreateStripeIntent, "/api/donations/stripe/intent", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestCreateStripeIntentNotConfigured(t *testing.T) {
	stripe := payments.NewStripeClient("", "", nil, nil)
	paypal := payments.NewPayPalClient("", "", "sandbox", nil, nil)
	handler := NewDonationsHandler(stripe, paypal, nil, nil)

	rec := postJSON(t, handler.CreateStripeIntent, "/api/donations/stripe/intent", `{"amount": 2500}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing credentials, got %d", rec.Code)
	}
}

func TestCreateStripeIntentVendorFailure(t *testing.T) {
	handler := newDonationsHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := postJSON(t, handler.CreateStripeIntent, "/api/donations/stripe/intent", `{"amount": 2500}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for vendor failure, got %d", rec.Code)
	}
}

func TestCreatePayPalOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/oauth2/token":
			fmt.Fprint(w, `{"access_token": "tok", "token_type": "Bearer", "expires_in": 3600}`)
		case "/v2/checkout/orders":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "ORDER-9", "status": "CREATED"}`)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	paypal := payments.NewPayPalClient("client-id", "client-secret", "sandbox", nil, nil)
	paypal.SetBaseURL(srv.URL)
	handler := NewDonationsHandler(nil, paypal, nil, nil)

	rec := postJSON(t, handler.CreatePayPalOrder, "/api/donations/paypal/order", `{"amount": 2500}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["orderId"] != "ORDER-9" {
		t.Fatalf("expected orderId key in response, got %v", resp)
	}
}

func TestCapturePayPalOrderRequiresID(t *testing.T) {
	handler := newDonationsHandler(t, nil)

	rec := postJSON(t, handler.CapturePayPalOrder, "/api/donations/paypal/capture", `{"orderID": ""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing order id, got %d", rec.Code)
	}
}

func TestCreatePayPalOrderBadAmount(t *testing.T) {
	handler := newDonationsHandler(t, nil)

	rec := postJSON(t, handler.CreatePayPalOrder, "/api/donations/paypal/order", `{"amount": 10}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetSummary(t *testing.T) {
	ledger, err := donations.Open(filepath.Join(t.TempDir(), "donations.db"), nil)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	if err := ledger.Record(models.DonationRecord{
		Provider: "stripe", Reference: "pi_1", AmountCents: 2500, Currency: "usd", Status: "succeeded",
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	handler := NewDonationsHandler(nil, nil, ledger, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/donations/summary", nil)
	rec := httptest.NewRecorder()
	handler.GetSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Totals models.DonationTotals   `json:"totals"`
		Recent []models.DonationRecord `json:"recent"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Totals.Count != 1 || resp.Totals.AmountCents != 2500 {
		t.Fatalf("unexpected totals: %+v", resp.Totals)
	}
	if len(resp.Recent) != 1 {
		t.Fatalf("expected 1 recent record, got %d", len(resp.Recent))
	}
}

func TestGetSummaryWithoutLedger(t *testing.T) {
	handler := NewDonationsHandler(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/donations/summary", nil)
	rec := httptest.NewRecorder()
	handler.GetSummary(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
