package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"harborlight/models"
)

const (
	stripeAPIBaseURL = "https://api.stripe.com"

	// webhookTolerance bounds how old a signed webhook timestamp may be.
	webhookTolerance = 5 * time.Minute
)

// ErrSignatureInvalid marks a webhook whose signature did not verify against
// the raw request body.
var ErrSignatureInvalid = errors.New("webhook signature verification failed")

// StripeClient creates PaymentIntents and verifies webhook deliveries.
type StripeClient struct {
	httpClient    *http.Client
	baseURL       string
	secretKey     string
	webhookSecret string
	log           *logrus.Logger
	ledger        Ledger
	now           func() time.Time
}

// NewStripeClient creates a Stripe API client. ledger may be nil.
func NewStripeClient(secretKey, webhookSecret string, ledger Ledger, log *logrus.Logger) *StripeClient {
	if log == nil {
		log = logrus.New()
	}
	return &StripeClient{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       stripeAPIBaseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		log:           log,
		ledger:        ledger,
		now:           time.Now,
	}
}

// SetBaseURL overrides the API base URL. Test hook.
func (c *StripeClient) SetBaseURL(u string) { c.baseURL = u }

// SetClock overrides the clock used for webhook timestamp tolerance.
func (c *StripeClient) SetClock(now func() time.Time) { c.now = now }

// intentResponse is the subset of the PaymentIntent object we read.
type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type stripeAPIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent validates the amount, creates a PaymentIntent configured for
// automatic payment methods in the fixed currency, and returns its client
// secret. Intent creation is deliberately single-shot: a blind retry could
// double-create a charge.
func (c *StripeClient) CreateIntent(ctx context.Context, amount float64) (string, error) {
	if c.secretKey == "" {
		return "", fmt.Errorf("stripe secret key missing: %w", ErrNotConfigured)
	}

	cents, err := NormalizeAmount(amount)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(cents, 10))
	form.Set("currency", Currency)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stripe api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var apiErr stripeAPIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("stripe intent failed: %s: %w", apiErr.Error.Message, ErrVendorResponse)
		}
		return "", fmt.Errorf("stripe intent failed: %s: %w", resp.Status, ErrVendorResponse)
	}

	var intent intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if intent.ClientSecret == "" {
		return "", fmt.Errorf("intent %s has no client secret: %w", intent.ID, ErrVendorResponse)
	}

	c.log.WithFields(logrus.Fields{
		"intent": intent.ID,
		"amount": cents,
	}).Info("stripe payment intent created")

	return intent.ClientSecret, nil
}

// WebhookEvent is a verified webhook delivery.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// VerifyWebhook checks the signature header against the raw (unparsed)
// request body and decodes the event on success. Verification runs over the
// untouched byte stream; signatures are keyed to exact bytes, so the body
// must never be re-serialized before this call.
func (c *StripeClient) VerifyWebhook(rawBody []byte, sigHeader string) (*WebhookEvent, error) {
	if c.webhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret missing: %w", ErrNotConfigured)
	}
	if sigHeader == "" {
		return nil, fmt.Errorf("missing signature header: %w", ErrSignatureInvalid)
	}

	timestamp, candidates := parseSignatureHeader(sigHeader)
	if timestamp == "" || len(candidates) == 0 {
		return nil, fmt.Errorf("malformed signature header: %w", ErrSignatureInvalid)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed signature timestamp: %w", ErrSignatureInvalid)
	}
	age := c.now().Sub(time.Unix(ts, 0))
	if age > webhookTolerance || age < -webhookTolerance {
		return nil, fmt.Errorf("signature timestamp outside tolerance: %w", ErrSignatureInvalid)
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	verified := false
	for _, candidate := range candidates {
		sig, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, sig) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, ErrSignatureInvalid
	}

	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

// parseSignatureHeader splits a "t=<ts>,v1=<sig>[,v1=<sig>...]" header into
// its timestamp and signature candidates. Unknown schemes are ignored.
func parseSignatureHeader(header string) (string, []string) {
	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	return timestamp, candidates
}

// succeededIntent is the subset of payment_intent.succeeded we read.
type succeededIntent struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

// HandleEvent dispatches a verified webhook event. payment_intent.succeeded
// is recorded in the ledger and logged without leaking non-identifier
// metadata; every other type is logged generically. The HTTP handler always
// acks once verification passed, whatever this does internally.
func (c *StripeClient) HandleEvent(event *WebhookEvent) {
	switch event.Type {
	case "payment_intent.succeeded":
		var intent succeededIntent
		if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
			c.log.WithError(err).Warn("undecodable payment_intent.succeeded payload")
			return
		}

		fields := logrus.Fields{
			"intent":   intent.ID,
			"amount":   intent.Amount,
			"currency": intent.Currency,
		}
		// Surface only metadata keys that name an identifier.
		for k, v := range intent.Metadata {
			if strings.HasSuffix(strings.ToLower(k), "id") {
				fields["meta_"+k] = v
			}
		}
		c.log.WithFields(fields).Info("donation payment succeeded")

		if c.ledger != nil {
			err := c.ledger.Record(models.DonationRecord{
				Provider:    "stripe",
				Reference:   intent.ID,
				AmountCents: intent.Amount,
				Currency:    intent.Currency,
				Status:      "succeeded",
			})
			if err != nil {
				c.log.WithError(err).Warn("donation ledger record failed")
			}
		}
	default:
		c.log.WithField("type", event.Type).Info("stripe webhook event received")
	}
}
