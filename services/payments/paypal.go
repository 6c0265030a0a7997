package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"harborlight/models"
)

const (
	paypalLiveBaseURL    = "https://api-m.paypal.com"
	paypalSandboxBaseURL = "https://api-m.sandbox.paypal.com"

	// tokenSafetyMargin expires cached tokens early so a token is never
	// used in the final seconds of its vendor-declared lifetime.
	tokenSafetyMargin = 60 * time.Second

	tokenFetchAttempts = 3
	tokenFetchBackoff  = 500 * time.Millisecond
)

// ErrOrderIDRequired marks a capture call without an order id (400 class).
var ErrOrderIDRequired = errors.New("order id is required")

// tokenSlot is the single-slot access-token cache. Owned by the client, not
// a package-level variable, so its lifecycle is explicit and key rotation
// invalidates it naturally.
type tokenSlot struct {
	key         string
	accessToken string
	expiresAt   time.Time
}

// PayPalClient acquires OAuth tokens and creates/captures donation orders.
type PayPalClient struct {
	httpClient   *http.Client
	baseURL      string
	env          string
	clientID     string
	clientSecret string
	log          *logrus.Logger
	ledger       Ledger
	now          func() time.Time

	// tokenMu guards slot memory, not the refresh itself: concurrent
	// requests may race to refresh and the last writer wins. An extra
	// token exchange on a race is an accepted inefficiency.
	tokenMu sync.Mutex
	token   tokenSlot
}

// NewPayPalClient creates a PayPal API client for the given environment
// ("sandbox" selects the sandbox host; anything else is live). ledger may be
// nil.
func NewPayPalClient(clientID, clientSecret, env string, ledger Ledger, log *logrus.Logger) *PayPalClient {
	if log == nil {
		log = logrus.New()
	}
	baseURL := paypalLiveBaseURL
	if strings.EqualFold(env, "sandbox") {
		baseURL = paypalSandboxBaseURL
	}
	return &PayPalClient{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      baseURL,
		env:          env,
		clientID:     clientID,
		clientSecret: clientSecret,
		log:          log,
		ledger:       ledger,
		now:          time.Now,
	}
}

// SetBaseURL overrides the API base URL. Test hook.
func (c *PayPalClient) SetBaseURL(u string) { c.baseURL = u }

// SetClock overrides the clock used for token expiry.
func (c *PayPalClient) SetClock(now func() time.Time) { c.now = now }

// cacheKey identifies the credentials a cached token belongs to without
// holding the full secret in the key.
func (c *PayPalClient) cacheKey() string {
	suffix := c.clientID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return c.env + ":" + suffix
}

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a cached bearer token, refreshing it via the OAuth
// client-credentials exchange on miss or expiry.
func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", fmt.Errorf("paypal credentials missing: %w", ErrNotConfigured)
	}

	key := c.cacheKey()

	c.tokenMu.Lock()
	slot := c.token
	c.tokenMu.Unlock()

	if slot.key == key && slot.accessToken != "" && c.now().Before(slot.expiresAt) {
		return slot.accessToken, nil
	}

	token, err := c.fetchToken(ctx)
	if err != nil {
		return "", err
	}

	expiresAt := c.now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenSafetyMargin)
	c.tokenMu.Lock()
	c.token = tokenSlot{key: key, accessToken: token.AccessToken, expiresAt: expiresAt}
	c.tokenMu.Unlock()

	return token.AccessToken, nil
}

// fetchToken performs the client-credentials exchange. The exchange is
// idempotent, so transport failures are retried a bounded number of times.
func (c *PayPalClient) fetchToken(ctx context.Context) (*oauthTokenResponse, error) {
	var token oauthTokenResponse
	err := retry.Do(
		func() error {
			form := url.Values{}
			form.Set("grant_type", "client_credentials")

			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.SetBasicAuth(c.clientID, c.clientSecret)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("paypal token request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				respBody, _ := io.ReadAll(resp.Body)
				err := fmt.Errorf("paypal token failed: %s - %s: %w", resp.Status, string(respBody), ErrVendorResponse)
				if resp.StatusCode == http.StatusUnauthorized {
					return retry.Unrecoverable(err)
				}
				return err
			}

			if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(tokenFetchAttempts),
		retry.Delay(tokenFetchBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("paypal token response missing access_token: %w", ErrVendorResponse)
	}
	return &token, nil
}

type orderAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount   orderAmount `json:"amount"`
	CustomID string      `json:"custom_id,omitempty"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateOrder validates the amount and creates a CAPTURE-intent order. The
// custom_id encodes donation type, source, and amount for traceability.
// Order creation is not idempotent to retry blindly, so it is single-shot;
// a PayPal-Request-Id header lets the vendor dedupe accidental duplicates.
func (c *PayPalClient) CreateOrder(ctx context.Context, amount float64) (string, error) {
	cents, err := NormalizeAmount(amount)
	if err != nil {
		return "", err
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	payload := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{
			{
				Amount: orderAmount{
					CurrencyCode: strings.ToUpper(Currency),
					Value:        fmt.Sprintf("%d.%02d", cents/100, cents%100),
				},
				CustomID: fmt.Sprintf("donation|web|%d", cents),
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal order request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal create order failed: %s - %s: %w", resp.Status, string(respBody), ErrVendorResponse)
	}

	var order createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("paypal order response missing id: %w", ErrVendorResponse)
	}

	c.log.WithFields(logrus.Fields{
		"order":  order.ID,
		"amount": cents,
	}).Info("paypal order created")

	return order.ID, nil
}

// CaptureResult is the normalized outcome of an order capture.
type CaptureResult struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status"`
	CaptureID     string `json:"captureId,omitempty"`
	CaptureStatus string `json:"captureStatus,omitempty"`
}

// captureOrderResponse mirrors the nested vendor payload. Every level is a
// pointer or slice because the vendor does not contractually guarantee a
// complete structure.
type captureOrderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments *struct {
			Captures []struct {
				ID     string       `json:"id"`
				Status string       `json:"status"`
				Amount *orderAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CaptureOrder exchanges an approved order id with the vendor capture
// endpoint and extracts capture id/status defensively from the nested
// response.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, ErrOrderIDRequired
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, url.PathEscape(orderID)), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal capture request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paypal capture failed: %s - %s: %w", resp.Status, string(respBody), ErrVendorResponse)
	}

	var captured captureOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&captured); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if captured.Status == "" {
		return nil, fmt.Errorf("paypal capture response missing status: %w", ErrVendorResponse)
	}

	result := &CaptureResult{
		OrderID: orderID,
		Status:  captured.Status,
	}
	var capturedCents int64
	if len(captured.PurchaseUnits) > 0 {
		if payments := captured.PurchaseUnits[0].Payments; payments != nil && len(payments.Captures) > 0 {
			capture := payments.Captures[0]
			result.CaptureID = capture.ID
			result.CaptureStatus = capture.Status
			if capture.Amount != nil {
				capturedCents = parseMoneyCents(capture.Amount.Value)
			}
		}
	}

	c.log.WithFields(logrus.Fields{
		"order":   result.OrderID,
		"status":  result.Status,
		"capture": result.CaptureID,
	}).Info("paypal order captured")

	if c.ledger != nil && strings.EqualFold(result.Status, "COMPLETED") {
		err := c.ledger.Record(models.DonationRecord{
			Provider:    "paypal",
			Reference:   result.OrderID,
			CaptureID:   result.CaptureID,
			AmountCents: capturedCents,
			Currency:    Currency,
			Status:      strings.ToLower(result.Status),
		})
		if err != nil {
			c.log.WithError(err).Warn("donation ledger record failed")
		}
	}

	return result, nil
}

// parseMoneyCents converts a vendor "12.34" money string to cents. Returns
// zero on anything unparseable; the ledger amount is informational.
func parseMoneyCents(value string) int64 {
	whole, frac, _ := strings.Cut(strings.TrimSpace(value), ".")
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	cents := dollars * 100
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		if f, err := strconv.ParseInt(frac, 10, 64); err == nil {
			cents += f
		}
	}
	return cents
}
