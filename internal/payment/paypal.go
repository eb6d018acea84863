package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

var ErrMissingCredentials = errors.New("missing PayPal client id or secret")

const defaultPayPalBaseURL = "https://api-m.sandbox.paypal.com"

// PayPalClient talks to the PayPal Orders v2 API: token, create, capture.
// Only the call contract checkout relies on is modeled here.
type PayPalClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[*http.Response]
}

func NewPayPalClient(baseURL, clientID, clientSecret string) *PayPalClient {
	if baseURL == "" {
		baseURL = defaultPayPalBaseURL
	}
	return &PayPalClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		breaker:      newBreaker("paypal"),
	}
}

type PayPalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *PayPalClient) accessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrMissingCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := doGuarded(c.breaker, c.httpClient, req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", errors.New("token response carried no access_token")
	}
	return body.AccessToken, nil
}

// CreateOrder opens a CAPTURE-intent order for the given total.
func (c *PayPalClient) CreateOrder(ctx context.Context, total decimal.Decimal, currency string) (*PayPalOrder, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         total.StringFixed(2),
				},
			},
		},
	}
	return c.postOrder(ctx, token, c.baseURL+"/v2/checkout/orders", body)
}

// CaptureOrder captures a previously approved order.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseURL, orderID)
	return c.postOrder(ctx, token, url, map[string]any{})
}

func (c *PayPalClient) postOrder(ctx context.Context, token, url string, body any) (*PayPalOrder, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := doGuarded(c.breaker, c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("paypal request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("paypal request failed with status %d", resp.StatusCode)
	}

	var order PayPalOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode paypal response: %w", err)
	}
	return &order, nil
}
