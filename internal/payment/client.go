package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the production endpoint of the gateway's REST API.
const DefaultBaseURL = "https://api.razorpay.com/v1"

// Client is the HTTP implementation of Gateway. Requests authenticate
// with basic auth (key id / key secret) and time out with the underlying
// http.Client, so a hung gateway call cannot hold a database lock
// forever.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewClient returns a Client for the given credentials. baseURL may be
// empty, in which case DefaultBaseURL is used.
func NewClient(keyID, keySecret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// gatewayError mirrors the gateway's error envelope.
type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway %s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var ge gatewayError
		if json.Unmarshal(data, &ge) == nil && ge.Error.Description != "" {
			return fmt.Errorf("gateway %s %s: %s (%s)", method, path, ge.Error.Description, ge.Error.Code)
		}
		return fmt.Errorf("gateway %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("gateway %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// CreateOrder registers a new order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string, notes map[string]string) (*Order, error) {
	req := map[string]any{
		"amount":   amountCents,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		req["notes"] = notes
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchPayment returns the gateway's current state of a payment.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	var det PaymentDetails
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &det); err != nil {
		return nil, err
	}
	return &det, nil
}

// Refund issues a full refund against a captured payment.
func (c *Client) Refund(ctx context.Context, paymentID string, amountCents int64, notes map[string]string) (*RefundDetails, error) {
	req := map[string]any{
		"amount": amountCents,
		"speed":  "normal",
	}
	if len(notes) > 0 {
		req["notes"] = notes
	}
	var ref RefundDetails
	if err := c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/refund", req, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// FetchRefund returns the gateway's current state of a refund.
func (c *Client) FetchRefund(ctx context.Context, refundID string) (*RefundDetails, error) {
	var ref RefundDetails
	if err := c.do(ctx, http.MethodGet, "/refunds/"+url.PathEscape(refundID), nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

var _ Gateway = (*Client)(nil)
