package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

// StripeClient talks to the Stripe REST API with form-encoded requests.
type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		baseURL:   defaultBaseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewStripeClientWithBaseURL points the client at a non-default API host,
// used against stripe-mock and in tests.
func NewStripeClientWithBaseURL(secretKey, baseURL string) *StripeClient {
	c := NewStripeClient(secretKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *StripeClient) CreatePaymentIntent(ctx context.Context, req ChargeRequest) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", req.Currency)
	form.Set("payment_method", req.MethodToken)
	form.Set("confirmation_method", "manual")
	form.Set("confirm", "true")
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent PaymentIntent
	if err := c.post(ctx, "/v1/payment_intents", form, req.IdempotencyKey, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *StripeClient) CreatePaymentLink(ctx context.Context, req LinkRequest) (*PaymentLink, error) {
	form := url.Values{}
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][product_data][name]", req.ProductName)
	if req.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", req.Description)
	}
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][quantity]", "1")
	if req.RedirectURL != "" {
		form.Set("after_completion[type]", "redirect")
		form.Set("after_completion[redirect][url]", req.RedirectURL)
	}
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var link PaymentLink
	if err := c.post(ctx, "/v1/payment_links", form, "", &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", req.Currency)
	form.Set("line_items[0][price_data][product_data][name]", req.ProductName)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.CustomerID != "" {
		form.Set("customer", req.CustomerID)
	}
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var session CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, "", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *StripeClient) post(ctx context.Context, path string, form url.Values, idempotencyKey string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("gateway request build failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("gateway response read failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error Error `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
			return &Error{Type: "api_error", Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
		}
		return &envelope.Error
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gateway response decode failed: %w", err)
	}
	return nil
}
