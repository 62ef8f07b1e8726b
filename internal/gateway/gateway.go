package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Intent statuses reported by the processor.
const (
	IntentSucceeded      = "succeeded"
	IntentProcessing     = "processing"
	IntentRequiresAction = "requires_action"
)

// ChargeRequest initiates a synchronous charge. Amounts are integer minor
// units (cents), the processor's wire convention.
type ChargeRequest struct {
	AmountCents    int64
	Currency       string
	MethodToken    string
	IdempotencyKey string
	Metadata       map[string]string
}

// PaymentIntent is the processor's record of a charge attempt.
type PaymentIntent struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	AmountCents   int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
}

// LinkRequest creates a hosted payment link.
type LinkRequest struct {
	AmountCents int64
	Currency    string
	ProductName string
	Description string
	RedirectURL string
	Metadata    map[string]string
}

// PaymentLink is the hosted page a customer is redirected to.
type PaymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutRequest creates a hosted checkout session.
type CheckoutRequest struct {
	AmountCents int64
	Currency    string
	ProductName string
	CustomerID  string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the processor-side session for an asynchronous purchase.
type CheckoutSession struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// Client is the outbound boundary to the payment processor. Calls are
// synchronous, request-scoped and never retried internally; a failure is
// surfaced to the caller immediately.
type Client interface {
	CreatePaymentIntent(ctx context.Context, req ChargeRequest) (*PaymentIntent, error)
	CreatePaymentLink(ctx context.Context, req LinkRequest) (*PaymentLink, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Error is a structured processor error decoded from the gateway's error
// envelope.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway: %s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Type, e.Message)
}

// IsCardError reports whether err is a card-level decline, which is returned
// to the caller without recording a transaction.
func IsCardError(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Type == "card_error"
}

// IsGatewayError reports whether err originated from the processor's error
// envelope, card-level or otherwise.
func IsGatewayError(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr)
}
