package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentIntentRequestShape(t *testing.T) {
	var gotPath, gotAuth, gotIdem string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotIdem = r.Header.Get("Idempotency-Key")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm

		json.NewEncoder(w).Encode(PaymentIntent{ID: "pi_1", Status: IntentSucceeded, AmountCents: 2550})
	}))
	defer srv.Close()

	client := NewStripeClientWithBaseURL("sk_test_abc", srv.URL)
	intent, err := client.CreatePaymentIntent(context.Background(), ChargeRequest{
		AmountCents:    2550,
		Currency:       "usd",
		MethodToken:    "pm_123",
		IdempotencyKey: "idem-1",
		Metadata:       map[string]string{"user_id": "u1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.ID != "pi_1" || intent.Status != IntentSucceeded {
		t.Fatalf("unexpected intent: %+v", intent)
	}

	if gotPath != "/v1/payment_intents" {
		t.Fatalf("expected /v1/payment_intents, got %s", gotPath)
	}
	if gotAuth != "Bearer sk_test_abc" {
		t.Fatalf("expected bearer auth with the secret key, got %q", gotAuth)
	}
	if gotIdem != "idem-1" {
		t.Fatalf("expected idempotency key header, got %q", gotIdem)
	}
	for key, want := range map[string]string{
		"amount":            "2550",
		"currency":          "usd",
		"payment_method":    "pm_123",
		"confirm":           "true",
		"metadata[user_id]": "u1",
	} {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Fatalf("form %s: expected %q, got %v", key, want, got)
		}
	}
}

func TestCreateCheckoutSessionNestedForm(t *testing.T) {
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"})
	}))
	defer srv.Close()

	client := NewStripeClientWithBaseURL("sk_test_abc", srv.URL)
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		AmountCents: 2000,
		Currency:    "usd",
		ProductName: "Widget",
		SuccessURL:  "https://app.example.com/success",
		CancelURL:   "https://app.example.com/cancel",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "cs_1" {
		t.Fatalf("unexpected session: %+v", session)
	}

	for key, want := range map[string]string{
		"mode": "payment",
		"line_items[0][price_data][unit_amount]":        "2000",
		"line_items[0][price_data][product_data][name]": "Widget",
		"success_url": "https://app.example.com/success",
	} {
		if got := gotForm[key]; len(got) != 1 || got[0] != want {
			t.Fatalf("form %s: expected %q, got %v", key, want, got)
		}
	}
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"type":    "card_error",
				"code":    "card_declined",
				"message": "Your card was declined.",
			},
		})
	}))
	defer srv.Close()

	client := NewStripeClientWithBaseURL("sk_test_abc", srv.URL)
	_, err := client.CreatePaymentIntent(context.Background(), ChargeRequest{
		AmountCents: 100,
		Currency:    "usd",
		MethodToken: "pm_123",
	})
	if !IsCardError(err) {
		t.Fatalf("expected card error, got %v", err)
	}

	var gwErr *Error
	if !IsGatewayError(err) {
		t.Fatal("expected a gateway error")
	}
	if ok := errors.As(err, &gwErr); !ok || gwErr.Code != "card_declined" {
		t.Fatalf("unexpected error details: %v", err)
	}
}

func TestErrorEnvelopeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewStripeClientWithBaseURL("sk_test_abc", srv.URL)
	_, err := client.CreatePaymentIntent(context.Background(), ChargeRequest{
		AmountCents: 100,
		Currency:    "usd",
		MethodToken: "pm_123",
	})
	if !IsGatewayError(err) || IsCardError(err) {
		t.Fatalf("expected a non-card gateway error, got %v", err)
	}
}
