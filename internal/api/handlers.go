package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/gateway"
	"github.com/punchamoorthee/payflow/internal/service"
	"github.com/punchamoorthee/payflow/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payflow_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payflow_webhook_events_total",
		Help: "Webhook events received, labeled by event type and outcome",
	}, []string{"type", "outcome"})
)

// maxWebhookBody bounds the webhook request body.
const maxWebhookBody = int64(65536)

type Handler struct {
	store         store.Store
	service       *service.PaymentService
	logger        *slog.Logger
	webhookSecret string
	baseURL       string
}

func NewHandler(s store.Store, svc *service.PaymentService, logger *slog.Logger, webhookSecret, baseURL string) *Handler {
	return &Handler{
		store:         s,
		service:       svc,
		logger:        logger,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

type paymentIntentRequest struct {
	Amount          string `json:"amount"`
	UserID          string `json:"user_id"`
	MerchantID      string `json:"merchant_id,omitempty"`
	PaymentMethodID string `json:"payment_method_id"`
	Description     string `json:"description,omitempty"`
}

func (h *Handler) CreatePaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/create-payment-intent"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req paymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		h.respondError(w, http.StatusBadRequest,
			"Amount must be a positive number, and payment method ID, and user ID are required.",
			"POST", endpoint)
		return
	}
	userID, ok := parseID(req.UserID)
	if !ok || req.PaymentMethodID == "" {
		h.respondError(w, http.StatusBadRequest,
			"Amount must be a positive number, and payment method ID, and user ID are required.",
			"POST", endpoint)
		return
	}
	merchantID, ok := parseOptionalID(req.MerchantID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid merchant ID", "POST", endpoint)
		return
	}

	result, err := h.service.CreatePaymentIntent(r.Context(), service.ChargeInput{
		UserID:         userID,
		MerchantID:     merchantID,
		Amount:         amount,
		MethodToken:    req.PaymentMethodID,
		Description:    req.Description,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		h.respondPaymentError(w, err, "POST", endpoint)
		return
	}

	h.respondJSON(w, http.StatusOK, result, "POST", endpoint)
}

type paymentLinkRequest struct {
	Amount      string `json:"amount"`
	UserID      string `json:"user_id"`
	MerchantID  string `json:"merchant_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) CreatePaymentLinkHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/create-payment-link"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req paymentLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "User ID and amount are required.", "POST", endpoint)
		return
	}
	userID, ok := parseID(req.UserID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "User ID and amount are required.", "POST", endpoint)
		return
	}
	merchantID, ok := parseOptionalID(req.MerchantID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid merchant ID", "POST", endpoint)
		return
	}

	result, err := h.service.CreatePaymentLink(r.Context(), service.LinkInput{
		UserID:      userID,
		MerchantID:  merchantID,
		Amount:      amount,
		ProductName: req.ProductName,
		Description: req.Description,
		RedirectURL: h.baseURL + "/api/v1/success",
	})
	if err != nil {
		h.respondPaymentError(w, err, "POST", endpoint)
		return
	}

	// The resource is pending until the gateway reports the outcome.
	h.respondJSON(w, http.StatusCreated, result, "POST", endpoint)
}

type checkoutSessionRequest struct {
	Amount      string `json:"amount"`
	UserID      string `json:"user_id"`
	MerchantID  string `json:"merchant_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) CheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/create-checkout-session"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	var req checkoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	userID, ok := parseID(req.UserID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "User ID is required.", "POST", endpoint)
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Amount must be a positive number.", "POST", endpoint)
		return
	}
	merchantID, ok := parseOptionalID(req.MerchantID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid merchant ID", "POST", endpoint)
		return
	}

	result, err := h.service.CreateCheckoutSession(r.Context(), service.CheckoutInput{
		UserID:      userID,
		MerchantID:  merchantID,
		Amount:      amount,
		ProductName: req.ProductName,
		Description: req.Description,
		SuccessURL:  h.baseURL + "/api/v1/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   h.baseURL + "/api/v1/cancel?cancel=true",
	})
	if err != nil {
		h.respondPaymentError(w, err, "POST", endpoint)
		return
	}

	h.respondJSON(w, http.StatusCreated, result, "POST", endpoint)
}

func (h *Handler) PaymentSuccessHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/success"
	sessionID := r.URL.Query().Get("session_id")
	if sessionID != "" {
		if err := h.service.ConfirmCheckoutSuccess(r.Context(), sessionID); err != nil {
			h.logger.Error("success redirect processing failed", "error", err)
			h.respondError(w, http.StatusInternalServerError, "An internal error occurred.", "GET", endpoint)
			return
		}
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Payment was successful!"}, "GET", endpoint)
}

func (h *Handler) PaymentCancelHandler(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Payment was cancelled."}, "GET", "/cancel")
}

func (h *Handler) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/webhook"
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", endpoint))
	defer timer.ObserveDuration()

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		h.respondError(w, http.StatusBadRequest, "Missing Stripe signature header", "POST", endpoint)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid payload", "POST", endpoint)
		return
	}

	event, err := gateway.ConstructEvent(payload, sigHeader, h.webhookSecret)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrInvalidSignature):
			h.respondError(w, http.StatusBadRequest, "Invalid signature", "POST", endpoint)
		case errors.Is(err, gateway.ErrInvalidPayload):
			h.respondError(w, http.StatusBadRequest, "Invalid payload", "POST", endpoint)
		default:
			h.logger.Error("webhook decode failed", "error", err)
			h.respondError(w, http.StatusInternalServerError, "An internal error occurred.", "POST", endpoint)
		}
		webhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return
	}

	if err := h.service.HandleGatewayEvent(r.Context(), event); err != nil {
		h.logger.Error("webhook processing failed", "event_type", event.Type, "error", err)
		webhookEventsTotal.WithLabelValues(event.Type, "error").Inc()
		h.respondError(w, http.StatusInternalServerError, "An internal error occurred.", "POST", endpoint)
		return
	}

	webhookEventsTotal.WithLabelValues(event.Type, "ok").Inc()
	h.respondJSON(w, http.StatusOK, map[string]string{"message": "Webhook received successfully"}, "POST", endpoint)
}

// respondPaymentError translates the payment error taxonomy to a response.
// Nothing propagates past this boundary.
func (h *Handler) respondPaymentError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrMissingMethodToken),
		errors.Is(err, service.ErrNoMerchant):
		h.respondError(w, http.StatusBadRequest, err.Error(), method, endpoint)
	case errors.Is(err, store.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Not found", method, endpoint)
	case gateway.IsCardError(err):
		var gwErr *gateway.Error
		errors.As(err, &gwErr)
		h.respondError(w, http.StatusBadRequest, gwErr.Message, method, endpoint)
	case gateway.IsGatewayError(err):
		h.respondError(w, http.StatusBadRequest, err.Error(), method, endpoint)
	default:
		h.logger.Error("payment action failed", "endpoint", endpoint, "error", err)
		h.respondError(w, http.StatusInternalServerError, "An internal error occurred.", method, endpoint)
	}
}

// Helpers

func parseAmount(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": message}, method, endpoint)
}
