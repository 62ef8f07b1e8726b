package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/domain"
	"github.com/punchamoorthee/payflow/internal/service"
	"github.com/punchamoorthee/payflow/internal/store"
)

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalID(raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, ok := parseID(raw)
	if !ok {
		return nil, false
	}
	return &id, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, endpoint string) (uuid.UUID, bool) {
	id, ok := parseID(mux.Vars(r)["id"])
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid ID", r.Method, endpoint)
		return uuid.Nil, false
	}
	return id, true
}

// queryUserFilter parses an optional ?user_id= list filter.
func (h *Handler) queryUserFilter(w http.ResponseWriter, r *http.Request, endpoint string) (*uuid.UUID, bool) {
	filter, ok := parseOptionalID(r.URL.Query().Get("user_id"))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid user_id filter", r.Method, endpoint)
		return nil, false
	}
	return filter, true
}

func (h *Handler) respondStoreError(w http.ResponseWriter, err error, method, endpoint string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "Not found", method, endpoint)
	case errors.Is(err, store.ErrDuplicate):
		h.respondError(w, http.StatusConflict, "Duplicate record", method, endpoint)
	default:
		h.logger.Error("store operation failed", "endpoint", endpoint, "error", err)
		h.respondError(w, http.StatusInternalServerError, "An internal error occurred.", method, endpoint)
	}
}

// --- Users ---

type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
}

func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/users"
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	h.respondJSON(w, http.StatusOK, users, "GET", endpoint)
}

func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/users"
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}
	if req.Email == "" || req.Username == "" {
		h.respondError(w, http.StatusBadRequest, "Username and email are required", "POST", endpoint)
		return
	}

	user := &domain.User{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Balance:  decimal.Zero,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, user, "POST", endpoint)
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/users/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, user, "GET", endpoint)
}

func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/users/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	user.Phone = req.Phone
	// Balance is deliberately not writable here; it belongs to the balance
	// updater.
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, user, "PUT", endpoint)
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/users/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		h.respondStoreError(w, err, "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", endpoint)
}

// --- Merchants ---

type merchantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func (h *Handler) ListMerchantsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/merchants"
	merchants, err := h.store.ListMerchants(r.Context())
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	if merchants == nil {
		merchants = []domain.Merchant{}
	}
	h.respondJSON(w, http.StatusOK, merchants, "GET", endpoint)
}

func (h *Handler) CreateMerchantHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/merchants"
	var req merchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}
	if req.Name == "" || req.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Name and email are required", "POST", endpoint)
		return
	}

	merchant := &domain.Merchant{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := h.store.CreateMerchant(r.Context(), merchant); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, merchant, "POST", endpoint)
}

func (h *Handler) GetMerchantHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/merchants/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	merchant, err := h.store.GetMerchant(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, merchant, "GET", endpoint)
}

func (h *Handler) UpdateMerchantHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/merchants/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	var req merchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}

	merchant, err := h.store.GetMerchant(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	if req.Name != "" {
		merchant.Name = req.Name
	}
	if req.Email != "" {
		merchant.Email = req.Email
	}
	merchant.Phone = req.Phone
	if err := h.store.UpdateMerchant(r.Context(), merchant); err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, merchant, "PUT", endpoint)
}

func (h *Handler) DeleteMerchantHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/merchants/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	if err := h.store.DeleteMerchant(r.Context(), id); err != nil {
		h.respondStoreError(w, err, "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", endpoint)
}

// --- Payment methods ---

type paymentMethodRequest struct {
	UserID            string `json:"user_id"`
	MethodType        string `json:"method_type"`
	GatewayCustomerID string `json:"gateway_customer_id,omitempty"`
	GatewayToken      string `json:"gateway_payment_method_token,omitempty"`
	LastFourDigits    string `json:"last_four_digits,omitempty"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	CardBrand         string `json:"card_brand,omitempty"`
}

func (h *Handler) ListPaymentMethodsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/payment-methods"
	filter, ok := h.queryUserFilter(w, r, endpoint)
	if !ok {
		return
	}
	methods, err := h.store.ListPaymentMethods(r.Context(), filter)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	if methods == nil {
		methods = []domain.PaymentMethod{}
	}
	h.respondJSON(w, http.StatusOK, methods, "GET", endpoint)
}

func (h *Handler) CreatePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/payment-methods"
	var req paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}
	userID, ok := parseID(req.UserID)
	if !ok || req.MethodType == "" {
		h.respondError(w, http.StatusBadRequest, "User ID and method type are required", "POST", endpoint)
		return
	}
	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}

	method := &domain.PaymentMethod{
		UserID:            userID,
		MethodType:        req.MethodType,
		GatewayCustomerID: req.GatewayCustomerID,
		GatewayToken:      req.GatewayToken,
		LastFourDigits:    req.LastFourDigits,
		ExpiryDate:        req.ExpiryDate,
		CardBrand:         req.CardBrand,
	}
	if err := h.store.CreatePaymentMethod(r.Context(), method); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, method, "POST", endpoint)
}

func (h *Handler) GetPaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/payment-methods/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	method, err := h.store.GetPaymentMethod(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, method, "GET", endpoint)
}

func (h *Handler) UpdatePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/payment-methods/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	var req paymentMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}

	method, err := h.store.GetPaymentMethod(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	if req.MethodType != "" {
		method.MethodType = req.MethodType
	}
	if req.GatewayCustomerID != "" {
		method.GatewayCustomerID = req.GatewayCustomerID
	}
	if req.GatewayToken != "" {
		method.GatewayToken = req.GatewayToken
	}
	if req.LastFourDigits != "" {
		method.LastFourDigits = req.LastFourDigits
	}
	if req.ExpiryDate != "" {
		method.ExpiryDate = req.ExpiryDate
	}
	if req.CardBrand != "" {
		method.CardBrand = req.CardBrand
	}
	if err := h.store.UpdatePaymentMethod(r.Context(), method); err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, method, "PUT", endpoint)
}

func (h *Handler) DeletePaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/payment-methods/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	if err := h.store.DeletePaymentMethod(r.Context(), id); err != nil {
		h.respondStoreError(w, err, "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", endpoint)
}

// --- Transactions ---

type transactionRequest struct {
	UserID          string `json:"user_id"`
	MerchantID      string `json:"merchant_id,omitempty"`
	PaymentMethodID string `json:"payment_method_id"`
	Amount          string `json:"amount"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status,omitempty"`
}

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transactions"
	filter, ok := h.queryUserFilter(w, r, endpoint)
	if !ok {
		return
	}
	txns, err := h.store.ListTransactions(r.Context(), filter)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}
	h.respondJSON(w, http.StatusOK, txns, "GET", endpoint)
}

func (h *Handler) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transactions"
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Positive amount required", "POST", endpoint)
		return
	}
	userID, ok := parseID(req.UserID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "User ID is required", "POST", endpoint)
		return
	}
	methodID, ok := parseID(req.PaymentMethodID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Payment method ID is required", "POST", endpoint)
		return
	}
	merchantID, ok := parseOptionalID(req.MerchantID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid merchant ID", "POST", endpoint)
		return
	}
	status := req.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !domain.ValidStatus(status) {
		h.respondError(w, http.StatusBadRequest, "Invalid status", "POST", endpoint)
		return
	}

	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}
	if _, err := h.store.GetPaymentMethod(r.Context(), methodID); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}

	txn := &domain.Transaction{
		UserID:          userID,
		MerchantID:      merchantID,
		PaymentMethodID: methodID,
		Amount:          amount,
		Description:     req.Description,
		Status:          status,
	}
	if err := h.store.CreateTransaction(r.Context(), txn); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, txn, "POST", endpoint)
}

func (h *Handler) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transactions/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	txn, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "GET", endpoint)
}

// UpdateTransactionHandler writes description and merchant reference only.
// Amount is immutable and status changes flow through the state machine.
func (h *Handler) UpdateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transactions/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}
	merchantID, ok := parseOptionalID(req.MerchantID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid merchant ID", "PUT", endpoint)
		return
	}

	txn, err := h.store.GetTransaction(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	txn.Description = req.Description
	if merchantID != nil {
		txn.MerchantID = merchantID
	}
	if err := h.store.UpdateTransaction(r.Context(), txn); err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, txn, "PUT", endpoint)
}

func (h *Handler) DeleteTransactionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transactions/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	if err := h.store.DeleteTransaction(r.Context(), id); err != nil {
		h.respondStoreError(w, err, "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", endpoint)
}

// --- Transaction logs ---

type transactionLogRequest struct {
	TransactionID  string          `json:"transaction_id"`
	LogType        string          `json:"log_type"`
	LogMessage     string          `json:"log_message"`
	AdditionalInfo json.RawMessage `json:"additional_info,omitempty"`
}

func (h *Handler) ListTransactionLogsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transaction-logs"
	filter, ok := parseOptionalID(r.URL.Query().Get("transaction_id"))
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction_id filter", "GET", endpoint)
		return
	}
	logs, err := h.store.ListTransactionLogs(r.Context(), filter)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	if logs == nil {
		logs = []domain.TransactionLog{}
	}
	h.respondJSON(w, http.StatusOK, logs, "GET", endpoint)
}

// CreateTransactionLogHandler appends an annotation entry. The audit trail
// is append-only; update and delete are not served.
func (h *Handler) CreateTransactionLogHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transaction-logs"
	var req transactionLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}
	transactionID, ok := parseID(req.TransactionID)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Transaction ID is required", "POST", endpoint)
		return
	}

	log, err := h.service.RecordAnnotation(r.Context(), transactionID, req.LogType, req.LogMessage, req.AdditionalInfo)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLogType) {
			h.respondError(w, http.StatusBadRequest, "Invalid log type", "POST", endpoint)
			return
		}
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, log, "POST", endpoint)
}

func (h *Handler) GetTransactionLogHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/transaction-logs/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	log, err := h.store.GetTransactionLog(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, log, "GET", endpoint)
}

func (h *Handler) TransactionLogImmutableHandler(w http.ResponseWriter, r *http.Request) {
	h.respondError(w, http.StatusMethodNotAllowed, "Transaction logs are append-only",
		r.Method, "/resources/transaction-logs/{id}")
}

// --- Subscriptions ---

type subscriptionRequest struct {
	UserID   string     `json:"user_id"`
	PlanName string     `json:"plan_name"`
	EndDate  *time.Time `json:"end_date,omitempty"`
	Status   string     `json:"status,omitempty"`
}

func (h *Handler) ListSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/subscriptions"
	filter, ok := h.queryUserFilter(w, r, endpoint)
	if !ok {
		return
	}
	subs, err := h.store.ListSubscriptions(r.Context(), filter)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	h.respondJSON(w, http.StatusOK, subs, "GET", endpoint)
}

func (h *Handler) CreateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/subscriptions"
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", endpoint)
		return
	}
	userID, ok := parseID(req.UserID)
	if !ok || req.PlanName == "" || req.EndDate == nil {
		h.respondError(w, http.StatusBadRequest, "User ID, plan name and end date are required", "POST", endpoint)
		return
	}
	if _, err := h.store.GetUser(r.Context(), userID); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}

	sub := &domain.Subscription{
		UserID:   userID,
		PlanName: req.PlanName,
		EndDate:  *req.EndDate,
		Status:   req.Status,
	}
	if err := h.store.CreateSubscription(r.Context(), sub); err != nil {
		h.respondStoreError(w, err, "POST", endpoint)
		return
	}
	h.respondJSON(w, http.StatusCreated, sub, "POST", endpoint)
}

func (h *Handler) GetSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/subscriptions/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	sub, err := h.store.GetSubscription(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "GET", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, sub, "GET", endpoint)
}

func (h *Handler) UpdateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/subscriptions/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "PUT", endpoint)
		return
	}

	sub, err := h.store.GetSubscription(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	if req.PlanName != "" {
		sub.PlanName = req.PlanName
	}
	if req.EndDate != nil {
		sub.EndDate = *req.EndDate
	}
	if req.Status != "" {
		if req.Status != domain.SubscriptionActive && req.Status != domain.SubscriptionInactive {
			h.respondError(w, http.StatusBadRequest, "Invalid status", "PUT", endpoint)
			return
		}
		sub.Status = req.Status
	}
	if err := h.store.UpdateSubscription(r.Context(), sub); err != nil {
		h.respondStoreError(w, err, "PUT", endpoint)
		return
	}
	h.respondJSON(w, http.StatusOK, sub, "PUT", endpoint)
}

func (h *Handler) DeleteSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/resources/subscriptions/{id}"
	id, ok := h.pathID(w, r, endpoint)
	if !ok {
		return
	}
	if err := h.store.DeleteSubscription(r.Context(), id); err != nil {
		h.respondStoreError(w, err, "DELETE", endpoint)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil, "DELETE", endpoint)
}
