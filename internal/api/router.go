package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the full route table: health and metrics at the root,
// payment actions and resource CRUD under /api/v1.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()

	// Payment actions
	apiV1.HandleFunc("/create-payment-intent", h.CreatePaymentIntentHandler).Methods("POST")
	apiV1.HandleFunc("/create-payment-link", h.CreatePaymentLinkHandler).Methods("POST")
	apiV1.HandleFunc("/create-checkout-session", h.CheckoutSessionHandler).Methods("POST")
	apiV1.HandleFunc("/success", h.PaymentSuccessHandler).Methods("GET")
	apiV1.HandleFunc("/cancel", h.PaymentCancelHandler).Methods("GET")
	apiV1.HandleFunc("/webhook", h.WebhookHandler).Methods("POST")

	// Resources
	res := apiV1.PathPrefix("/resources").Subrouter()

	res.HandleFunc("/users", h.ListUsersHandler).Methods("GET")
	res.HandleFunc("/users", h.CreateUserHandler).Methods("POST")
	res.HandleFunc("/users/{id}", h.GetUserHandler).Methods("GET")
	res.HandleFunc("/users/{id}", h.UpdateUserHandler).Methods("PUT")
	res.HandleFunc("/users/{id}", h.DeleteUserHandler).Methods("DELETE")

	res.HandleFunc("/merchants", h.ListMerchantsHandler).Methods("GET")
	res.HandleFunc("/merchants", h.CreateMerchantHandler).Methods("POST")
	res.HandleFunc("/merchants/{id}", h.GetMerchantHandler).Methods("GET")
	res.HandleFunc("/merchants/{id}", h.UpdateMerchantHandler).Methods("PUT")
	res.HandleFunc("/merchants/{id}", h.DeleteMerchantHandler).Methods("DELETE")

	res.HandleFunc("/payment-methods", h.ListPaymentMethodsHandler).Methods("GET")
	res.HandleFunc("/payment-methods", h.CreatePaymentMethodHandler).Methods("POST")
	res.HandleFunc("/payment-methods/{id}", h.GetPaymentMethodHandler).Methods("GET")
	res.HandleFunc("/payment-methods/{id}", h.UpdatePaymentMethodHandler).Methods("PUT")
	res.HandleFunc("/payment-methods/{id}", h.DeletePaymentMethodHandler).Methods("DELETE")

	res.HandleFunc("/transactions", h.ListTransactionsHandler).Methods("GET")
	res.HandleFunc("/transactions", h.CreateTransactionHandler).Methods("POST")
	res.HandleFunc("/transactions/{id}", h.GetTransactionHandler).Methods("GET")
	res.HandleFunc("/transactions/{id}", h.UpdateTransactionHandler).Methods("PUT")
	res.HandleFunc("/transactions/{id}", h.DeleteTransactionHandler).Methods("DELETE")

	res.HandleFunc("/transaction-logs", h.ListTransactionLogsHandler).Methods("GET")
	res.HandleFunc("/transaction-logs", h.CreateTransactionLogHandler).Methods("POST")
	res.HandleFunc("/transaction-logs/{id}", h.GetTransactionLogHandler).Methods("GET")
	res.HandleFunc("/transaction-logs/{id}", h.TransactionLogImmutableHandler).Methods("PUT", "DELETE")

	res.HandleFunc("/subscriptions", h.ListSubscriptionsHandler).Methods("GET")
	res.HandleFunc("/subscriptions", h.CreateSubscriptionHandler).Methods("POST")
	res.HandleFunc("/subscriptions/{id}", h.GetSubscriptionHandler).Methods("GET")
	res.HandleFunc("/subscriptions/{id}", h.UpdateSubscriptionHandler).Methods("PUT")
	res.HandleFunc("/subscriptions/{id}", h.DeleteSubscriptionHandler).Methods("DELETE")

	return r
}
