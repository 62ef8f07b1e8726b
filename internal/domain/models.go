package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction statuses. Completed and Failed are terminal.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Payment method types.
const (
	MethodCreditCard = "credit_card"
	MethodDebitCard  = "debit_card"
	MethodNetBanking = "net_banking"
	MethodUPI        = "upi"
	MethodWallet     = "wallet"
)

// Transaction log types. Refund/chargeback/dispute-class types are recorded
// as annotations only; they do not drive status transitions.
const (
	LogInitiated         = "initiated"
	LogAuthorized        = "authorized"
	LogCaptured          = "captured"
	LogRefunded          = "refunded"
	LogFailed            = "failed"
	LogVoided            = "voided"
	LogPartiallyRefunded = "partially_refunded"
	LogPartiallyVoided   = "partially_voided"
	LogChargeback        = "chargeback"
	LogReversed          = "reversed"
	LogSettled           = "settled"
	LogDisputed          = "disputed"
	LogSucceeded         = "succeeded"
	LogCompleted         = "completed"
)

// Subscription statuses.
const (
	SubscriptionActive   = "active"
	SubscriptionInactive = "inactive"
)

// User owns payment methods and transactions. Balance only changes through
// the balance updater, never by direct edit.
type User struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Merchant is the receiving party of a transaction.
type Merchant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentMethod is a stored instrument correlated to gateway-side state via
// GatewayToken.
type PaymentMethod struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	MethodType        string    `json:"method_type"`
	GatewayCustomerID string    `json:"gateway_customer_id,omitempty"`
	GatewayToken      string    `json:"gateway_payment_method_token,omitempty"`
	LastFourDigits    string    `json:"last_four_digits,omitempty"`
	ExpiryDate        string    `json:"expiry_date,omitempty"`
	CardBrand         string    `json:"card_brand,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Transaction is one payment attempt and its outcome. Amount is immutable
// after creation; only Status may change, and only through the state machine.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	MerchantID      *uuid.UUID      `json:"merchant_id,omitempty"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Terminal reports whether no further status transition is defined.
func (t *Transaction) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// TransactionLog is an immutable audit entry. Entries are append-only and
// listed oldest-first.
type TransactionLog struct {
	ID              uuid.UUID       `json:"id"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	LogType         string          `json:"log_type"`
	LogMessage      string          `json:"log_message"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"`
	MerchantID      *uuid.UUID      `json:"merchant_id,omitempty"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id,omitempty"`
	AdditionalInfo  json.RawMessage `json:"additional_info,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Subscription is an auxiliary entity with no role in the payment core.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	PlanName  string    `json:"plan_name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    string    `json:"status"`
}

// ValidStatus reports whether s is a known transaction status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// ValidLogType reports whether t is a known transaction log type.
func ValidLogType(t string) bool {
	switch t {
	case LogInitiated, LogAuthorized, LogCaptured, LogRefunded, LogFailed,
		LogVoided, LogPartiallyRefunded, LogPartiallyVoided, LogChargeback,
		LogReversed, LogSettled, LogDisputed, LogSucceeded, LogCompleted:
		return true
	}
	return false
}
