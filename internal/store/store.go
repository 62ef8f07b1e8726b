package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the ledger store: persistent records for users, merchants,
// payment methods, transactions, transaction logs and subscriptions.
// Deletes cascade explicitly: removing a user removes its payment methods,
// transactions (with their logs) and subscriptions; removing a payment
// method or transaction removes the dependent rows beneath it.
type Store interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	// AddToUserBalance increments the user's balance in place. The increment
	// must be atomic at the store so concurrent completions for the same
	// user cannot lose updates.
	AddToUserBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error

	CreateMerchant(ctx context.Context, m *domain.Merchant) error
	GetMerchant(ctx context.Context, id uuid.UUID) (*domain.Merchant, error)
	ListMerchants(ctx context.Context) ([]domain.Merchant, error)
	UpdateMerchant(ctx context.Context, m *domain.Merchant) error
	DeleteMerchant(ctx context.Context, id uuid.UUID) error
	// FirstMerchant returns the oldest merchant on record, used as the
	// fallback receiver when a charge names none.
	FirstMerchant(ctx context.Context) (*domain.Merchant, error)

	CreatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, userID *uuid.UUID) ([]domain.PaymentMethod, error)
	UpdatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error
	DeletePaymentMethod(ctx context.Context, id uuid.UUID) error
	FirstPaymentMethodForUser(ctx context.Context, userID uuid.UUID) (*domain.PaymentMethod, error)

	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID *uuid.UUID) ([]domain.Transaction, error)
	// UpdateTransaction writes the mutable fields only (description and
	// merchant reference). Amount and status are never touched here.
	UpdateTransaction(ctx context.Context, t *domain.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) error
	// LatestTransactionByMethodToken resolves a webhook event to the most
	// recent transaction referencing the payment method with the given
	// gateway token.
	LatestTransactionByMethodToken(ctx context.Context, token string) (*domain.Transaction, error)

	AppendTransactionLog(ctx context.Context, l *domain.TransactionLog) error
	GetTransactionLog(ctx context.Context, id uuid.UUID) (*domain.TransactionLog, error)
	// ListTransactionLogs returns entries oldest-first.
	ListTransactionLogs(ctx context.Context, transactionID *uuid.UUID) ([]domain.TransactionLog, error)

	CreateSubscription(ctx context.Context, s *domain.Subscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error)
	ListSubscriptions(ctx context.Context, userID *uuid.UUID) ([]domain.Subscription, error)
	UpdateSubscription(ctx context.Context, s *domain.Subscription) error
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
}
