package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/punchamoorthee/payflow/internal/domain"
	"github.com/punchamoorthee/payflow/internal/events"
	"github.com/punchamoorthee/payflow/internal/store"
)

// BalanceUpdater reacts to processed payments by crediting the owning user.
// The increment happens in the store as an atomic add, never as a
// read-then-write.
type BalanceUpdater struct {
	store  store.Store
	bus    *events.Bus
	logger *slog.Logger
}

func NewBalanceUpdater(s store.Store, bus *events.Bus, logger *slog.Logger) *BalanceUpdater {
	return &BalanceUpdater{store: s, bus: bus, logger: logger}
}

// Register subscribes the updater to payment-processed notifications.
func (b *BalanceUpdater) Register() {
	b.bus.OnPaymentProcessed(b.handle)
}

func (b *BalanceUpdater) handle(ctx context.Context, ev events.PaymentProcessed) {
	txn := ev.Transaction
	if txn.Status != domain.StatusCompleted {
		return
	}
	if err := b.store.AddToUserBalance(ctx, txn.UserID, txn.Amount); err != nil {
		// Not retried and no compensating entry is written.
		b.logger.Error("failed to update user balance",
			"user_id", txn.UserID, "transaction_id", txn.ID, "error", err)
		return
	}
	b.logger.Info("user balance updated",
		"user_id", txn.UserID, "delta", txn.Amount)
	b.bus.PublishBalanceUpdated(ctx, events.BalanceUpdated{
		UserID: txn.UserID,
		Delta:  txn.Amount,
	})
}

// FailureLogger appends the audit entry for failed payments, mirroring the
// transaction's actor references onto the log row.
type FailureLogger struct {
	store  store.Store
	logger *slog.Logger
}

func NewFailureLogger(s store.Store, logger *slog.Logger) *FailureLogger {
	return &FailureLogger{store: s, logger: logger}
}

func (f *FailureLogger) Register(bus *events.Bus) {
	bus.OnPaymentFailed(f.handle)
}

func (f *FailureLogger) handle(ctx context.Context, ev events.PaymentFailed) {
	txn := ev.Transaction
	f.logger.Error("payment failed",
		"transaction_id", txn.ID, "reason", ev.Reason)

	log := &domain.TransactionLog{
		TransactionID:   txn.ID,
		LogType:         domain.LogFailed,
		LogMessage:      fmt.Sprintf("Payment failed: %s", ev.Reason),
		UserID:          &txn.UserID,
		MerchantID:      txn.MerchantID,
		PaymentMethodID: &txn.PaymentMethodID,
	}
	if err := f.store.AppendTransactionLog(ctx, log); err != nil {
		f.logger.Error("failure log append failed",
			"transaction_id", txn.ID, "error", err)
	}
}

// RegisterSubscribers wires the default reactions: balance updates on
// success, audit entries on failure, ambient logging of balance changes.
func RegisterSubscribers(bus *events.Bus, s store.Store, logger *slog.Logger) {
	NewBalanceUpdater(s, bus, logger).Register()
	NewFailureLogger(s, logger).Register(bus)
	bus.OnBalanceUpdated(func(ctx context.Context, ev events.BalanceUpdated) {
		logger.Info("balance updated notification",
			"user_id", ev.UserID, "delta", ev.Delta)
	})
}
