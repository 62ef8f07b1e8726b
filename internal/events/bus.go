// Package events is the in-process publish point decoupling the transaction
// state machine from its reactions. Dispatch is synchronous and typed; the
// dependency graph is explicit because subscribers register against a
// concrete event, not a global registry.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/domain"
)

// PaymentProcessed fires when a transaction reaches completed.
type PaymentProcessed struct {
	Transaction domain.Transaction
}

// PaymentFailed fires when a transaction reaches failed, with a
// human-readable reason.
type PaymentFailed struct {
	Transaction domain.Transaction
	Reason      string
}

// BalanceUpdated fires after the balance updater lands an increment.
type BalanceUpdated struct {
	UserID uuid.UUID
	Delta  decimal.Decimal
}

// Bus dispatches events to registered subscribers in registration order.
// Subscribers handle their own errors; a publish never fails.
type Bus struct {
	mu        sync.RWMutex
	processed []func(context.Context, PaymentProcessed)
	failed    []func(context.Context, PaymentFailed)
	balance   []func(context.Context, BalanceUpdated)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnPaymentProcessed(h func(context.Context, PaymentProcessed)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed = append(b.processed, h)
}

func (b *Bus) OnPaymentFailed(h func(context.Context, PaymentFailed)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = append(b.failed, h)
}

func (b *Bus) OnBalanceUpdated(h func(context.Context, BalanceUpdated)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance = append(b.balance, h)
}

func (b *Bus) PublishPaymentProcessed(ctx context.Context, ev PaymentProcessed) {
	b.mu.RLock()
	handlers := b.processed
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}

func (b *Bus) PublishPaymentFailed(ctx context.Context, ev PaymentFailed) {
	b.mu.RLock()
	handlers := b.failed
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}

func (b *Bus) PublishBalanceUpdated(ctx context.Context, ev BalanceUpdated) {
	b.mu.RLock()
	handlers := b.balance
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
