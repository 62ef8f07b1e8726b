package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/domain"
	"github.com/punchamoorthee/payflow/internal/events"
	"github.com/punchamoorthee/payflow/internal/gateway"
	"github.com/punchamoorthee/payflow/internal/store"
)

var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrMissingMethodToken = errors.New("payment method token is required")
	ErrNoMerchant         = errors.New("no merchant available")
	ErrInvalidLogType     = errors.New("unknown log type")
)

// PaymentService is the transaction state machine. It computes the next
// transaction status from gateway responses and webhook events, persists it,
// appends the audit trail and publishes completion notifications.
type PaymentService struct {
	store   store.Store
	gateway gateway.Client
	bus     *events.Bus
	logger  *slog.Logger
}

func NewPaymentService(s store.Store, gw gateway.Client, bus *events.Bus, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:   s,
		gateway: gw,
		bus:     bus,
		logger:  logger,
	}
}

// ChargeInput is a direct synchronous charge attempt.
type ChargeInput struct {
	UserID         uuid.UUID
	MerchantID     *uuid.UUID
	Amount         decimal.Decimal
	MethodToken    string
	Description    string
	IdempotencyKey string
}

// ChargeResult is the gateway intent plus the locally recorded transaction,
// if one was created.
type ChargeResult struct {
	Intent      *gateway.PaymentIntent `json:"intent"`
	Transaction *domain.Transaction    `json:"transaction,omitempty"`
}

// CreatePaymentIntent runs the synchronous charge flow. A succeeded intent
// yields exactly one completed transaction; a card-level decline yields no
// row; a processor-level failure with a resolved user records a failed
// transaction before the error is surfaced.
func (p *PaymentService) CreatePaymentIntent(ctx context.Context, in ChargeInput) (*ChargeResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if in.MethodToken == "" {
		return nil, ErrMissingMethodToken
	}

	user, err := p.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	intent, err := p.gateway.CreatePaymentIntent(ctx, gateway.ChargeRequest{
		AmountCents:    amountCents(in.Amount),
		Currency:       "usd",
		MethodToken:    in.MethodToken,
		IdempotencyKey: in.IdempotencyKey,
		Metadata: map[string]string{
			"user_id":     user.ID.String(),
			"description": in.Description,
		},
	})
	if err != nil {
		if gateway.IsCardError(err) {
			// Card declines are the caller's problem; nothing is recorded.
			return nil, err
		}
		if gateway.IsGatewayError(err) {
			p.recordGatewayFailure(ctx, user, in, err)
		}
		return nil, err
	}

	result := &ChargeResult{Intent: intent}
	if intent.Status != gateway.IntentSucceeded {
		return result, nil
	}

	merchantID, err := p.resolveMerchant(ctx, in.MerchantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	method, err := p.resolveMethod(ctx, user.ID, in.MethodToken)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		UserID:          user.ID,
		MerchantID:      merchantID,
		PaymentMethodID: method.ID,
		Amount:          in.Amount,
		Description:     in.Description,
		Status:          domain.StatusCompleted,
	}
	if err := p.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("transaction insert failed: %w", err)
	}
	p.logger.Info("new transaction created",
		"transaction_id", txn.ID, "amount", txn.Amount, "status", txn.Status)

	result.Transaction = txn
	p.bus.PublishPaymentProcessed(ctx, events.PaymentProcessed{Transaction: *txn})
	return result, nil
}

// recordGatewayFailure persists a failed transaction for a processor-level
// error when enough context exists; best effort, the gateway error is what
// the caller sees either way.
func (p *PaymentService) recordGatewayFailure(ctx context.Context, user *domain.User, in ChargeInput, gwErr error) {
	merchantID, _ := p.resolveMerchant(ctx, in.MerchantID)
	method, err := p.store.FirstPaymentMethodForUser(ctx, user.ID)
	if err != nil {
		p.logger.Warn("gateway failure not recorded, user has no payment method",
			"user_id", user.ID, "error", gwErr)
		return
	}

	txn := &domain.Transaction{
		UserID:          user.ID,
		MerchantID:      merchantID,
		PaymentMethodID: method.ID,
		Amount:          in.Amount,
		Description:     in.Description,
		Status:          domain.StatusFailed,
	}
	if err := p.store.CreateTransaction(ctx, txn); err != nil {
		p.logger.Error("failed transaction insert failed", "error", err)
		return
	}
	p.bus.PublishPaymentFailed(ctx, events.PaymentFailed{
		Transaction: *txn,
		Reason:      gwErr.Error(),
	})
}

// LinkInput creates a hosted payment link purchase.
type LinkInput struct {
	UserID      uuid.UUID
	MerchantID  *uuid.UUID
	Amount      decimal.Decimal
	ProductName string
	Description string
	RedirectURL string
}

// LinkResult is the hosted link plus the pending transaction tracking it.
type LinkResult struct {
	PaymentLink   string    `json:"payment_link"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

// CreatePaymentLink starts an asynchronous payment-link flow: the
// transaction begins pending and is reconciled by webhook.
func (p *PaymentService) CreatePaymentLink(ctx context.Context, in LinkInput) (*LinkResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	user, err := p.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	merchantID, err := p.resolveMerchant(ctx, in.MerchantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoMerchant
		}
		return nil, err
	}

	productName := in.ProductName
	if productName == "" {
		productName = "Product"
	}
	link, err := p.gateway.CreatePaymentLink(ctx, gateway.LinkRequest{
		AmountCents: amountCents(in.Amount),
		Currency:    "usd",
		ProductName: productName,
		Description: in.Description,
		RedirectURL: in.RedirectURL,
		Metadata: map[string]string{
			"user_id":     user.ID.String(),
			"description": in.Description,
		},
	})
	if err != nil {
		return nil, err
	}

	method, err := p.resolveMethod(ctx, user.ID, link.ID)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		UserID:          user.ID,
		MerchantID:      merchantID,
		PaymentMethodID: method.ID,
		Amount:          in.Amount,
		Description:     in.Description,
		Status:          domain.StatusPending,
	}
	if err := p.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("transaction insert failed: %w", err)
	}
	p.logger.Info("new transaction created",
		"transaction_id", txn.ID, "amount", txn.Amount, "status", txn.Status)

	log := &domain.TransactionLog{
		TransactionID: txn.ID,
		LogType:       domain.LogInitiated,
		LogMessage:    fmt.Sprintf("Payment link created: %s", link.URL),
		UserID:        &user.ID,
	}
	if err := p.store.AppendTransactionLog(ctx, log); err != nil {
		return nil, fmt.Errorf("transaction log append failed: %w", err)
	}

	return &LinkResult{PaymentLink: link.URL, TransactionID: txn.ID}, nil
}

// CheckoutInput creates a hosted checkout session purchase.
type CheckoutInput struct {
	UserID      uuid.UUID
	MerchantID  *uuid.UUID
	Amount      decimal.Decimal
	ProductName string
	Description string
	SuccessURL  string
	CancelURL   string
}

// CheckoutResult is the hosted session plus the pending transaction.
type CheckoutResult struct {
	Session       *gateway.CheckoutSession `json:"session"`
	TransactionID uuid.UUID                `json:"transaction_id"`
}

// CreateCheckoutSession starts an asynchronous checkout flow. The session ID
// doubles as the correlation token for the success redirect and webhooks.
func (p *PaymentService) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	user, err := p.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	merchantID, err := p.resolveMerchant(ctx, in.MerchantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	productName := in.ProductName
	if productName == "" {
		productName = "Product"
	}
	session, err := p.gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		AmountCents: amountCents(in.Amount),
		Currency:    "usd",
		ProductName: productName,
		SuccessURL:  in.SuccessURL,
		CancelURL:   in.CancelURL,
		Metadata: map[string]string{
			"user_id":     user.ID.String(),
			"description": in.Description,
		},
	})
	if err != nil {
		return nil, err
	}

	method, err := p.resolveMethod(ctx, user.ID, session.ID)
	if err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		UserID:          user.ID,
		MerchantID:      merchantID,
		PaymentMethodID: method.ID,
		Amount:          in.Amount,
		Description:     in.Description,
		Status:          domain.StatusPending,
	}
	if err := p.store.CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("transaction insert failed: %w", err)
	}
	p.logger.Info("new transaction created",
		"transaction_id", txn.ID, "amount", txn.Amount, "status", txn.Status)

	log := &domain.TransactionLog{
		TransactionID: txn.ID,
		LogType:       domain.LogInitiated,
		LogMessage:    fmt.Sprintf("Checkout session created: %s", session.ID),
		UserID:        &user.ID,
	}
	if err := p.store.AppendTransactionLog(ctx, log); err != nil {
		return nil, fmt.Errorf("transaction log append failed: %w", err)
	}

	return &CheckoutResult{Session: session, TransactionID: txn.ID}, nil
}

// HandleGatewayEvent applies a verified webhook event to the state machine.
// Unmatched and unrecognized events are discarded without error; re-delivery
// of an already-applied status skips the status write and the publish, so a
// completion can never credit a balance twice.
func (p *PaymentService) HandleGatewayEvent(ctx context.Context, ev *gateway.Event) error {
	var target, logType string
	switch ev.Type {
	case gateway.EventPaymentIntentSucceeded:
		target, logType = domain.StatusCompleted, domain.LogSucceeded
	case gateway.EventPaymentIntentFailed:
		target, logType = domain.StatusFailed, domain.LogFailed
	case gateway.EventCheckoutSessionCompleted, gateway.EventCheckoutAsyncPaymentSuccess:
		target, logType = domain.StatusCompleted, domain.LogCompleted
	case gateway.EventCheckoutAsyncPaymentFailed:
		target, logType = domain.StatusFailed, domain.LogFailed
	default:
		p.logger.Info("unhandled webhook event type", "type", ev.Type)
		return nil
	}

	token := ev.Data.Object.MethodToken()
	txn, err := p.store.LatestTransactionByMethodToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Downstream systems may receive events for transactions this
			// service never created.
			p.logger.Info("webhook event matched no transaction",
				"type", ev.Type, "token", token)
			return nil
		}
		return fmt.Errorf("transaction lookup failed: %w", err)
	}

	var info json.RawMessage
	if len(ev.Data.Object.Metadata) > 0 {
		info, _ = json.Marshal(ev.Data.Object.Metadata)
	}
	return p.applyStatus(ctx, txn, target, logType, "Webhook event processed", info)
}

// ConfirmCheckoutSuccess completes the transaction tied to a checkout
// session when the customer lands on the success redirect. An unknown
// session is tolerated.
func (p *PaymentService) ConfirmCheckoutSuccess(ctx context.Context, sessionID string) error {
	txn, err := p.store.LatestTransactionByMethodToken(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			p.logger.Info("success redirect matched no transaction", "session_id", sessionID)
			return nil
		}
		return fmt.Errorf("transaction lookup failed: %w", err)
	}
	return p.applyStatus(ctx, txn, domain.StatusCompleted, domain.LogCompleted,
		"Checkout session confirmed", nil)
}

// applyStatus moves a transaction to the target terminal status, appends the
// audit entry and publishes the completion notification. Applying the status
// the transaction already holds appends only the log entry.
func (p *PaymentService) applyStatus(ctx context.Context, txn *domain.Transaction, target, logType, message string, info json.RawMessage) error {
	changed := txn.Status != target
	if changed {
		if txn.Terminal() {
			p.logger.Warn("terminal status overwritten",
				"transaction_id", txn.ID, "from", txn.Status, "to", target)
		}
		if err := p.store.UpdateTransactionStatus(ctx, txn.ID, target); err != nil {
			return fmt.Errorf("status update failed: %w", err)
		}
		txn.Status = target
		p.logger.Info("transaction updated", "transaction_id", txn.ID, "status", target)
	}

	log := &domain.TransactionLog{
		TransactionID:   txn.ID,
		LogType:         logType,
		LogMessage:      message,
		UserID:          &txn.UserID,
		MerchantID:      txn.MerchantID,
		PaymentMethodID: &txn.PaymentMethodID,
		AdditionalInfo:  info,
	}
	if err := p.store.AppendTransactionLog(ctx, log); err != nil {
		return fmt.Errorf("transaction log append failed: %w", err)
	}

	if !changed {
		return nil
	}

	switch target {
	case domain.StatusCompleted:
		p.bus.PublishPaymentProcessed(ctx, events.PaymentProcessed{Transaction: *txn})
	case domain.StatusFailed:
		p.bus.PublishPaymentFailed(ctx, events.PaymentFailed{
			Transaction: *txn,
			Reason:      fmt.Sprintf("Payment failed for transaction %s", txn.ID),
		})
	}
	return nil
}

// RecordAnnotation appends a refund/chargeback/dispute-class audit entry.
// Annotations never change transaction status; the state machine defines no
// transition out of a terminal state.
func (p *PaymentService) RecordAnnotation(ctx context.Context, transactionID uuid.UUID, logType, message string, info json.RawMessage) (*domain.TransactionLog, error) {
	if !domain.ValidLogType(logType) {
		return nil, ErrInvalidLogType
	}
	txn, err := p.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}

	log := &domain.TransactionLog{
		TransactionID:   txn.ID,
		LogType:         logType,
		LogMessage:      message,
		UserID:          &txn.UserID,
		MerchantID:      txn.MerchantID,
		PaymentMethodID: &txn.PaymentMethodID,
		AdditionalInfo:  info,
	}
	if err := p.store.AppendTransactionLog(ctx, log); err != nil {
		return nil, fmt.Errorf("transaction log append failed: %w", err)
	}
	return log, nil
}

// TransactionLogs lists the audit trail for a transaction, oldest first.
func (p *PaymentService) TransactionLogs(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionLog, error) {
	if _, err := p.store.GetTransaction(ctx, transactionID); err != nil {
		return nil, fmt.Errorf("transaction lookup: %w", err)
	}
	return p.store.ListTransactionLogs(ctx, &transactionID)
}

func (p *PaymentService) resolveMerchant(ctx context.Context, merchantID *uuid.UUID) (*uuid.UUID, error) {
	if merchantID != nil {
		m, err := p.store.GetMerchant(ctx, *merchantID)
		if err != nil {
			return nil, fmt.Errorf("merchant lookup: %w", err)
		}
		return &m.ID, nil
	}
	m, err := p.store.FirstMerchant(ctx)
	if err != nil {
		return nil, err
	}
	return &m.ID, nil
}

// resolveMethod returns the user's first stored payment method, creating a
// default card entry carrying the gateway token when none exists yet.
func (p *PaymentService) resolveMethod(ctx context.Context, userID uuid.UUID, token string) (*domain.PaymentMethod, error) {
	method, err := p.store.FirstPaymentMethodForUser(ctx, userID)
	if err == nil {
		return method, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	method = &domain.PaymentMethod{
		UserID:         userID,
		MethodType:     domain.MethodCreditCard,
		GatewayToken:   token,
		LastFourDigits: "1234",
	}
	if err := p.store.CreatePaymentMethod(ctx, method); err != nil {
		return nil, fmt.Errorf("payment method insert failed: %w", err)
	}
	return method, nil
}

func amountCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
