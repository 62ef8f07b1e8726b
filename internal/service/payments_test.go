package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/domain"
	"github.com/punchamoorthee/payflow/internal/events"
	"github.com/punchamoorthee/payflow/internal/gateway"
	"github.com/punchamoorthee/payflow/internal/store"
)

type stubGateway struct {
	intent     *gateway.PaymentIntent
	intentErr  error
	link       *gateway.PaymentLink
	linkErr    error
	session    *gateway.CheckoutSession
	sessionErr error

	chargeCalls int
	lastCharge  gateway.ChargeRequest
}

func (g *stubGateway) CreatePaymentIntent(ctx context.Context, req gateway.ChargeRequest) (*gateway.PaymentIntent, error) {
	g.chargeCalls++
	g.lastCharge = req
	return g.intent, g.intentErr
}

func (g *stubGateway) CreatePaymentLink(ctx context.Context, req gateway.LinkRequest) (*gateway.PaymentLink, error) {
	return g.link, g.linkErr
}

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	return g.session, g.sessionErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store   *store.Memory
	gateway *stubGateway
	bus     *events.Bus
	service *PaymentService
	user    *domain.User
	method  *domain.PaymentMethod
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	gw := &stubGateway{}
	bus := events.NewBus()
	logger := discardLogger()
	RegisterSubscribers(bus, mem, logger)

	user := &domain.User{Username: "alice", Email: "alice@example.com"}
	if err := mem.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	method := &domain.PaymentMethod{
		UserID:       user.ID,
		MethodType:   domain.MethodCreditCard,
		GatewayToken: "pm_test_123",
	}
	if err := mem.CreatePaymentMethod(context.Background(), method); err != nil {
		t.Fatalf("seed payment method: %v", err)
	}

	return &fixture{
		store:   mem,
		gateway: gw,
		bus:     bus,
		service: NewPaymentService(mem, gw, bus, logger),
		user:    user,
		method:  method,
	}
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.Balance
}

func (f *fixture) transactions(t *testing.T) []domain.Transaction {
	t.Helper()
	txns, err := f.store.ListTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return txns
}

func (f *fixture) logs(t *testing.T) []domain.TransactionLog {
	t.Helper()
	logs, err := f.store.ListTransactionLogs(context.Background(), nil)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	return logs
}

func TestCreatePaymentIntentSucceeded(t *testing.T) {
	f := newFixture(t)
	f.gateway.intent = &gateway.PaymentIntent{ID: "pi_1", Status: gateway.IntentSucceeded}

	result, err := f.service.CreatePaymentIntent(context.Background(), ChargeInput{
		UserID:      f.user.ID,
		Amount:      decimal.RequireFromString("25.50"),
		MethodToken: "pm_test_123",
		Description: "coffee beans",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Transaction == nil {
		t.Fatal("expected a recorded transaction")
	}
	if result.Transaction.Status != domain.StatusCompleted {
		t.Fatalf("expected status completed, got %s", result.Transaction.Status)
	}
	if f.gateway.lastCharge.AmountCents != 2550 {
		t.Fatalf("expected 2550 cents, got %d", f.gateway.lastCharge.AmountCents)
	}

	if got := f.balance(t); !got.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("expected balance 25.50, got %s", got)
	}
	if logs := f.logs(t); len(logs) != 0 {
		t.Fatalf("expected no audit entries for a synchronous charge, got %d", len(logs))
	}
}

func TestCreatePaymentIntentValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreatePaymentIntent(context.Background(), ChargeInput{
		UserID:      f.user.ID,
		Amount:      decimal.Zero,
		MethodToken: "pm_test_123",
	})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, err = f.service.CreatePaymentIntent(context.Background(), ChargeInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("10.00"),
	})
	if !errors.Is(err, ErrMissingMethodToken) {
		t.Fatalf("expected ErrMissingMethodToken, got %v", err)
	}

	if f.gateway.chargeCalls != 0 {
		t.Fatalf("expected no gateway calls, got %d", f.gateway.chargeCalls)
	}
	if txns := f.transactions(t); len(txns) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txns))
	}
}

func TestCreatePaymentIntentCardDecline(t *testing.T) {
	f := newFixture(t)
	f.gateway.intentErr = &gateway.Error{Type: "card_error", Code: "card_declined", Message: "Your card was declined."}

	_, err := f.service.CreatePaymentIntent(context.Background(), ChargeInput{
		UserID:      f.user.ID,
		Amount:      decimal.RequireFromString("10.00"),
		MethodToken: "pm_test_123",
	})
	if !gateway.IsCardError(err) {
		t.Fatalf("expected card error, got %v", err)
	}

	// Declines leave no trace: no transaction, no audit entry, no credit.
	if txns := f.transactions(t); len(txns) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txns))
	}
	if logs := f.logs(t); len(logs) != 0 {
		t.Fatalf("expected no logs, got %d", len(logs))
	}
	if got := f.balance(t); !got.IsZero() {
		t.Fatalf("expected zero balance, got %s", got)
	}
}

func TestCreatePaymentIntentGatewayFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.intentErr = &gateway.Error{Type: "api_error", Message: "processor unavailable"}

	_, err := f.service.CreatePaymentIntent(context.Background(), ChargeInput{
		UserID:      f.user.ID,
		Amount:      decimal.RequireFromString("10.00"),
		MethodToken: "pm_test_123",
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	txns := f.transactions(t)
	if len(txns) != 1 {
		t.Fatalf("expected one failed transaction, got %d", len(txns))
	}
	if txns[0].Status != domain.StatusFailed {
		t.Fatalf("expected status failed, got %s", txns[0].Status)
	}

	logs := f.logs(t)
	if len(logs) != 1 {
		t.Fatalf("expected one failure log, got %d", len(logs))
	}
	if logs[0].LogType != domain.LogFailed {
		t.Fatalf("expected log type failed, got %s", logs[0].LogType)
	}
	if got := f.balance(t); !got.IsZero() {
		t.Fatalf("expected zero balance, got %s", got)
	}
}

func TestCreatePaymentLinkRequiresMerchant(t *testing.T) {
	f := newFixture(t)
	f.gateway.link = &gateway.PaymentLink{ID: "plink_1", URL: "https://pay.example.com/plink_1"}

	_, err := f.service.CreatePaymentLink(context.Background(), LinkInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("15.00"),
	})
	if !errors.Is(err, ErrNoMerchant) {
		t.Fatalf("expected ErrNoMerchant, got %v", err)
	}
}

func TestCreatePaymentLinkPendingUntilWebhook(t *testing.T) {
	f := newFixture(t)
	merchant := &domain.Merchant{Name: "acme", Email: "acme@example.com"}
	if err := f.store.CreateMerchant(context.Background(), merchant); err != nil {
		t.Fatalf("seed merchant: %v", err)
	}
	f.gateway.link = &gateway.PaymentLink{ID: "plink_1", URL: "https://pay.example.com/plink_1"}

	result, err := f.service.CreatePaymentLink(context.Background(), LinkInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("15.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txn, err := f.store.GetTransaction(context.Background(), result.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %s", txn.Status)
	}
	if txn.MerchantID == nil || *txn.MerchantID != merchant.ID {
		t.Fatal("expected the seeded merchant on the transaction")
	}

	logs := f.logs(t)
	if len(logs) != 1 || logs[0].LogType != domain.LogInitiated {
		t.Fatalf("expected one initiated log, got %+v", logs)
	}
	if got := f.balance(t); !got.IsZero() {
		t.Fatalf("expected zero balance before webhook, got %s", got)
	}
}

func TestHandleGatewayEventCompletesPending(t *testing.T) {
	f := newFixture(t)
	f.gateway.session = &gateway.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example.com/cs_test_1"}

	result, err := f.service.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("20.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The fixture user already has a card on file, so the session is
	// reconciled through that method's token.
	ev := &gateway.Event{
		Type: gateway.EventCheckoutSessionCompleted,
		Data: gateway.EventData{Object: gateway.EventObject{
			ID:            "cs_test_1",
			PaymentMethod: "pm_test_123",
			Metadata:      map[string]string{"user_id": f.user.ID.String()},
		}},
	}
	if err := f.service.HandleGatewayEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txn, err := f.store.GetTransaction(context.Background(), result.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != domain.StatusCompleted {
		t.Fatalf("expected status completed, got %s", txn.Status)
	}
	if got := f.balance(t); !got.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected balance 20.00, got %s", got)
	}

	logs, err := f.store.ListTransactionLogs(context.Background(), &txn.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected initiated + completed logs, got %d", len(logs))
	}
	if logs[0].LogType != domain.LogInitiated || logs[1].LogType != domain.LogCompleted {
		t.Fatalf("unexpected log ordering: %s, %s", logs[0].LogType, logs[1].LogType)
	}
}

func TestHandleGatewayEventRedelivery(t *testing.T) {
	f := newFixture(t)
	f.gateway.session = &gateway.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example.com/cs_test_1"}

	if _, err := f.service.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("20.00"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := &gateway.Event{
		Type: gateway.EventCheckoutSessionCompleted,
		Data: gateway.EventData{Object: gateway.EventObject{ID: "cs_test_1", PaymentMethod: "pm_test_123"}},
	}
	for i := 0; i < 3; i++ {
		if err := f.service.HandleGatewayEvent(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	// Re-delivery appends audit entries but credits the balance exactly once.
	if got := f.balance(t); !got.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected balance 20.00 after redelivery, got %s", got)
	}
	logs := f.logs(t)
	if len(logs) != 4 {
		t.Fatalf("expected 4 logs (initiated + 3 completed), got %d", len(logs))
	}
}

func TestHandleGatewayEventFailure(t *testing.T) {
	f := newFixture(t)
	f.gateway.link = &gateway.PaymentLink{ID: "plink_1", URL: "https://pay.example.com/plink_1"}
	merchant := &domain.Merchant{Name: "acme", Email: "acme@example.com"}
	if err := f.store.CreateMerchant(context.Background(), merchant); err != nil {
		t.Fatalf("seed merchant: %v", err)
	}

	result, err := f.service.CreatePaymentLink(context.Background(), LinkInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("15.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := &gateway.Event{
		Type: gateway.EventPaymentIntentFailed,
		Data: gateway.EventData{Object: gateway.EventObject{ID: "pi_1", PaymentMethod: "pm_test_123"}},
	}
	if err := f.service.HandleGatewayEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txn, err := f.store.GetTransaction(context.Background(), result.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != domain.StatusFailed {
		t.Fatalf("expected status failed, got %s", txn.Status)
	}
	if got := f.balance(t); !got.IsZero() {
		t.Fatalf("expected zero balance, got %s", got)
	}
}

func TestHandleGatewayEventSucceededLogType(t *testing.T) {
	f := newFixture(t)
	f.gateway.link = &gateway.PaymentLink{ID: "plink_1", URL: "https://pay.example.com/plink_1"}
	merchant := &domain.Merchant{Name: "acme", Email: "acme@example.com"}
	if err := f.store.CreateMerchant(context.Background(), merchant); err != nil {
		t.Fatalf("seed merchant: %v", err)
	}

	result, err := f.service.CreatePaymentLink(context.Background(), LinkInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := &gateway.Event{
		Type: gateway.EventPaymentIntentSucceeded,
		Data: gateway.EventData{Object: gateway.EventObject{ID: "pi_1", PaymentMethod: "pm_test_123"}},
	}
	if err := f.service.HandleGatewayEvent(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txn, err := f.store.GetTransaction(context.Background(), result.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != domain.StatusCompleted {
		t.Fatalf("expected status completed, got %s", txn.Status)
	}

	// Payment-intent completions are logged as succeeded, not as the
	// checkout-flavored completed type.
	logs, err := f.store.ListTransactionLogs(context.Background(), &txn.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected initiated + succeeded logs, got %d", len(logs))
	}
	if logs[1].LogType != domain.LogSucceeded {
		t.Fatalf("expected log type %s, got %s", domain.LogSucceeded, logs[1].LogType)
	}
	if got := f.balance(t); !got.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected balance 100.00, got %s", got)
	}
}

func TestHandleGatewayEventOverwritesTerminalStatus(t *testing.T) {
	f := newFixture(t)
	f.gateway.link = &gateway.PaymentLink{ID: "plink_1", URL: "https://pay.example.com/plink_1"}
	merchant := &domain.Merchant{Name: "acme", Email: "acme@example.com"}
	if err := f.store.CreateMerchant(context.Background(), merchant); err != nil {
		t.Fatalf("seed merchant: %v", err)
	}

	result, err := f.service.CreatePaymentLink(context.Background(), LinkInput{
		UserID: f.user.ID,
		Amount: decimal.RequireFromString("20.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failed := &gateway.Event{
		Type: gateway.EventPaymentIntentFailed,
		Data: gateway.EventData{Object: gateway.EventObject{ID: "pi_1", PaymentMethod: "pm_test_123"}},
	}
	succeeded := &gateway.Event{
		Type: gateway.EventPaymentIntentSucceeded,
		Data: gateway.EventData{Object: gateway.EventObject{ID: "pi_1", PaymentMethod: "pm_test_123"}},
	}
	if err := f.service.HandleGatewayEvent(context.Background(), failed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.service.HandleGatewayEvent(context.Background(), succeeded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A late success after a failure is applied, matching the overwrite
	// semantics of the webhook reconciler.
	txn, err := f.store.GetTransaction(context.Background(), result.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != domain.StatusCompleted {
		t.Fatalf("expected status completed, got %s", txn.Status)
	}
	if got := f.balance(t); !got.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected balance 20.00, got %s", got)
	}
}

func TestHandleGatewayEventUnmatched(t *testing.T) {
	f := newFixture(t)

	ev := &gateway.Event{
		Type: gateway.EventPaymentIntentSucceeded,
		Data: gateway.EventData{Object: gateway.EventObject{ID: "pi_unknown", PaymentMethod: "pm_unknown"}},
	}
	if err := f.service.HandleGatewayEvent(context.Background(), ev); err != nil {
		t.Fatalf("unmatched event should be tolerated, got %v", err)
	}
	if logs := f.logs(t); len(logs) != 0 {
		t.Fatalf("expected no logs, got %d", len(logs))
	}
}

func TestHandleGatewayEventUnrecognizedType(t *testing.T) {
	f := newFixture(t)

	ev := &gateway.Event{Type: "invoice.paid"}
	if err := f.service.HandleGatewayEvent(context.Background(), ev); err != nil {
		t.Fatalf("unrecognized event type should be tolerated, got %v", err)
	}
}

func TestConfirmCheckoutSuccess(t *testing.T) {
	f := newFixture(t)
	f.gateway.session = &gateway.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example.com/cs_test_1"}

	// A fresh user with no stored card: the session ID becomes the method
	// token, which is how the success redirect finds the transaction.
	user := &domain.User{Username: "bob", Email: "bob@example.com"}
	if err := f.store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	result, err := f.service.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID: user.ID,
		Amount: decimal.RequireFromString("30.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.service.ConfirmCheckoutSuccess(context.Background(), "cs_test_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txn, err := f.store.GetTransaction(context.Background(), result.TransactionID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != domain.StatusCompleted {
		t.Fatalf("expected status completed, got %s", txn.Status)
	}

	// An unknown session is a no-op.
	if err := f.service.ConfirmCheckoutSuccess(context.Background(), "cs_missing"); err != nil {
		t.Fatalf("unknown session should be tolerated, got %v", err)
	}
}

func TestRecordAnnotation(t *testing.T) {
	f := newFixture(t)
	f.gateway.intent = &gateway.PaymentIntent{ID: "pi_1", Status: gateway.IntentSucceeded}

	result, err := f.service.CreatePaymentIntent(context.Background(), ChargeInput{
		UserID:      f.user.ID,
		Amount:      decimal.RequireFromString("10.00"),
		MethodToken: "pm_test_123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txnID := result.Transaction.ID

	if _, err := f.service.RecordAnnotation(context.Background(), txnID, "not_a_log_type", "nope", nil); !errors.Is(err, ErrInvalidLogType) {
		t.Fatalf("expected ErrInvalidLogType, got %v", err)
	}

	log, err := f.service.RecordAnnotation(context.Background(), txnID, domain.LogRefunded, "Refund requested by support", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.TransactionID != txnID {
		t.Fatal("annotation bound to the wrong transaction")
	}

	// Annotations never move the state machine.
	txn, err := f.store.GetTransaction(context.Background(), txnID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if txn.Status != domain.StatusCompleted {
		t.Fatalf("expected status completed, got %s", txn.Status)
	}
}

func TestConcurrentChargesAtomicBalance(t *testing.T) {
	f := newFixture(t)
	f.gateway.intent = &gateway.PaymentIntent{ID: "pi_1", Status: gateway.IntentSucceeded}

	amounts := []string{"10.00", "5.00"}
	var wg sync.WaitGroup
	errs := make([]error, len(amounts))
	for i, a := range amounts {
		wg.Add(1)
		go func(i int, a string) {
			defer wg.Done()
			_, errs[i] = f.service.CreatePaymentIntent(context.Background(), ChargeInput{
				UserID:      f.user.ID,
				Amount:      decimal.RequireFromString(a),
				MethodToken: "pm_test_123",
			})
		}(i, a)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("charge %d: %v", i, err)
		}
	}
	if got := f.balance(t); !got.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected balance 15.00, got %s", got)
	}
}
