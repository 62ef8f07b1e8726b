package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/punchamoorthee/payflow/internal/api"
	"github.com/punchamoorthee/payflow/internal/domain"
	"github.com/punchamoorthee/payflow/internal/events"
	"github.com/punchamoorthee/payflow/internal/gateway"
	"github.com/punchamoorthee/payflow/internal/service"
	"github.com/punchamoorthee/payflow/internal/store"
)

type succeedingGateway struct{}

func (succeedingGateway) CreatePaymentIntent(ctx context.Context, req gateway.ChargeRequest) (*gateway.PaymentIntent, error) {
	return &gateway.PaymentIntent{ID: "pi_1", Status: gateway.IntentSucceeded, AmountCents: req.AmountCents}, nil
}

func (succeedingGateway) CreatePaymentLink(ctx context.Context, req gateway.LinkRequest) (*gateway.PaymentLink, error) {
	return &gateway.PaymentLink{ID: "plink_1", URL: "https://pay.example.com/plink_1"}, nil
}

func (succeedingGateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	return &gateway.CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, nil
}

func TestChargeRequestAcceptedByAPI(t *testing.T) {
	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus()
	service.RegisterSubscribers(bus, mem, logger)
	svc := service.NewPaymentService(mem, succeedingGateway{}, bus, logger)
	handler := api.NewHandler(mem, svc, logger, "whsec_test", "http://localhost:8080")

	srv := httptest.NewServer(handler.Router())
	defer srv.Close()

	user := &domain.User{Username: "user-0001", Email: "user-0001@example.com"}
	if err := mem.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := mem.CreatePaymentMethod(context.Background(), &domain.PaymentMethod{
		UserID:       user.ID,
		MethodType:   domain.MethodCreditCard,
		GatewayToken: "pm_seed_0001",
	}); err != nil {
		t.Fatalf("seed payment method: %v", err)
	}

	targets, err := fetchChargeTargets(srv.URL)
	if err != nil {
		t.Fatalf("fetch charge targets: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if targets[0].UserID != user.ID.String() || targets[0].MethodToken != "pm_seed_0001" {
		t.Fatalf("unexpected target: %+v", targets[0])
	}

	code, err := sendCharge(srv.Client(), srv.URL, targets[0])
	if err != nil {
		t.Fatalf("send charge: %v", err)
	}
	if code != http.StatusOK {
		t.Fatalf("expected 200 from the charge endpoint, got %d", code)
	}

	txns, err := mem.ListTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Status != domain.StatusCompleted {
		t.Fatalf("expected one completed transaction, got %+v", txns)
	}
}

func TestFetchChargeTargetsFirstMethodPerUser(t *testing.T) {
	mem := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewPaymentService(mem, succeedingGateway{}, events.NewBus(), logger)
	handler := api.NewHandler(mem, svc, logger, "whsec_test", "http://localhost:8080")

	srv := httptest.NewServer(handler.Router())
	defer srv.Close()

	user := &domain.User{Username: "user-0001", Email: "user-0001@example.com"}
	if err := mem.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, token := range []string{"pm_first", "pm_second"} {
		if err := mem.CreatePaymentMethod(context.Background(), &domain.PaymentMethod{
			UserID:       user.ID,
			MethodType:   domain.MethodCreditCard,
			GatewayToken: token,
		}); err != nil {
			t.Fatalf("seed payment method: %v", err)
		}
	}

	targets, err := fetchChargeTargets(srv.URL)
	if err != nil {
		t.Fatalf("fetch charge targets: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected one target per user, got %d", len(targets))
	}
	if targets[0].MethodToken != "pm_first" {
		t.Fatalf("expected the oldest card, got %s", targets[0].MethodToken)
	}
}
