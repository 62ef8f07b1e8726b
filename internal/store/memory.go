package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/domain"
)

// Memory is an in-process Store used by tests and local development. All
// access is serialized by a single mutex, which makes AddToUserBalance a real
// atomic increment rather than a read-then-write.
type Memory struct {
	mu            sync.Mutex
	users         map[uuid.UUID]domain.User
	merchants     map[uuid.UUID]domain.Merchant
	methods       map[uuid.UUID]domain.PaymentMethod
	transactions  map[uuid.UUID]domain.Transaction
	logs          map[uuid.UUID]domain.TransactionLog
	subscriptions map[uuid.UUID]domain.Subscription
	seq           int64
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[uuid.UUID]domain.User),
		merchants:     make(map[uuid.UUID]domain.Merchant),
		methods:       make(map[uuid.UUID]domain.PaymentMethod),
		transactions:  make(map[uuid.UUID]domain.Transaction),
		logs:          make(map[uuid.UUID]domain.TransactionLog),
		subscriptions: make(map[uuid.UUID]domain.Subscription),
	}
}

// now returns a strictly increasing timestamp so creation order survives
// sorting even when the clock does not tick between writes.
func (m *Memory) now() time.Time {
	m.seq++
	return time.Now().UTC().Add(time.Duration(m.seq) * time.Nanosecond)
}

// --- Users ---

func (m *Memory) CreateUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := m.now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) ListUsers(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *Memory) UpdateUser(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Username = u.Username
	existing.Email = u.Email
	existing.Phone = u.Phone
	existing.UpdatedAt = m.now()
	m.users[u.ID] = existing
	*u = existing
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	for tid, t := range m.transactions {
		if t.UserID == id {
			m.deleteTransactionLocked(tid)
		}
	}
	for pid, pm := range m.methods {
		if pm.UserID == id {
			delete(m.methods, pid)
		}
	}
	for sid, sub := range m.subscriptions {
		if sub.UserID == id {
			delete(m.subscriptions, sid)
		}
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) AddToUserBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Balance = u.Balance.Add(delta)
	u.UpdatedAt = m.now()
	m.users[id] = u
	return nil
}

// --- Merchants ---

func (m *Memory) CreateMerchant(ctx context.Context, mc *domain.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.merchants {
		if existing.Email == mc.Email {
			return ErrDuplicate
		}
	}
	if mc.ID == uuid.Nil {
		mc.ID = uuid.New()
	}
	now := m.now()
	mc.CreatedAt, mc.UpdatedAt = now, now
	m.merchants[mc.ID] = *mc
	return nil
}

func (m *Memory) GetMerchant(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.merchants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &mc, nil
}

func (m *Memory) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	merchants := make([]domain.Merchant, 0, len(m.merchants))
	for _, mc := range m.merchants {
		merchants = append(merchants, mc)
	}
	sort.Slice(merchants, func(i, j int) bool { return merchants[i].CreatedAt.Before(merchants[j].CreatedAt) })
	return merchants, nil
}

func (m *Memory) UpdateMerchant(ctx context.Context, mc *domain.Merchant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.merchants[mc.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = mc.Name
	existing.Email = mc.Email
	existing.Phone = mc.Phone
	existing.UpdatedAt = m.now()
	m.merchants[mc.ID] = existing
	*mc = existing
	return nil
}

func (m *Memory) DeleteMerchant(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.merchants[id]; !ok {
		return ErrNotFound
	}
	for tid, t := range m.transactions {
		if t.MerchantID != nil && *t.MerchantID == id {
			t.MerchantID = nil
			m.transactions[tid] = t
		}
	}
	delete(m.merchants, id)
	return nil
}

func (m *Memory) FirstMerchant(ctx context.Context) (*domain.Merchant, error) {
	merchants, _ := m.ListMerchants(ctx)
	if len(merchants) == 0 {
		return nil, ErrNotFound
	}
	return &merchants[0], nil
}

// --- Payment methods ---

func (m *Memory) CreatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	pm.CreatedAt = m.now()
	m.methods[pm.ID] = *pm
	return nil
}

func (m *Memory) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.methods[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &pm, nil
}

func (m *Memory) ListPaymentMethods(ctx context.Context, userID *uuid.UUID) ([]domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var methods []domain.PaymentMethod
	for _, pm := range m.methods {
		if userID == nil || pm.UserID == *userID {
			methods = append(methods, pm)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].CreatedAt.Before(methods[j].CreatedAt) })
	return methods, nil
}

func (m *Memory) UpdatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.methods[pm.ID]
	if !ok {
		return ErrNotFound
	}
	existing.MethodType = pm.MethodType
	existing.GatewayCustomerID = pm.GatewayCustomerID
	existing.GatewayToken = pm.GatewayToken
	existing.LastFourDigits = pm.LastFourDigits
	existing.ExpiryDate = pm.ExpiryDate
	existing.CardBrand = pm.CardBrand
	m.methods[pm.ID] = existing
	*pm = existing
	return nil
}

func (m *Memory) DeletePaymentMethod(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.methods[id]; !ok {
		return ErrNotFound
	}
	for tid, t := range m.transactions {
		if t.PaymentMethodID == id {
			m.deleteTransactionLocked(tid)
		}
	}
	delete(m.methods, id)
	return nil
}

func (m *Memory) FirstPaymentMethodForUser(ctx context.Context, userID uuid.UUID) (*domain.PaymentMethod, error) {
	methods, _ := m.ListPaymentMethods(ctx, &userID)
	if len(methods) == 0 {
		return nil, ErrNotFound
	}
	return &methods[0], nil
}

// --- Transactions ---

func (m *Memory) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = m.now()
	m.transactions[t.ID] = *t
	return nil
}

func (m *Memory) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *Memory) ListTransactions(ctx context.Context, userID *uuid.UUID) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var txns []domain.Transaction
	for _, t := range m.transactions {
		if userID == nil || t.UserID == *userID {
			txns = append(txns, t)
		}
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].CreatedAt.After(txns[j].CreatedAt) })
	return txns, nil
}

func (m *Memory) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[t.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Description = t.Description
	existing.MerchantID = t.MerchantID
	m.transactions[t.ID] = existing
	*t = existing
	return nil
}

func (m *Memory) deleteTransactionLocked(id uuid.UUID) {
	for lid, l := range m.logs {
		if l.TransactionID == id {
			delete(m.logs, lid)
		}
	}
	delete(m.transactions, id)
}

func (m *Memory) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transactions[id]; !ok {
		return ErrNotFound
	}
	m.deleteTransactionLocked(id)
	return nil
}

func (m *Memory) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	m.transactions[id] = t
	return nil
}

func (m *Memory) LatestTransactionByMethodToken(ctx context.Context, token string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Transaction
	for _, pm := range m.methods {
		if pm.GatewayToken != token {
			continue
		}
		for _, t := range m.transactions {
			if t.PaymentMethodID != pm.ID {
				continue
			}
			t := t
			if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
				latest = &t
			}
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

// --- Transaction logs ---

func (m *Memory) AppendTransactionLog(ctx context.Context, l *domain.TransactionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = m.now()
	m.logs[l.ID] = *l
	return nil
}

func (m *Memory) GetTransactionLog(ctx context.Context, id uuid.UUID) (*domain.TransactionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (m *Memory) ListTransactionLogs(ctx context.Context, transactionID *uuid.UUID) ([]domain.TransactionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var logs []domain.TransactionLog
	for _, l := range m.logs {
		if transactionID == nil || l.TransactionID == *transactionID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].CreatedAt.Before(logs[j].CreatedAt) })
	return logs, nil
}

// --- Subscriptions ---

func (m *Memory) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = m.now()
	}
	if sub.Status == "" {
		sub.Status = domain.SubscriptionActive
	}
	m.subscriptions[sub.ID] = *sub
	return nil
}

func (m *Memory) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, userID *uuid.UUID) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var subs []domain.Subscription
	for _, sub := range m.subscriptions {
		if userID == nil || sub.UserID == *userID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].StartDate.Before(subs[j].StartDate) })
	return subs, nil
}

func (m *Memory) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.subscriptions[sub.ID]
	if !ok {
		return ErrNotFound
	}
	existing.PlanName = sub.PlanName
	existing.EndDate = sub.EndDate
	existing.Status = sub.Status
	m.subscriptions[sub.ID] = existing
	*sub = existing
	return nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscriptions[id]; !ok {
		return ErrNotFound
	}
	delete(m.subscriptions, id)
	return nil
}
