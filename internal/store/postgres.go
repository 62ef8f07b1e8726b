package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/payflow/internal/domain"
)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func (s *Postgres) Close() {
	s.db.Close()
}

func mapPgErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// --- Users ---

func (s *Postgres) CreateUser(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.db.Exec(ctx,
		"INSERT INTO users (id, username, email, phone, balance, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		u.ID, u.Username, u.Email, u.Phone, u.Balance.StringFixed(2), u.CreatedAt, u.UpdatedAt)
	return mapPgErr(err)
}

func (s *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	var balance string
	err := s.db.QueryRow(ctx,
		"SELECT id, username, email, phone, balance, created_at, updated_at FROM users WHERE id = $1",
		id).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &balance, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	u.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance for user %s: %w", id, err)
	}
	return &u, nil
}

func (s *Postgres) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, username, email, phone, balance, created_at, updated_at FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var balance string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &balance, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if u.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) UpdateUser(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx,
		"UPDATE users SET username = $1, email = $2, phone = $3, updated_at = $4 WHERE id = $5",
		u.Username, u.Email, u.Phone, u.UpdatedAt, u.ID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Cascade: logs under the user's transactions, then transactions,
	// payment methods, subscriptions, and finally the user row.
	if _, err := tx.Exec(ctx,
		"DELETE FROM transaction_logs WHERE transaction_id IN (SELECT id FROM transactions WHERE user_id = $1)", id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM transactions WHERE user_id = $1", id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM payment_methods WHERE user_id = $1", id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM subscriptions WHERE user_id = $1", id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// AddToUserBalance is the atomic add-to-field primitive; the increment
// happens inside the UPDATE so concurrent callers serialize at the row.
func (s *Postgres) AddToUserBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE users SET balance = balance + $1, updated_at = $2 WHERE id = $3",
		delta.StringFixed(2), time.Now().UTC(), id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Merchants ---

func (s *Postgres) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := s.db.Exec(ctx,
		"INSERT INTO merchants (id, name, email, phone, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
		m.ID, m.Name, m.Email, m.Phone, m.CreatedAt, m.UpdatedAt)
	return mapPgErr(err)
}

func (s *Postgres) GetMerchant(ctx context.Context, id uuid.UUID) (*domain.Merchant, error) {
	var m domain.Merchant
	err := s.db.QueryRow(ctx,
		"SELECT id, name, email, phone, created_at, updated_at FROM merchants WHERE id = $1",
		id).Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &m, nil
}

func (s *Postgres) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, name, email, phone, created_at, updated_at FROM merchants ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var merchants []domain.Merchant
	for rows.Next() {
		var m domain.Merchant
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		merchants = append(merchants, m)
	}
	return merchants, rows.Err()
}

func (s *Postgres) UpdateMerchant(ctx context.Context, m *domain.Merchant) error {
	m.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx,
		"UPDATE merchants SET name = $1, email = $2, phone = $3, updated_at = $4 WHERE id = $5",
		m.Name, m.Email, m.Phone, m.UpdatedAt, m.ID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteMerchant(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Transactions keep their history; the merchant reference is detached.
	if _, err := tx.Exec(ctx, "UPDATE transactions SET merchant_id = NULL WHERE merchant_id = $1", id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM merchants WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Postgres) FirstMerchant(ctx context.Context) (*domain.Merchant, error) {
	var m domain.Merchant
	err := s.db.QueryRow(ctx,
		"SELECT id, name, email, phone, created_at, updated_at FROM merchants ORDER BY created_at LIMIT 1").
		Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &m, nil
}

// --- Payment methods ---

const paymentMethodCols = "id, user_id, method_type, gateway_customer_id, gateway_payment_method_token, last_four_digits, expiry_date, card_brand, created_at"

func scanPaymentMethod(row pgx.Row) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	err := row.Scan(&pm.ID, &pm.UserID, &pm.MethodType, &pm.GatewayCustomerID,
		&pm.GatewayToken, &pm.LastFourDigits, &pm.ExpiryDate, &pm.CardBrand, &pm.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &pm, nil
}

func (s *Postgres) CreatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	pm.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx,
		`INSERT INTO payment_methods (id, user_id, method_type, gateway_customer_id, gateway_payment_method_token, last_four_digits, expiry_date, card_brand, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pm.ID, pm.UserID, pm.MethodType, pm.GatewayCustomerID, pm.GatewayToken,
		pm.LastFourDigits, pm.ExpiryDate, pm.CardBrand, pm.CreatedAt)
	return mapPgErr(err)
}

func (s *Postgres) GetPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	return scanPaymentMethod(s.db.QueryRow(ctx,
		"SELECT "+paymentMethodCols+" FROM payment_methods WHERE id = $1", id))
}

func (s *Postgres) ListPaymentMethods(ctx context.Context, userID *uuid.UUID) ([]domain.PaymentMethod, error) {
	query := "SELECT " + paymentMethodCols + " FROM payment_methods ORDER BY created_at"
	args := []interface{}{}
	if userID != nil {
		query = "SELECT " + paymentMethodCols + " FROM payment_methods WHERE user_id = $1 ORDER BY created_at"
		args = append(args, *userID)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, *pm)
	}
	return methods, rows.Err()
}

func (s *Postgres) UpdatePaymentMethod(ctx context.Context, pm *domain.PaymentMethod) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE payment_methods SET method_type = $1, gateway_customer_id = $2, gateway_payment_method_token = $3, last_four_digits = $4, expiry_date = $5, card_brand = $6 WHERE id = $7`,
		pm.MethodType, pm.GatewayCustomerID, pm.GatewayToken, pm.LastFourDigits,
		pm.ExpiryDate, pm.CardBrand, pm.ID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeletePaymentMethod(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"DELETE FROM transaction_logs WHERE transaction_id IN (SELECT id FROM transactions WHERE payment_method_id = $1)", id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM transactions WHERE payment_method_id = $1", id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM payment_methods WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Postgres) FirstPaymentMethodForUser(ctx context.Context, userID uuid.UUID) (*domain.PaymentMethod, error) {
	return scanPaymentMethod(s.db.QueryRow(ctx,
		"SELECT "+paymentMethodCols+" FROM payment_methods WHERE user_id = $1 ORDER BY created_at LIMIT 1", userID))
}

// --- Transactions ---

const transactionCols = "id, user_id, merchant_id, payment_method_id, amount, description, status, created_at"

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount string
	err := row.Scan(&t.ID, &t.UserID, &t.MerchantID, &t.PaymentMethodID,
		&amount, &t.Description, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount for transaction %s: %w", t.ID, err)
	}
	return &t, nil
}

func (s *Postgres) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx,
		`INSERT INTO transactions (id, user_id, merchant_id, payment_method_id, amount, description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.MerchantID, t.PaymentMethodID, t.Amount.StringFixed(2),
		t.Description, t.Status, t.CreatedAt)
	return mapPgErr(err)
}

func (s *Postgres) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return scanTransaction(s.db.QueryRow(ctx,
		"SELECT "+transactionCols+" FROM transactions WHERE id = $1", id))
}

func (s *Postgres) ListTransactions(ctx context.Context, userID *uuid.UUID) ([]domain.Transaction, error) {
	query := "SELECT " + transactionCols + " FROM transactions ORDER BY created_at DESC"
	args := []interface{}{}
	if userID != nil {
		query = "SELECT " + transactionCols + " FROM transactions WHERE user_id = $1 ORDER BY created_at DESC"
		args = append(args, *userID)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (s *Postgres) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE transactions SET description = $1, merchant_id = $2 WHERE id = $3",
		t.Description, t.MerchantID, t.ID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM transaction_logs WHERE transaction_id = $1", id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Postgres) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE transactions SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) LatestTransactionByMethodToken(ctx context.Context, token string) (*domain.Transaction, error) {
	return scanTransaction(s.db.QueryRow(ctx,
		`SELECT t.id, t.user_id, t.merchant_id, t.payment_method_id, t.amount, t.description, t.status, t.created_at
		 FROM transactions t
		 JOIN payment_methods pm ON pm.id = t.payment_method_id
		 WHERE pm.gateway_payment_method_token = $1
		 ORDER BY t.created_at DESC LIMIT 1`, token))
}

// --- Transaction logs ---

const logCols = "id, transaction_id, log_type, log_message, user_id, merchant_id, payment_method_id, additional_info, created_at"

func scanLog(row pgx.Row) (*domain.TransactionLog, error) {
	var l domain.TransactionLog
	err := row.Scan(&l.ID, &l.TransactionID, &l.LogType, &l.LogMessage,
		&l.UserID, &l.MerchantID, &l.PaymentMethodID, &l.AdditionalInfo, &l.CreatedAt)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &l, nil
}

func (s *Postgres) AppendTransactionLog(ctx context.Context, l *domain.TransactionLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx,
		`INSERT INTO transaction_logs (id, transaction_id, log_type, log_message, user_id, merchant_id, payment_method_id, additional_info, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.TransactionID, l.LogType, l.LogMessage, l.UserID, l.MerchantID,
		l.PaymentMethodID, l.AdditionalInfo, l.CreatedAt)
	return mapPgErr(err)
}

func (s *Postgres) GetTransactionLog(ctx context.Context, id uuid.UUID) (*domain.TransactionLog, error) {
	return scanLog(s.db.QueryRow(ctx,
		"SELECT "+logCols+" FROM transaction_logs WHERE id = $1", id))
}

func (s *Postgres) ListTransactionLogs(ctx context.Context, transactionID *uuid.UUID) ([]domain.TransactionLog, error) {
	// Oldest-first, ID as tiebreaker for equal timestamps.
	query := "SELECT " + logCols + " FROM transaction_logs ORDER BY created_at, id"
	args := []interface{}{}
	if transactionID != nil {
		query = "SELECT " + logCols + " FROM transaction_logs WHERE transaction_id = $1 ORDER BY created_at, id"
		args = append(args, *transactionID)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.TransactionLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

// --- Subscriptions ---

func (s *Postgres) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = time.Now().UTC()
	}
	if sub.Status == "" {
		sub.Status = domain.SubscriptionActive
	}
	_, err := s.db.Exec(ctx,
		"INSERT INTO subscriptions (id, user_id, plan_name, start_date, end_date, status) VALUES ($1, $2, $3, $4, $5, $6)",
		sub.ID, sub.UserID, sub.PlanName, sub.StartDate, sub.EndDate, sub.Status)
	return mapPgErr(err)
}

func (s *Postgres) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.QueryRow(ctx,
		"SELECT id, user_id, plan_name, start_date, end_date, status FROM subscriptions WHERE id = $1",
		id).Scan(&sub.ID, &sub.UserID, &sub.PlanName, &sub.StartDate, &sub.EndDate, &sub.Status)
	if err != nil {
		return nil, mapPgErr(err)
	}
	return &sub, nil
}

func (s *Postgres) ListSubscriptions(ctx context.Context, userID *uuid.UUID) ([]domain.Subscription, error) {
	query := "SELECT id, user_id, plan_name, start_date, end_date, status FROM subscriptions ORDER BY start_date"
	args := []interface{}{}
	if userID != nil {
		query = "SELECT id, user_id, plan_name, start_date, end_date, status FROM subscriptions WHERE user_id = $1 ORDER BY start_date"
		args = append(args, *userID)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.PlanName, &sub.StartDate, &sub.EndDate, &sub.Status); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Postgres) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE subscriptions SET plan_name = $1, end_date = $2, status = $3 WHERE id = $4",
		sub.PlanName, sub.EndDate, sub.Status, sub.ID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM subscriptions WHERE id = $1", id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
