package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/paycore/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreatePayment inserts a new PENDING payment attempt.
func (s *Store) CreatePayment(ctx context.Context, p models.PaymentAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payment_attempts
			(id, user_id, order_id, referrer_id, gateway_order_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'PENDING')`,
		p.ID, p.UserID, p.OrderID, p.ReferrerID, p.GatewayOrderID, p.Amount, p.Currency,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPaymentExists
		}
		return fmt.Errorf("payment insert failed: %w", err)
	}
	return nil
}

const paymentColumns = `
	id, user_id, order_id, referrer_id, gateway_payment_id, gateway_order_id,
	amount, currency, method, status, fee, tax, error_code, error_description,
	refunded_amount, created_at, captured_at`

func scanPayment(row pgx.Row) (models.PaymentAttempt, error) {
	var p models.PaymentAttempt
	err := row.Scan(
		&p.ID, &p.UserID, &p.OrderID, &p.ReferrerID, &p.GatewayPaymentID, &p.GatewayOrderID,
		&p.Amount, &p.Currency, &p.Method, &p.Status, &p.Fee, &p.Tax, &p.ErrorCode,
		&p.ErrorDescription, &p.RefundedAmount, &p.CreatedAt, &p.CapturedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, err
	}
	return p, nil
}

// GetPayment retrieves a payment attempt and its refunds.
func (s *Store) GetPayment(ctx context.Context, id string) (models.PaymentAttempt, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx,
		"SELECT"+paymentColumns+" FROM payment_attempts WHERE id = $1", id))
	if err != nil {
		return p, err
	}
	p.Refunds, err = s.refundsFor(ctx, id)
	return p, err
}

// GetPaymentByGatewayOrder resolves the payment a webhook refers to.
func (s *Store) GetPaymentByGatewayOrder(ctx context.Context, gatewayOrderID string) (models.PaymentAttempt, error) {
	return scanPayment(s.pool.QueryRow(ctx,
		"SELECT"+paymentColumns+" FROM payment_attempts WHERE gateway_order_id = $1", gatewayOrderID))
}

func (s *Store) refundsFor(ctx context.Context, paymentID string) ([]models.Refund, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, gateway_refund_id, amount, status, speed, arn, created_at
		FROM refunds WHERE payment_id = $1 ORDER BY created_at`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []models.Refund
	for rows.Next() {
		var r models.Refund
		if err := rows.Scan(&r.ID, &r.GatewayRefundID, &r.Amount, &r.Status, &r.Speed, &r.ARN, &r.CreatedAt); err != nil {
			return nil, err
		}
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}

// admitEvent reserves the webhook event id inside tx. A unique violation
// means the delivery was already processed.
func admitEvent(ctx context.Context, tx pgx.Tx, ev models.GatewayEvent) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO webhook_events (event_id, gateway_payment_id, event_type, status)
		VALUES ($1, $2, $3, 'received')`,
		ev.CompositeEventID(), ev.GatewayPaymentID, ev.EventType,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("event reservation failed: %w", err)
	}
	return nil
}

// AdmitEvent records a delivery that carries no local side effects. Same
// dedupe semantics as the transactional paths.
func (s *Store) AdmitEvent(ctx context.Context, ev models.GatewayEvent) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := admitEvent(ctx, tx, ev); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE webhook_events SET status = 'processed', processed_at = now() WHERE event_id = $1",
		ev.CompositeEventID()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertEntries(ctx context.Context, tx pgx.Tx, entries []models.LedgerEntry) error {
	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO ledger_entries (id, user_id, kind, amount, status, meta)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.UserID, e.Kind, e.Amount, e.Status, e.Meta,
		)
		if err != nil {
			return fmt.Errorf("ledger entry failed: %w", err)
		}
	}
	return nil
}

// CaptureInput is everything ApplyCapture commits atomically: the event
// reservation, the payment transition, the commission entries and the
// referrer's lifetime counter credit.
type CaptureInput struct {
	Event     models.GatewayEvent
	PaymentID string
	Entries   []models.LedgerEntry

	// CommissionUserID's commission_earned counter grows by
	// CommissionAmount. Zero amount means no referrer on the payment.
	CommissionUserID string
	CommissionAmount int64
}

// ApplyCapture transitions the payment to COMPLETED and appends the
// commission entries and the referrer's commission_earned credit in one
// transaction, gated by the event reservation. Either everything commits
// or nothing does: a credited commission with the payment left PENDING is
// not observable. A genuinely new event against a settled payment commits
// only its reservation, marked ignored.
func (s *Store) ApplyCapture(ctx context.Context, in CaptureInput) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := admitEvent(ctx, tx, in.Event); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE payment_attempts
		SET status = 'COMPLETED', gateway_payment_id = $1, method = $2,
		    fee = $3, tax = $4, captured_at = now()
		WHERE id = $5 AND status IN ('PENDING', 'PROCESSING')`,
		in.Event.GatewayPaymentID, in.Event.Method, in.Event.Fee, in.Event.Tax, in.PaymentID,
	)
	if err != nil {
		return fmt.Errorf("capture transition failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ignoreEvent(ctx, tx, in.Event)
	}

	if err := insertEntries(ctx, tx, in.Entries); err != nil {
		return err
	}

	if in.CommissionAmount > 0 {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, commission_earned) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE
			SET commission_earned = users.commission_earned + EXCLUDED.commission_earned`,
			in.CommissionUserID, in.CommissionAmount,
		)
		if err != nil {
			return fmt.Errorf("commission counter update failed: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE webhook_events SET status = 'processed', processed_at = now() WHERE event_id = $1",
		in.Event.CompositeEventID()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ignoreEvent commits the event reservation with status ignored and
// reports ErrInvalidTransition. Keeping the row means a gateway retry of
// the same delivery dedupes on the reservation instead of repeating the
// lookup and rollback.
func ignoreEvent(ctx context.Context, tx pgx.Tx, ev models.GatewayEvent) error {
	if _, err := tx.Exec(ctx,
		"UPDATE webhook_events SET status = 'ignored', processed_at = now() WHERE event_id = $1",
		ev.CompositeEventID()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return ErrInvalidTransition
}

// ApplyFailure transitions the payment to FAILED, gated by the same event
// reservation as ApplyCapture.
func (s *Store) ApplyFailure(ctx context.Context, ev models.GatewayEvent, paymentID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := admitEvent(ctx, tx, ev); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE payment_attempts
		SET status = 'FAILED', gateway_payment_id = $1, error_code = $2, error_description = $3
		WHERE id = $4 AND status IN ('PENDING', 'PROCESSING')`,
		ev.GatewayPaymentID, ev.ErrorCode, ev.ErrorDescription, paymentID,
	)
	if err != nil {
		return fmt.Errorf("failure transition failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ignoreEvent(ctx, tx, ev)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE webhook_events SET status = 'processed', processed_at = now() WHERE event_id = $1",
		ev.CompositeEventID()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CancelPayment moves a payment to CANCELLED. Only reachable from
// PENDING or PROCESSING.
func (s *Store) CancelPayment(ctx context.Context, id string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE payment_attempts SET status = 'CANCELLED'
		WHERE id = $1 AND status IN ('PENDING', 'PROCESSING')`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// AppendRefund records a gateway-confirmed refund: a single conditional
// increment of refunded_amount (no read-then-write round trip), the refund
// row, and the buyer's ledger credit. The WHERE clause is the refund-bound
// invariant; zero rows affected means the increment would overrun the
// captured amount or the payment is not refundable.
func (s *Store) AppendRefund(ctx context.Context, paymentID string, r models.Refund, entry models.LedgerEntry) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE payment_attempts
		SET refunded_amount = refunded_amount + $1,
		    status = CASE WHEN refunded_amount + $1 >= amount THEN 'REFUNDED' ELSE status END
		WHERE id = $2
		  AND status = 'COMPLETED'
		  AND refunded_amount + $1 <= amount`,
		r.Amount, paymentID,
	)
	if err != nil {
		return fmt.Errorf("refund increment failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrRefundExceedsCaptured
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO refunds (id, payment_id, gateway_refund_id, amount, status, speed, arn)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, paymentID, r.GatewayRefundID, r.Amount, r.Status, r.Speed, r.ARN,
	)
	if err != nil {
		return fmt.Errorf("refund insert failed: %w", err)
	}

	if err := insertEntries(ctx, tx, []models.LedgerEntry{entry}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetOrder retrieves the order slice needed for seller-earning credits.
func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var o models.Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, seller_id, buyer_id, category, gross_amount, fulfillment_status
		FROM orders WHERE id = $1`, id).Scan(
		&o.ID, &o.SellerID, &o.BuyerID, &o.Category, &o.GrossAmount, &o.FulfillmentStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return o, ErrNotFound
		}
		return o, err
	}
	return o, nil
}

// CreditSellerEarning writes the seller's earning entry and flips the
// order to delivered in one transaction. The row lock plus the delivered
// check make repeat delivery confirmations a no-op.
func (s *Store) CreditSellerEarning(ctx context.Context, orderID string, entry models.LedgerEntry) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.FulfillmentStatus
	err = tx.QueryRow(ctx,
		"SELECT fulfillment_status FROM orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("order lock failed: %w", err)
	}
	if status == models.FulfillmentDelivered {
		return ErrAlreadyDelivered
	}

	if err := insertEntries(ctx, tx, []models.LedgerEntry{entry}); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE orders SET fulfillment_status = 'delivered' WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("fulfillment update failed: %w", err)
	}

	return tx.Commit(ctx)
}

// SellerRate returns the seller-level commission override, if set.
func (s *Store) SellerRate(ctx context.Context, sellerID string) (decimal.Decimal, bool, error) {
	return s.rate(ctx, "SELECT commission_pct FROM sellers WHERE id = $1", sellerID)
}

// CategoryRate returns the category default commission, if set.
func (s *Store) CategoryRate(ctx context.Context, category string) (decimal.Decimal, bool, error) {
	return s.rate(ctx, "SELECT commission_pct FROM categories WHERE name = $1", category)
}

func (s *Store) rate(ctx context.Context, query, key string) (decimal.Decimal, bool, error) {
	var pct decimal.NullDecimal
	err := s.pool.QueryRow(ctx, query, key).Scan(&pct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	if !pct.Valid {
		return decimal.Zero, false, nil
	}
	return pct.Decimal, true, nil
}

// LedgerEntries returns a user's full ledger, oldest first.
func (s *Store) LedgerEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, kind, amount, status, meta, created_at
		FROM ledger_entries WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Amount, &e.Status, &e.Meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UserCounters returns the scalar commission counters feeding Rule B and
// whether the usage threshold was already met at an earlier recompute.
func (s *Store) UserCounters(ctx context.Context, userID string) (earned, usedInApp int64, unlocked bool, err error) {
	err = s.pool.QueryRow(ctx,
		"SELECT commission_earned, commission_used_in_app, commission_unlocked FROM users WHERE id = $1", userID,
	).Scan(&earned, &usedInApp, &unlocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, false, ErrNotFound
	}
	return earned, usedInApp, unlocked, err
}

// SaveWalletSummary persists the recalculation engine's output as a cache
// on the user row. commission_unlocked only ever flips to true.
func (s *Store) SaveWalletSummary(ctx context.Context, userID string, w models.WalletSummary) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE users
		SET balance = $1, hold_balance = $2, referral_bonus_total = $3,
		    invested_amount = $4, required_investment = $5,
		    commission_unlocked = commission_unlocked OR $6,
		    wallet_refreshed_at = now()
		WHERE id = $7`,
		w.Balance, w.HoldBalance, w.ReferralBonusTotal, w.InvestedAmount, w.RequiredInvestment,
		w.CommissionUnlocked, userID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
