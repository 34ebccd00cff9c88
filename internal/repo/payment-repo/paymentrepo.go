package paymentrepo

import (
	"context"
	"errors"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrDuplicateActive reports an insert rejected by the one-live-payment-per-
// milestone unique index, so concurrent funding attempts cannot both land.
var ErrDuplicateActive = errors.New("milestone already has an active payment")

const (
	uniqueViolationCode = "23505"
	activeMilestoneIdx  = "idx_payments_active_milestone"
)

type Repository struct {
	db        pg.Database
	txManager pg.TXManager
}

func New(db pg.Database, txManager pg.TXManager) *Repository {
	return &Repository{
		db:        db,
		txManager: txManager,
	}
}

const paymentColumns = `id, contract_id, milestone_id, payer_id, payee_id, amount, platform_fee, net_amount,
		currency, status, external_payment_ref, external_transfer_ref, processed_at, created_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.ContractID, &p.MilestoneID, &p.PayerID, &p.PayeeID, &p.Amount, &p.PlatformFee, &p.NetAmount,
		&p.Currency, &p.Status, &p.ExternalPaymentRef, &p.ExternalTransferRef, &p.ProcessedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Save(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (contract_id, milestone_id, payer_id, payee_id, amount, platform_fee, net_amount, currency, status, external_payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			payment.ContractID, payment.MilestoneID, payment.PayerID, payment.PayeeID,
			payment.Amount, payment.PlatformFee, payment.NetAmount, payment.Currency,
			payment.Status, payment.ExternalPaymentRef,
		).Scan(&payment.ID, &payment.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == activeMilestoneIdx {
			return ErrDuplicateActive
		}
		zap.L().Error("can't save payment", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByContractID(ctx context.Context, contractID int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE contract_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, contractID)
	if err != nil {
		zap.L().Error("can't get payments", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		err := rows.Scan(
			&p.ID, &p.ContractID, &p.MilestoneID, &p.PayerID, &p.PayeeID, &p.Amount, &p.PlatformFee, &p.NetAmount,
			&p.Currency, &p.Status, &p.ExternalPaymentRef, &p.ExternalTransferRef, &p.ProcessedAt, &p.CreatedAt,
		)
		if err != nil {
			zap.L().Error("can't scan payment row", zap.Error(err))
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// FindActiveByMilestoneID returns the milestone's escrow payment that is still
// in flight or already settled. FAILED and REFUNDED payments do not count.
func (r *Repository) FindActiveByMilestoneID(ctx context.Context, milestoneID int) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE milestone_id = $1 AND status IN ($2, $3, $4)
		ORDER BY created_at DESC
		LIMIT 1
	`
	payment, err := scanPayment(r.db.QueryRow(ctx, query, milestoneID, domain.PaymentPending, domain.PaymentProcessing, domain.PaymentCompleted))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find payment for milestone", zap.Error(err))
		return nil, err
	}
	return payment, nil
}

// FindEscrowedByMilestoneForUpdate locks the milestone's PROCESSING payment
// row inside the enclosing transaction. Release preconditions are checked
// against the locked row so concurrent releases serialize here.
func (r *Repository) FindEscrowedByMilestoneForUpdate(ctx context.Context, milestoneID int) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE milestone_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`
	payment, err := scanPayment(r.db.QueryRow(ctx, query, milestoneID, domain.PaymentProcessing))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't lock payment for milestone", zap.Error(err))
		return nil, err
	}
	return payment, nil
}

// MarkReleased completes the payment and stamps the transfer reference. The
// guard on external_transfer_ref makes the release effective at most once:
// the second caller sees zero affected rows.
func (r *Repository) MarkReleased(ctx context.Context, paymentID int, transferRef string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, external_transfer_ref = $2, processed_at = now()
		WHERE id = $3 AND status = $4 AND external_transfer_ref IS NULL
	`
	tag, err := r.db.Exec(ctx, query, domain.PaymentCompleted, transferRef, paymentID, domain.PaymentProcessing)
	if err != nil {
		zap.L().Error("failed to mark payment released", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatusByPaymentRef moves a payment between statuses keyed by the
// processor's payment-intent id. Returns false when no row was in the
// expected prior status.
func (r *Repository) UpdateStatusByPaymentRef(ctx context.Context, paymentRef, from, to string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1
		WHERE external_payment_ref = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, to, paymentRef, from)
	if err != nil {
		zap.L().Error("failed to update payment status", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRefundedByTransferRef handles a reversed transfer reported by the
// processor.
func (r *Repository) MarkRefundedByTransferRef(ctx context.Context, transferRef string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $1, processed_at = now()
		WHERE external_transfer_ref = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, domain.PaymentRefunded, transferRef, domain.PaymentCompleted)
	if err != nil {
		zap.L().Error("failed to mark payment refunded", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CompletedNetTotal sums net amounts released to the talent.
func (r *Repository) CompletedNetTotal(ctx context.Context, payeeID int) (int64, error) {
	query := `
		SELECT coalesce(sum(net_amount), 0)
		FROM payments
		WHERE payee_id = $1 AND status = $2
	`
	var total int64
	err := r.db.QueryRow(ctx, query, payeeID, domain.PaymentCompleted).Scan(&total)
	if err != nil {
		zap.L().Error("can't sum completed payments", zap.Error(err))
		return 0, err
	}
	return total, nil
}
