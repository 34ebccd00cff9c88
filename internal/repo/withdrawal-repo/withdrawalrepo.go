package withdrawalrepo

import (
	"context"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
	"go.uber.org/zap"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Save(ctx context.Context, withdrawal *domain.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (user_id, amount, currency, status, external_payout_ref)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		withdrawal.UserID, withdrawal.Amount, withdrawal.Currency, withdrawal.Status, withdrawal.ExternalPayoutRef,
	).Scan(&withdrawal.ID, &withdrawal.CreatedAt)
	if err != nil {
		zap.L().Error("can't save withdrawal", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID int) ([]domain.Withdrawal, error) {
	query := `
		SELECT id, user_id, amount, currency, status, external_payout_ref, processed_at, created_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		var wd domain.Withdrawal
		err := rows.Scan(&wd.ID, &wd.UserID, &wd.Amount, &wd.Currency, &wd.Status, &wd.ExternalPayoutRef, &wd.ProcessedAt, &wd.CreatedAt)
		if err != nil {
			zap.L().Error("failed to scan withdrawal row", zap.Error(err))
			return nil, err
		}
		withdrawals = append(withdrawals, wd)
	}
	return withdrawals, nil
}

// ActiveTotal sums the talent's withdrawals that still count against the
// available balance (everything except FAILED).
func (r *Repository) ActiveTotal(ctx context.Context, userID int) (int64, error) {
	query := `
		SELECT coalesce(sum(amount), 0)
		FROM withdrawals
		WHERE user_id = $1 AND status <> $2
	`
	var total int64
	err := r.db.QueryRow(ctx, query, userID, domain.WithdrawalFailed).Scan(&total)
	if err != nil {
		zap.L().Error("can't sum withdrawals", zap.Error(err))
		return 0, err
	}
	return total, nil
}

// UpdateStatusByPayoutRef settles a withdrawal from a processor payout event.
func (r *Repository) UpdateStatusByPayoutRef(ctx context.Context, payoutRef, to string) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = $1, processed_at = now()
		WHERE external_payout_ref = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, to, payoutRef, domain.WithdrawalPending)
	if err != nil {
		zap.L().Error("failed to update withdrawal status", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
