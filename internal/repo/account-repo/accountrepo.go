package accountrepo

import (
	"context"
	"errors"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/jackc/pgx/v5"
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

const accountColumns = `id, user_id, external_account_id, payouts_enabled, details_submitted, requirements, updated_at`

func scanAccount(row pgx.Row) (*domain.ConnectedAccount, error) {
	var a domain.ConnectedAccount
	err := row.Scan(&a.ID, &a.UserID, &a.ExternalAccountID, &a.PayoutsEnabled, &a.DetailsSubmitted, &a.Requirements, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) FindByUserID(ctx context.Context, userID int) (*domain.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE user_id = $1`
	account, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find connected account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

// LockByUserID locks the account row inside the enclosing transaction.
// Withdrawals for one talent serialize on this lock so the balance check and
// the payout form one unit.
func (r *Repository) LockByUserID(ctx context.Context, userID int) (*domain.ConnectedAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM connected_accounts WHERE user_id = $1 FOR UPDATE`
	account, err := scanAccount(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't lock connected account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) Save(ctx context.Context, account *domain.ConnectedAccount) error {
	query := `
		INSERT INTO connected_accounts (user_id, external_account_id, payouts_enabled, details_submitted, requirements)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		account.UserID, account.ExternalAccountID, account.PayoutsEnabled, account.DetailsSubmitted, account.Requirements,
	).Scan(&account.ID, &account.UpdatedAt)
	if err != nil {
		zap.L().Error("can't save connected account", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, account *domain.ConnectedAccount) error {
	query := `
		UPDATE connected_accounts
		SET payouts_enabled = $1, details_submitted = $2, requirements = $3, updated_at = now()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, account.PayoutsEnabled, account.DetailsSubmitted, account.Requirements, account.ID)
	if err != nil {
		zap.L().Error("failed to update connected account", zap.Error(err))
		return err
	}
	return nil
}

// FindPendingVerification returns accounts that cannot receive payouts yet,
// for the background status sync.
func (r *Repository) FindPendingVerification(ctx context.Context, limit uint32) ([]domain.ConnectedAccount, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM connected_accounts
		WHERE payouts_enabled = FALSE
		ORDER BY updated_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, int(limit))
	if err != nil {
		zap.L().Error("can't get accounts pending verification", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.ConnectedAccount
	for rows.Next() {
		var a domain.ConnectedAccount
		err := rows.Scan(&a.ID, &a.UserID, &a.ExternalAccountID, &a.PayoutsEnabled, &a.DetailsSubmitted, &a.Requirements, &a.UpdatedAt)
		if err != nil {
			zap.L().Error("can't scan connected account row", zap.Error(err))
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
