package contractrepo

import (
	"context"
	"errors"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
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

const contractColumns = `id, business_id, talent_id, project_id, application_id, total_amount, currency,
		status, business_signed_at, talent_signed_at, activated_at, start_date, end_date, created_at`

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var c domain.Contract
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.TalentID, &c.ProjectID, &c.ApplicationID, &c.TotalAmount, &c.Currency,
		&c.Status, &c.BusinessSignedAt, &c.TalentSignedAt, &c.ActivatedAt, &c.StartDate, &c.EndDate, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Save(ctx context.Context, contract *domain.Contract) error {
	query := `
		INSERT INTO contracts (business_id, talent_id, project_id, application_id, total_amount, currency, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			contract.BusinessID, contract.TalentID, contract.ProjectID, contract.ApplicationID,
			contract.TotalAmount, contract.Currency, contract.Status, contract.StartDate, contract.EndDate,
		).Scan(&contract.ID, &contract.CreatedAt)
	})
	if err != nil {
		zap.L().Error("can't save contract", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	contract, err := scanContract(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find contract", zap.Error(err))
		return nil, err
	}
	return contract, nil
}

// FindByIDForUpdate locks the contract row for the duration of the enclosing
// transaction. Used by signing so two concurrent signatures are serialized.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1 FOR UPDATE`
	contract, err := scanContract(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't lock contract", zap.Error(err))
		return nil, err
	}
	return contract, nil
}

func (r *Repository) FindByApplicationID(ctx context.Context, applicationID int) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE application_id = $1`
	contract, err := scanContract(r.db.QueryRow(ctx, query, applicationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find contract by application", zap.Error(err))
		return nil, err
	}
	return contract, nil
}

func (r *Repository) Update(ctx context.Context, contract *domain.Contract) error {
	query := `
		UPDATE contracts
		SET total_amount = $1, status = $2, business_signed_at = $3, talent_signed_at = $4,
			activated_at = $5, start_date = $6, end_date = $7
		WHERE id = $8
	`
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query,
			contract.TotalAmount, contract.Status, contract.BusinessSignedAt, contract.TalentSignedAt,
			contract.ActivatedAt, contract.StartDate, contract.EndDate, contract.ID,
		)
		return err
	})
	if err != nil {
		zap.L().Error("failed to update contract", zap.Error(err))
		return err
	}
	return nil
}
