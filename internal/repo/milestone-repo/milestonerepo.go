package milestonerepo

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

const milestoneColumns = `id, contract_id, title, amount, position, status, submitted_at, approved_at, created_at`

func scanMilestone(row pgx.Row) (*domain.Milestone, error) {
	var m domain.Milestone
	err := row.Scan(&m.ID, &m.ContractID, &m.Title, &m.Amount, &m.Position, &m.Status, &m.SubmittedAt, &m.ApprovedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) Save(ctx context.Context, milestone *domain.Milestone) error {
	query := `
		INSERT INTO milestones (contract_id, title, amount, position, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			milestone.ContractID, milestone.Title, milestone.Amount, milestone.Position, milestone.Status,
		).Scan(&milestone.ID, &milestone.CreatedAt)
	})
	if err != nil {
		zap.L().Error("can't save milestone", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE id = $1`
	milestone, err := scanMilestone(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		zap.L().Error("can't find milestone", zap.Error(err))
		return nil, err
	}
	return milestone, nil
}

func (r *Repository) FindByContractID(ctx context.Context, contractID int) ([]domain.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE contract_id = $1 ORDER BY position ASC`
	rows, err := r.db.Query(ctx, query, contractID)
	if err != nil {
		zap.L().Error("can't get milestones", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var milestones []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		err := rows.Scan(&m.ID, &m.ContractID, &m.Title, &m.Amount, &m.Position, &m.Status, &m.SubmittedAt, &m.ApprovedAt, &m.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan milestone row", zap.Error(err))
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, nil
}

func (r *Repository) Update(ctx context.Context, milestone *domain.Milestone) error {
	query := `
		UPDATE milestones
		SET title = $1, amount = $2, position = $3, status = $4, submitted_at = $5, approved_at = $6
		WHERE id = $7
	`
	err := r.txManager.Begin(ctx, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, query,
			milestone.Title, milestone.Amount, milestone.Position, milestone.Status,
			milestone.SubmittedAt, milestone.ApprovedAt, milestone.ID,
		)
		return err
	})
	if err != nil {
		zap.L().Error("failed to update milestone", zap.Error(err))
		return err
	}
	return nil
}

// CountUnapproved returns the number of milestones on the contract that have
// not reached APPROVED. Zero means the contract is ready to complete.
func (r *Repository) CountUnapproved(ctx context.Context, contractID int) (int, error) {
	query := `
		SELECT count(*)
		FROM milestones
		WHERE contract_id = $1 AND status <> $2
	`
	var count int
	err := r.db.QueryRow(ctx, query, contractID, domain.MilestoneApproved).Scan(&count)
	if err != nil {
		zap.L().Error("can't count unapproved milestones", zap.Error(err))
		return 0, err
	}
	return count, nil
}
