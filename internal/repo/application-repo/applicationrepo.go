package applicationrepo

import (
	"context"

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

func (r *Repository) FindByID(ctx context.Context, id int) (*domain.Application, error) {
	query := `
		SELECT id, project_id, business_id, talent_id, status, created_at
		FROM applications
		WHERE id = $1
	`
	var app domain.Application
	err := r.db.QueryRow(ctx, query, id).
		Scan(&app.ID, &app.ProjectID, &app.BusinessID, &app.TalentID, &app.Status, &app.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find application", zap.Error(err))
		return nil, err
	}
	return &app, nil
}
