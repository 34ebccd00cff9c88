package webhookrepo

import (
	"context"

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

// Record stores the event id and reports whether this delivery is the first
// one. A duplicate delivery inserts nothing and returns false. Called inside
// the same transaction as the state transition the event drives.
func (r *Repository) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `
		INSERT INTO webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, eventID, eventType)
	if err != nil {
		zap.L().Error("can't record webhook event", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
