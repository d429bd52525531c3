package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// SettingsRepository reads and writes the application settings document.
type SettingsRepository interface {
	Get(ctx context.Context, id string) (*domain.AppSettings, error)
	Upsert(ctx context.Context, settings *domain.AppSettings) error
	InsertIfMissing(ctx context.Context, settings *domain.AppSettings) (bool, error)
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed implementation.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context, id string) (*domain.AppSettings, error) {
	var s domain.AppSettings
	var document []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, document, updated_at FROM app_settings WHERE id=$1`, id,
	).Scan(&s.ID, &document, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(document, &s.Document); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.AppSettings) error {
	document, err := json.Marshal(settings.Document)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO app_settings (id, document) VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET document=EXCLUDED.document, updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, settings.ID, document).Scan(&settings.UpdatedAt)
}

// InsertIfMissing writes the document only when no row exists yet.
func (r *settingsRepository) InsertIfMissing(ctx context.Context, settings *domain.AppSettings) (bool, error) {
	document, err := json.Marshal(settings.Document)
	if err != nil {
		return false, err
	}
	cmd, err := r.pool.Exec(ctx,
		`INSERT INTO app_settings (id, document) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		settings.ID, document,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
