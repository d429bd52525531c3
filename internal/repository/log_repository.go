package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// LogRepository persists operational log rows.
type LogRepository interface {
	Create(ctx context.Context, entry *domain.LogEntry) error
	List(ctx context.Context, logType *domain.LogType, limit, offset int) ([]domain.LogEntry, error)
}

type logRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository returns a Postgres-backed implementation.
func NewLogRepository(pool *pgxpool.Pool) LogRepository {
	return &logRepository{pool: pool}
}

func (r *logRepository) Create(ctx context.Context, entry *domain.LogEntry) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO logs (id, proposal_id, type, message, metadata)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.ProposalID,
		entry.Type,
		entry.Message,
		payload,
	).Scan(&entry.CreatedAt)
}

func (r *logRepository) List(ctx context.Context, logType *domain.LogType, limit, offset int) ([]domain.LogEntry, error) {
	limit, offset = normalizePage(limit, offset)
	query := `SELECT id, proposal_id, type, message, metadata, created_at FROM logs`
	args := []any{}
	if logType != nil {
		args = append(args, *logType)
		query += ` WHERE type=$1`
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LogEntry, 0)
	for rows.Next() {
		var e domain.LogEntry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.ProposalID, &e.Type, &e.Message, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode log metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
