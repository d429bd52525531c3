package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// ProposalFilter narrows proposal listings. ReferrerID restricts results to
// proposals of accounts referred by that broker.
type ProposalFilter struct {
	Status     *domain.ProposalStatus
	ReferrerID *string
	Limit      int
	Offset     int
}

// ProposalRepository encapsulates proposal persistence.
type ProposalRepository interface {
	List(ctx context.Context, filter ProposalFilter) ([]domain.Proposal, int, error)
	GetByID(ctx context.Context, id string) (*domain.Proposal, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProposalStatus) error
	CountByStatus(ctx context.Context) (map[domain.ProposalStatus]int, error)
}

type proposalRepository struct {
	pool *pgxpool.Pool
}

// NewProposalRepository instantiates repository.
func NewProposalRepository(pool *pgxpool.Pool) ProposalRepository {
	return &proposalRepository{pool: pool}
}

const proposalSelect = `
        SELECT p.id, p.account_id, a.name, a.referral_account_id, p.amount::float8, p.status, p.created_at, p.updated_at
        FROM proposals p JOIN accounts a ON a.id = p.account_id`

func buildProposalWhere(filter ProposalFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("p.status=$%d", len(args)))
	}
	if filter.ReferrerID != nil {
		args = append(args, *filter.ReferrerID)
		clauses = append(clauses, fmt.Sprintf("a.referral_account_id=$%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func (r *proposalRepository) List(ctx context.Context, filter ProposalFilter) ([]domain.Proposal, int, error) {
	where, args := buildProposalWhere(filter)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM proposals p JOIN accounts a ON a.id = p.account_id WHERE %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, proposalSelect, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	proposals := make([]domain.Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, 0, err
		}
		proposals = append(proposals, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id string) (*domain.Proposal, error) {
	return scanProposal(r.pool.QueryRow(ctx, proposalSelect+` WHERE p.id=$1`, id))
}

func (r *proposalRepository) UpdateStatus(ctx context.Context, id string, status domain.ProposalStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE proposals SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *proposalRepository) CountByStatus(ctx context.Context) (map[domain.ProposalStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM proposals GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ProposalStatus]int)
	for rows.Next() {
		var status domain.ProposalStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	if err := row.Scan(
		&p.ID,
		&p.AccountID,
		&p.AccountName,
		&p.ReferrerID,
		&p.Amount,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
