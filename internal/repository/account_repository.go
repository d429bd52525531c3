package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// AccountFilter captures back-office listing parameters.
type AccountFilter struct {
	Role         *domain.Role
	ExcludeRoles []domain.Role
	Status       *domain.AccountStatus
	Search       string
	Limit        int
	Offset       int
}

// AccountRepository is the credential store and account directory.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByCPF(ctx context.Context, cpf string) (bool, error)
	List(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error)
	PromoteToBroker(ctx context.Context, id, sellerURL string) error
	UpdateSettings(ctx context.Context, id string, settings domain.AccountSettings) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, exclude []domain.Role) (map[domain.Role]int, error)
	ListBrokers(ctx context.Context, limit, offset int) ([]domain.BrokerSummary, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountColumns = `a.id, a.email, a.name, a.cpf, a.phone, a.password_hash, a.role, a.status,
               a.referral_account_id, r.name, a.seller_url, a.settings, a.created_at, a.updated_at`

const accountFrom = `FROM accounts a LEFT JOIN accounts r ON r.id = a.referral_account_id`

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	settings, err := json.Marshal(account.Settings)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO accounts (id, email, name, cpf, phone, password_hash, role, status, referral_account_id, seller_url, settings)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`

	err = r.pool.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.Name,
		account.CPF,
		account.Phone,
		account.PasswordHash,
		account.Role,
		account.Status,
		account.ReferralAccountID,
		account.SellerURL,
		settings,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	return mapWriteError(err)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE a.id=$1`, accountColumns, accountFrom)
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE LOWER(a.email)=LOWER($1)`, accountColumns, accountFrom)
	return scanAccount(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *accountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE LOWER(email)=LOWER($1))`,
		strings.TrimSpace(email),
	).Scan(&exists)
	return exists, err
}

func (r *accountRepository) ExistsByCPF(ctx context.Context, cpf string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE cpf=$1)`, cpf).Scan(&exists)
	return exists, err
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]domain.Account, int, error) {
	where, args := buildAccountWhere(filter)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) %s WHERE %s`, accountFrom, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY a.created_at DESC LIMIT %d OFFSET %d`,
		accountColumns, accountFrom, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// buildAccountWhere renders the filter into a WHERE clause and its args.
func buildAccountWhere(filter AccountFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("a.role=$%d", len(args)))
	}
	if len(filter.ExcludeRoles) > 0 {
		placeholders := make([]string, len(filter.ExcludeRoles))
		for i, role := range filter.ExcludeRoles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("a.role NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("a.status=$%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(a.name) LIKE %s OR LOWER(COALESCE(a.email, '')) LIKE %s OR a.cpf LIKE %s)", p, p, p))
	}

	return strings.Join(clauses, " AND "), args
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// PromoteToBroker flips a USER account to BROKER. Accounts in any other role
// are left untouched and pgx.ErrNoRows is returned.
func (r *accountRepository) PromoteToBroker(ctx context.Context, id, sellerURL string) error {
	const query = `
        UPDATE accounts SET role='BROKER', seller_url=$2, updated_at=NOW()
        WHERE id=$1 AND role='USER'`
	cmd, err := r.pool.Exec(ctx, query, id, sellerURL)
	if err != nil {
		return mapWriteError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) UpdateSettings(ctx context.Context, id string, settings domain.AccountSettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET settings=$2, updated_at=NOW() WHERE id=$1`, id, payload)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a non-ADMIN account. ADMIN rows are never matched.
func (r *accountRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id=$1 AND role <> 'ADMIN'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) CountByRole(ctx context.Context, exclude []domain.Role) (map[domain.Role]int, error) {
	where, args := buildAccountWhere(AccountFilter{ExcludeRoles: exclude})
	query := fmt.Sprintf(`SELECT a.role, COUNT(*) FROM accounts a WHERE %s GROUP BY a.role`, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Role]int)
	for rows.Next() {
		var role domain.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}

func (r *accountRepository) ListBrokers(ctx context.Context, limit, offset int) ([]domain.BrokerSummary, error) {
	limit, offset = normalizePage(limit, offset)
	query := fmt.Sprintf(`
        SELECT %s,
               (SELECT COUNT(*) FROM accounts c WHERE c.referral_account_id = a.id) AS referrals
        %s
        WHERE a.role='BROKER'
        ORDER BY a.created_at DESC LIMIT %d OFFSET %d`, accountColumns, accountFrom, limit, offset)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brokers := make([]domain.BrokerSummary, 0)
	for rows.Next() {
		var summary domain.BrokerSummary
		if err := scanAccountInto(rows, &summary.Account, &summary.ReferralCount); err != nil {
			return nil, err
		}
		brokers = append(brokers, summary)
	}
	return brokers, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := scanAccountInto(row, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func scanAccountInto(row pgx.Row, account *domain.Account, extra ...any) error {
	var settings []byte
	dest := []any{
		&account.ID,
		&account.Email,
		&account.Name,
		&account.CPF,
		&account.Phone,
		&account.PasswordHash,
		&account.Role,
		&account.Status,
		&account.ReferralAccountID,
		&account.ReferralName,
		&account.SellerURL,
		&settings,
		&account.CreatedAt,
		&account.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &account.Settings); err != nil {
			return fmt.Errorf("decode account settings: %w", err)
		}
	}
	return nil
}
