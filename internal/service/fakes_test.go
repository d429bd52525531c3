package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/events"
	"github.com/spec-kit/loan-backoffice/internal/repository"
)

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	getCalls int
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.CPF == account.CPF {
			return repository.ErrDuplicate
		}
		if existing.Email != nil && account.Email != nil && strings.EqualFold(*existing.Email, *account.Email) {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	for _, a := range r.accounts {
		if a.Email != nil && strings.EqualFold(*a.Email, strings.TrimSpace(email)) {
			copied := *a
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r *fakeAccountRepo) ExistsByCPF(_ context.Context, cpf string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.CPF == cpf {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAccountRepo) List(_ context.Context, filter repository.AccountFilter) ([]domain.Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Account, 0)
	for _, a := range r.accounts {
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		excluded := false
		for _, role := range filter.ExcludeRoles {
			if a.Role == role {
				excluded = true
			}
		}
		if excluded {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(a.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (r *fakeAccountRepo) PromoteToBroker(_ context.Context, id, sellerURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Role != domain.RoleUser {
		return pgx.ErrNoRows
	}
	a.Role = domain.RoleBroker
	a.SellerURL = &sellerURL
	return nil
}

func (r *fakeAccountRepo) UpdateSettings(_ context.Context, id string, settings domain.AccountSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Settings = settings
	return nil
}

func (r *fakeAccountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok || a.Role == domain.RoleAdmin {
		return pgx.ErrNoRows
	}
	delete(r.accounts, id)
	return nil
}

func (r *fakeAccountRepo) CountByRole(_ context.Context, exclude []domain.Role) (map[domain.Role]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.Role]int)
outer:
	for _, a := range r.accounts {
		for _, role := range exclude {
			if a.Role == role {
				continue outer
			}
		}
		counts[a.Role]++
	}
	return counts, nil
}

func (r *fakeAccountRepo) ListBrokers(_ context.Context, _, _ int) ([]domain.BrokerSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BrokerSummary, 0)
	for _, a := range r.accounts {
		if a.Role != domain.RoleBroker {
			continue
		}
		summary := domain.BrokerSummary{Account: *a}
		for _, c := range r.accounts {
			if c.ReferralAccountID != nil && *c.ReferralAccountID == a.ID {
				summary.ReferralCount++
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func (r *fakeAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

type fakeProposalRepo struct {
	proposals map[string]*domain.Proposal
}

func (r *fakeProposalRepo) List(_ context.Context, filter repository.ProposalFilter) ([]domain.Proposal, int, error) {
	out := make([]domain.Proposal, 0)
	for _, p := range r.proposals {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.ReferrerID != nil && (p.ReferrerID == nil || *p.ReferrerID != *filter.ReferrerID) {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *fakeProposalRepo) GetByID(_ context.Context, id string) (*domain.Proposal, error) {
	p, ok := r.proposals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProposalRepo) UpdateStatus(_ context.Context, id string, status domain.ProposalStatus) error {
	p, ok := r.proposals[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Status = status
	return nil
}

func (r *fakeProposalRepo) CountByStatus(_ context.Context) (map[domain.ProposalStatus]int, error) {
	counts := make(map[domain.ProposalStatus]int)
	for _, p := range r.proposals {
		counts[p.Status]++
	}
	return counts, nil
}

type fakeLogRepo struct {
	entries []domain.LogEntry
}

func (r *fakeLogRepo) Create(_ context.Context, entry *domain.LogEntry) error {
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLogRepo) List(_ context.Context, logType *domain.LogType, _, _ int) ([]domain.LogEntry, error) {
	out := make([]domain.LogEntry, 0)
	for _, e := range r.entries {
		if logType != nil && e.Type != *logType {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type fakeActivityRepo struct {
	mu         sync.Mutex
	activities []domain.Activity
}

func (r *fakeActivityRepo) Create(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	activity.CreatedAt = time.Now().UTC()
	r.activities = append(r.activities, *activity)
	return nil
}

func (r *fakeActivityRepo) ListRecent(_ context.Context, _, _ int) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Activity(nil), r.activities...), nil
}

func (r *fakeActivityRepo) types() []domain.ActivityType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ActivityType, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, a.Type)
	}
	return out
}

type fakeSettingsRepo struct {
	stored *domain.AppSettings
}

func (r *fakeSettingsRepo) Get(_ context.Context, _ string) (*domain.AppSettings, error) {
	if r.stored == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *r.stored
	return &copied, nil
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, settings *domain.AppSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	copied := *settings
	r.stored = &copied
	return nil
}

func (r *fakeSettingsRepo) InsertIfMissing(ctx context.Context, settings *domain.AppSettings) (bool, error) {
	if r.stored != nil {
		return false, nil
	}
	return true, r.Upsert(ctx, settings)
}

type fakeThrottle struct {
	failures map[string]int
	max      int
}

func newFakeThrottle(max int) *fakeThrottle {
	return &fakeThrottle{failures: make(map[string]int), max: max}
}

func (t *fakeThrottle) Allow(_ context.Context, email string) (bool, error) {
	return t.failures[email] < t.max, nil
}

func (t *fakeThrottle) RecordFailure(_ context.Context, email string) error {
	t.failures[email]++
	return nil
}

func (t *fakeThrottle) Reset(_ context.Context, email string) error {
	delete(t.failures, email)
	return nil
}

type recordingDispatcher struct {
	events.Dispatcher
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(nil)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return d.Dispatcher.Publish(ctx, event)
}

func strPtr(s string) *string { return &s }
