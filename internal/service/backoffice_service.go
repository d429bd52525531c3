package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/repository"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

// DashboardSummary aggregates counts for the dashboard page.
type DashboardSummary struct {
	AccountsByRole    map[domain.Role]int           `json:"accounts_by_role"`
	ProposalsByStatus map[domain.ProposalStatus]int `json:"proposals_by_status"`
}

// BackofficeService serves the read-mostly admin pages: dashboard, settings
// and logs.
type BackofficeService struct {
	accounts  repository.AccountRepository
	proposals repository.ProposalRepository
	settings  repository.SettingsRepository
	logs      repository.LogRepository
}

// BackofficeDependencies bundles repositories for the service.
type BackofficeDependencies struct {
	AccountRepo  repository.AccountRepository
	ProposalRepo repository.ProposalRepository
	SettingsRepo repository.SettingsRepository
	LogRepo      repository.LogRepository
}

// NewBackofficeService constructs the service.
func NewBackofficeService(deps BackofficeDependencies) *BackofficeService {
	return &BackofficeService{
		accounts:  deps.AccountRepo,
		proposals: deps.ProposalRepo,
		settings:  deps.SettingsRepo,
		logs:      deps.LogRepo,
	}
}

// Summary returns dashboard counts. SUPPORT viewers do not see ADMIN totals.
func (s *BackofficeService) Summary(ctx context.Context, viewer domain.Session) (*DashboardSummary, error) {
	if err := requireRole(viewer, domain.RoleAdmin, domain.RoleSupport); err != nil {
		return nil, err
	}

	var exclude []domain.Role
	if viewer.Role == domain.RoleSupport {
		exclude = []domain.Role{domain.RoleAdmin}
	}
	accounts, err := s.accounts.CountByRole(ctx, exclude)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	proposals, err := s.proposals.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &DashboardSummary{AccountsByRole: accounts, ProposalsByStatus: proposals}, nil
}

// Settings returns the application settings, falling back to defaults when
// none were stored yet.
func (s *BackofficeService) Settings(ctx context.Context, viewer domain.Session) (*domain.AppSettings, error) {
	if err := requireRole(viewer, domain.RoleAdmin); err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx, domain.DefaultAppSettingsID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.AppSettings{ID: domain.DefaultAppSettingsID, Document: domain.DefaultAppSettings()}, nil
		}
		return nil, apperrors.NewInternalError(err)
	}
	return settings, nil
}

// UpdateSettings replaces the application settings document.
func (s *BackofficeService) UpdateSettings(ctx context.Context, actor domain.Session, document map[string]any) (*domain.AppSettings, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if len(document) == 0 {
		return nil, apperrors.NewValidationError("settings document must not be empty", nil)
	}
	settings := &domain.AppSettings{ID: domain.DefaultAppSettingsID, Document: document}
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return settings, nil
}

// EnsureDefaultSettings seeds the settings row when missing.
func (s *BackofficeService) EnsureDefaultSettings(ctx context.Context) (bool, error) {
	return s.settings.InsertIfMissing(ctx, &domain.AppSettings{
		ID:       domain.DefaultAppSettingsID,
		Document: domain.DefaultAppSettings(),
	})
}

// Logs lists system log rows, optionally of one type.
func (s *BackofficeService) Logs(ctx context.Context, viewer domain.Session, logType *domain.LogType, limit, offset int) ([]domain.LogEntry, error) {
	if err := requireRole(viewer, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if logType != nil && !logType.Valid() {
		return nil, apperrors.NewValidationError("invalid log type", map[string]any{"type": *logType})
	}
	entries, err := s.logs.List(ctx, logType, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}
