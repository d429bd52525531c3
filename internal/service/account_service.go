package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/loan-backoffice/internal/auth"
	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/events"
	"github.com/spec-kit/loan-backoffice/internal/repository"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

const minPasswordLength = 6

// AccountService holds the admin-only account management operations.
type AccountService struct {
	accounts      repository.AccountRepository
	dispatcher    events.Dispatcher
	bcryptCost    int
	sellerBaseURL string
	logger        *zap.Logger
}

// AccountDependencies bundles requirements for the account service.
type AccountDependencies struct {
	AccountRepo   repository.AccountRepository
	Dispatcher    events.Dispatcher
	BcryptCost    int
	SellerBaseURL string
	Logger        *zap.Logger
}

// CreateAccountInput describes account creation payload.
type CreateAccountInput struct {
	Name              string
	Email             string
	CPF               string
	Phone             string
	Password          string
	Role              domain.Role
	ReferralAccountID *string
	Settings          *domain.AccountSettings
}

// AccountListInput describes listing filters.
type AccountListInput struct {
	Role   *domain.Role
	Status *domain.AccountStatus
	Search string
	Limit  int
	Offset int
}

// NewAccountService constructs the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:      deps.AccountRepo,
		dispatcher:    deps.Dispatcher,
		bcryptCost:    deps.BcryptCost,
		sellerBaseURL: strings.TrimRight(deps.SellerBaseURL, "/"),
		logger:        logger,
	}
}

// Create registers an account. Email and cpf must both be unused; on
// conflict nothing is written.
func (s *AccountService) Create(ctx context.Context, actor domain.Session, input CreateAccountInput) (*domain.Account, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	cpf := domain.NormalizeCPF(input.CPF)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}

	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if len(cpf) != 11 {
		details["cpf"] = "must contain 11 digits"
	}
	if email != "" && !strings.Contains(email, "@") {
		details["email"] = "invalid"
	}
	if !role.Valid() {
		details["role"] = "invalid"
	}
	if input.Password != "" && len(input.Password) < minPasswordLength {
		details["password"] = fmt.Sprintf("must have at least %d characters", minPasswordLength)
	}
	referralID := normalizeReferral(input.ReferralAccountID)
	if referralID != nil {
		if _, err := uuid.Parse(*referralID); err != nil {
			details["referral_account_id"] = "invalid"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid account data", details)
	}
	if referralID != nil {
		if _, err := s.accounts.GetByID(ctx, *referralID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("invalid account data", map[string]any{"referral_account_id": "not found"})
			}
			return nil, apperrors.NewInternalError(err)
		}
	}

	if email != "" {
		exists, err := s.accounts.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if exists {
			return nil, apperrors.NewConflictingAccount("email already registered", map[string]any{"field": "email"})
		}
	}
	exists, err := s.accounts.ExistsByCPF(ctx, cpf)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if exists {
		return nil, apperrors.NewConflictingAccount("cpf already registered", map[string]any{"field": "cpf"})
	}

	account := &domain.Account{
		ID:                uuid.NewString(),
		Name:              name,
		CPF:               cpf,
		Role:              role,
		Status:            domain.AccountStatusActive,
		ReferralAccountID: referralID,
	}
	if email != "" {
		account.Email = &email
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		account.Phone = &phone
	}
	if input.Settings != nil {
		account.Settings = *input.Settings
	}
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		account.PasswordHash = hash
	}
	if role == domain.RoleBroker {
		url := s.sellerURL(account.ID)
		account.SellerURL = &url
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflictingAccount("email or cpf already registered", nil)
		}
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, apperrors.NewValidationError("invalid account data", map[string]any{"referral_account_id": "not found"})
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("role", string(account.Role)),
		zap.String("actor_id", actor.AccountID),
	)
	s.publish(ctx, events.EventAccountCreated, actor, account)
	return account, nil
}

// Delete removes an account. ADMIN accounts can never be deleted, whoever
// asks.
func (s *AccountService) Delete(ctx context.Context, actor domain.Session, id string) error {
	account, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if account.Role == domain.RoleAdmin {
		return apperrors.NewInvariantViolation("administrator accounts cannot be deleted", map[string]any{"id": id})
	}
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return err
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("account", map[string]any{"id": id})
		}
		return apperrors.NewInternalError(err)
	}

	s.logger.Info("account deleted", zap.String("account_id", id), zap.String("actor_id", actor.AccountID))
	s.publish(ctx, events.EventAccountDeleted, actor, account)
	return nil
}

// PromoteToBroker turns a USER into a BROKER with a seller link.
func (s *AccountService) PromoteToBroker(ctx context.Context, actor domain.Session, id string) (*domain.Account, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	account, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	switch account.Role {
	case domain.RoleAdmin:
		return nil, apperrors.NewInvariantViolation("administrator accounts cannot change role", map[string]any{"id": id})
	case domain.RoleBroker:
		return nil, apperrors.NewConflict("account is already a broker", map[string]any{"reason": "ALREADY_BROKER"})
	case domain.RoleUser:
	default:
		return nil, apperrors.NewConflict("only USER accounts can be promoted", map[string]any{"role": account.Role})
	}

	if err := s.accounts.PromoteToBroker(ctx, id, s.sellerURL(id)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Role changed between the read and the update.
			return nil, apperrors.NewConflict("account role changed concurrently", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	promoted, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account promoted to broker", zap.String("account_id", id), zap.String("actor_id", actor.AccountID))
	s.publish(ctx, events.EventAccountPromoted, actor, promoted)
	return promoted, nil
}

// List returns accounts visible to viewer. Without a role filter USER
// accounts are left out. SUPPORT viewers never receive ADMIN rows.
func (s *AccountService) List(ctx context.Context, viewer domain.Session, input AccountListInput) ([]domain.Account, int, error) {
	if err := requireRole(viewer, domain.RoleAdmin, domain.RoleSupport); err != nil {
		return nil, 0, err
	}

	filter := repository.AccountFilter{
		Role:   input.Role,
		Status: input.Status,
		Search: input.Search,
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if input.Role == nil {
		filter.ExcludeRoles = append(filter.ExcludeRoles, domain.RoleUser)
	}
	if viewer.Role == domain.RoleSupport {
		filter.ExcludeRoles = append(filter.ExcludeRoles, domain.RoleAdmin)
	}

	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return accounts, total, nil
}

// ListBrokers returns broker accounts with their referral counts.
func (s *AccountService) ListBrokers(ctx context.Context, viewer domain.Session, limit, offset int) ([]domain.BrokerSummary, error) {
	if err := requireRole(viewer, domain.RoleAdmin, domain.RoleSupport); err != nil {
		return nil, err
	}
	brokers, err := s.accounts.ListBrokers(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return brokers, nil
}

// UpdateSettings replaces the general flags of an account, keeping any
// other settings keys already stored.
func (s *AccountService) UpdateSettings(ctx context.Context, actor domain.Session, id string, settings domain.AccountSettings) (*domain.Account, error) {
	if err := requireRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}

	account, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := account.Settings
	merged.General = settings.General
	if len(settings.Extra) > 0 {
		if merged.Extra == nil {
			merged.Extra = make(map[string]json.RawMessage, len(settings.Extra))
		}
		for k, v := range settings.Extra {
			merged.Extra[k] = v
		}
	}

	if err := s.accounts.UpdateSettings(ctx, id, merged); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	account.Settings = merged
	account.UpdatedAt = time.Now().UTC()

	s.publish(ctx, events.EventAccountSettingsChange, actor, account)
	return account, nil
}

// Get returns one account.
func (s *AccountService) Get(ctx context.Context, viewer domain.Session, id string) (*domain.Account, error) {
	if err := requireRole(viewer, domain.RoleAdmin, domain.RoleSupport); err != nil {
		return nil, err
	}
	account, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.Role == domain.RoleSupport && account.Role == domain.RoleAdmin {
		return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
	}
	return account, nil
}

func (s *AccountService) fetch(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
	}
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return account, nil
}

func (s *AccountService) sellerURL(id string) string {
	return fmt.Sprintf("%s/seller=%s", s.sellerBaseURL, id)
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, actor domain.Session, account *domain.Account) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actor.AccountID,
		SubjectID: account.ID,
		Timestamp: time.Now().UTC(),
		Payload:   events.AccountPayload{Name: account.Name, Role: account.Role},
	})
}

func normalizeReferral(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func requireRole(session domain.Session, roles ...domain.Role) error {
	for _, r := range roles {
		if session.Role == r {
			return nil
		}
	}
	return apperrors.NewForbidden("insufficient role")
}

// EnsureAdmin creates the initial administrator unless an account with the
// email already exists. It reports whether a row was written.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, cpf, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, apperrors.NewValidationError("admin email and password are required", nil)
	}
	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	system := domain.Session{Role: domain.RoleAdmin}
	if _, err := s.Create(ctx, system, CreateAccountInput{
		Name:     name,
		Email:    email,
		CPF:      cpf,
		Password: password,
		Role:     domain.RoleAdmin,
	}); err != nil {
		return false, err
	}
	return true, nil
}
