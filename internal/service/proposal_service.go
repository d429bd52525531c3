package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/events"
	"github.com/spec-kit/loan-backoffice/internal/repository"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

// ProposalService coordinates proposal review.
type ProposalService struct {
	proposals  repository.ProposalRepository
	logs       repository.LogRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ProposalDependencies bundles repositories for proposal service.
type ProposalDependencies struct {
	ProposalRepo repository.ProposalRepository
	LogRepo      repository.LogRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// ProposalListInput describes listing filters.
type ProposalListInput struct {
	Status *domain.ProposalStatus
	Limit  int
	Offset int
}

// NewProposalService constructs the service.
func NewProposalService(deps ProposalDependencies) *ProposalService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalService{
		proposals:  deps.ProposalRepo,
		logs:       deps.LogRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// List returns proposals visible to viewer. Brokers only see proposals of
// accounts they referred.
func (s *ProposalService) List(ctx context.Context, viewer domain.Session, input ProposalListInput) ([]domain.Proposal, int, error) {
	if err := requireRole(viewer, domain.RoleAdmin, domain.RoleSupport, domain.RoleBroker); err != nil {
		return nil, 0, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, apperrors.NewValidationError("invalid status filter", map[string]any{"status": *input.Status})
	}

	filter := repository.ProposalFilter{
		Status: input.Status,
		Limit:  input.Limit,
		Offset: input.Offset,
	}
	if viewer.Role == domain.RoleBroker {
		referrer := viewer.AccountID
		filter.ReferrerID = &referrer
	}

	proposals, total, err := s.proposals.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return proposals, total, nil
}

// Get returns one proposal if the viewer may see it.
func (s *ProposalService) Get(ctx context.Context, viewer domain.Session, id string) (*domain.Proposal, error) {
	if err := requireRole(viewer, domain.RoleAdmin, domain.RoleSupport, domain.RoleBroker); err != nil {
		return nil, err
	}
	proposal, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.Role == domain.RoleBroker &&
		(proposal.ReferrerID == nil || *proposal.ReferrerID != viewer.AccountID) {
		return nil, apperrors.NewNotFound("proposal", map[string]any{"id": id})
	}
	return proposal, nil
}

// UpdateStatus moves a proposal to a new status and records a log row.
func (s *ProposalService) UpdateStatus(ctx context.Context, actor domain.Session, id string, status domain.ProposalStatus, comment string) (*domain.Proposal, error) {
	if err := requireRole(actor, domain.RoleAdmin, domain.RoleSupport); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}

	proposal, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if proposal.Status == status {
		return proposal, nil
	}
	oldStatus := proposal.Status

	if err := s.proposals.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("proposal", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	proposal.Status = status
	proposal.UpdatedAt = time.Now().UTC()

	if s.logs != nil {
		entry := &domain.LogEntry{
			ID:         uuid.NewString(),
			ProposalID: &proposal.ID,
			Type:       domain.LogInfo,
			Message:    "proposal status changed from " + string(oldStatus) + " to " + string(status),
			Metadata: map[string]any{
				"actor_id":   actor.AccountID,
				"old_status": oldStatus,
				"new_status": status,
			},
		}
		if c := strings.TrimSpace(comment); c != "" {
			entry.Metadata["comment"] = c
		}
		if err := s.logs.Create(ctx, entry); err != nil {
			s.logger.Warn("unable to write proposal log", zap.String("proposal_id", id), zap.Error(err))
		}
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventProposalStatusChanged,
			ActorID:   actor.AccountID,
			SubjectID: proposal.ID,
			Timestamp: time.Now().UTC(),
			Payload: events.ProposalStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: status,
				Comment:   strings.TrimSpace(comment),
			},
		})
	}
	return proposal, nil
}

func (s *ProposalService) fetch(ctx context.Context, id string) (*domain.Proposal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("proposal", map[string]any{"id": id})
	}
	proposal, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("proposal", map[string]any{"id": id})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return proposal, nil
}
