package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/events"
	"github.com/spec-kit/loan-backoffice/internal/repository"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

// ActivityService turns domain events into rows of the activity feed.
type ActivityService struct {
	activities repository.ActivityRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(activities repository.ActivityRepository, dispatcher events.Dispatcher, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		activities: activities,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLogin, a.handleSession)
	a.dispatcher.Subscribe(events.EventLogout, a.handleSession)
	a.dispatcher.Subscribe(events.EventAccountCreated, a.handleAccountCreated)
	a.dispatcher.Subscribe(events.EventAccountDeleted, a.handleAccountDeleted)
	a.dispatcher.Subscribe(events.EventAccountPromoted, a.handleAccountPromoted)
	a.dispatcher.Subscribe(events.EventAccountSettingsChange, a.handleAccountSettingsChanged)
	a.dispatcher.Subscribe(events.EventProposalStatusChanged, a.handleProposalStatusChanged)
}

// ListRecent returns the newest activity rows.
func (a *ActivityService) ListRecent(ctx context.Context, limit, offset int) ([]domain.Activity, error) {
	activities, err := a.activities.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return activities, nil
}

func (a *ActivityService) handleSession(ctx context.Context, event events.Event) error {
	activityType := domain.ActivityLogin
	description := "Login realizado"
	if event.Type == events.EventLogout {
		activityType = domain.ActivityLogout
		description = "Logout realizado"
	}
	return a.record(ctx, event, activityType, description)
}

func (a *ActivityService) handleAccountCreated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.AccountPayload)
	if payload.Role == domain.RoleBroker {
		return a.record(ctx, event, domain.ActivityCreateBroker, fmt.Sprintf("Corretor %s cadastrado", payload.Name))
	}
	return a.record(ctx, event, domain.ActivityCreateUser, fmt.Sprintf("Usuário %s cadastrado", payload.Name))
}

func (a *ActivityService) handleAccountDeleted(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.AccountPayload)
	if payload.Role == domain.RoleBroker {
		return a.record(ctx, event, domain.ActivityDeleteBroker, fmt.Sprintf("Corretor %s removido", payload.Name))
	}
	return a.record(ctx, event, domain.ActivityDeleteUser, fmt.Sprintf("Usuário %s removido", payload.Name))
}

func (a *ActivityService) handleAccountPromoted(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.AccountPayload)
	return a.record(ctx, event, domain.ActivityCreateBroker, fmt.Sprintf("Usuário %s promovido a corretor", payload.Name))
}

func (a *ActivityService) handleAccountSettingsChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.AccountPayload)
	if payload.Role != domain.RoleBroker {
		return nil
	}
	return a.record(ctx, event, domain.ActivityUpdateBroker, fmt.Sprintf("Configurações do corretor %s atualizadas", payload.Name))
}

func (a *ActivityService) handleProposalStatusChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ProposalStatusChangedPayload)
	return a.record(ctx, event, domain.ActivityUpdateProposal,
		fmt.Sprintf("Proposta %s alterada de %s para %s", event.SubjectID, payload.OldStatus, payload.NewStatus))
}

func (a *ActivityService) record(ctx context.Context, event events.Event, activityType domain.ActivityType, description string) error {
	activity := &domain.Activity{
		ID:          uuid.NewString(),
		AccountID:   event.ActorID,
		Type:        activityType,
		Description: description,
	}
	if err := a.activities.Create(ctx, activity); err != nil {
		return fmt.Errorf("record %s activity: %w", activityType, err)
	}
	a.logger.Debug("activity recorded",
		zap.String("type", string(activityType)),
		zap.String("event_id", event.ID),
	)
	return nil
}
