package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/events"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

func newTestBackoffice(t *testing.T) (*BackofficeService, *fakeSettingsRepo, *fakeLogRepo) {
	t.Helper()
	settings := &fakeSettingsRepo{}
	logs := &fakeLogRepo{}
	svc := NewBackofficeService(BackofficeDependencies{
		AccountRepo:  seededAccounts(t),
		ProposalRepo: seededProposals(),
		SettingsRepo: settings,
		LogRepo:      logs,
	})
	return svc, settings, logs
}

func TestDashboardSummaryHidesAdminsFromSupport(t *testing.T) {
	svc, _, _ := newTestBackoffice(t)
	ctx := context.Background()

	support, err := svc.Summary(ctx, asSupport)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if _, ok := support.AccountsByRole[domain.RoleAdmin]; ok {
		t.Fatal("support summary must not count admins")
	}
	if support.ProposalsByStatus[domain.ProposalStatusPending] != 1 {
		t.Fatalf("proposals = %v", support.ProposalsByStatus)
	}

	admin, err := svc.Summary(ctx, asAdmin)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if admin.AccountsByRole[domain.RoleAdmin] != 1 {
		t.Fatalf("admin summary = %v", admin.AccountsByRole)
	}
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	svc, repo, _ := newTestBackoffice(t)
	ctx := context.Background()

	current, err := svc.Settings(ctx, asAdmin)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if current.Document["appName"] != "Fintech FGTS" {
		t.Fatalf("default document = %v", current.Document)
	}

	if _, err := svc.Settings(ctx, asSupport); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("support settings: got %v", err)
	}
	if _, err := svc.UpdateSettings(ctx, asAdmin, nil); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("empty document: got %v", err)
	}

	if _, err := svc.UpdateSettings(ctx, asAdmin, map[string]any{"appName": "Crédito Já"}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if repo.stored == nil || repo.stored.Document["appName"] != "Crédito Já" {
		t.Fatalf("stored = %+v", repo.stored)
	}

	inserted, err := svc.EnsureDefaultSettings(ctx)
	if err != nil || inserted {
		t.Fatalf("EnsureDefaultSettings() = %v, %v; existing row must be kept", inserted, err)
	}
}

func TestLogsFilterByType(t *testing.T) {
	svc, _, logs := newTestBackoffice(t)
	logs.entries = []domain.LogEntry{
		{ID: "1", Type: domain.LogInfo, Message: "a"},
		{ID: "2", Type: domain.LogError, Message: "b"},
	}
	ctx := context.Background()

	errType := domain.LogError
	entries, err := svc.Logs(ctx, asAdmin, &errType, 10, 0)
	if err != nil || len(entries) != 1 || entries[0].ID != "2" {
		t.Fatalf("Logs() = %+v, %v", entries, err)
	}

	bad := domain.LogType("DEBUG")
	if _, err := svc.Logs(ctx, asAdmin, &bad, 10, 0); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("bad type: got %v", err)
	}
	if _, err := svc.Logs(ctx, asSupport, nil, 10, 0); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("support logs: got %v", err)
	}
}

func TestActivityFeedFromAccountEvents(t *testing.T) {
	activities := &fakeActivityRepo{}
	dispatcher := events.NewInMemoryDispatcher(nil)
	feed := NewActivityService(activities, dispatcher, nil)
	feed.RegisterHandlers()

	accounts := newTestAccountService(seededAccounts(t), dispatcher)
	ctx := context.Background()

	if _, err := accounts.PromoteToBroker(ctx, asAdmin, userID); err != nil {
		t.Fatalf("PromoteToBroker() error = %v", err)
	}
	if err := accounts.Delete(ctx, asAdmin, brokerID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_ = dispatcher.Publish(ctx, events.Event{Type: events.EventLogin, ActorID: adminID})

	want := []domain.ActivityType{domain.ActivityCreateBroker, domain.ActivityDeleteBroker, domain.ActivityLogin}
	got := activities.types()
	if len(got) != len(want) {
		t.Fatalf("activities = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("activities = %v, want %v", got, want)
		}
	}

	recent, err := feed.ListRecent(ctx, 10, 0)
	if err != nil || len(recent) != 3 {
		t.Fatalf("ListRecent() = %d, %v", len(recent), err)
	}
	if recent[2].AccountID != adminID {
		t.Fatalf("login activity actor = %q", recent[2].AccountID)
	}
}
