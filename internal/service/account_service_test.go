package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/events"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

var (
	asAdmin   = domain.Session{AccountID: adminID, Role: domain.RoleAdmin}
	asSupport = domain.Session{AccountID: supportID, Role: domain.RoleSupport}
	asBroker  = domain.Session{AccountID: brokerID, Role: domain.RoleBroker}
	asUser    = domain.Session{AccountID: userID, Role: domain.RoleUser}
)

func seededAccounts(t *testing.T) *fakeAccountRepo {
	t.Helper()
	return newFakeAccountRepo(
		newAccount(t, adminID, "admin@example.com", domain.RoleAdmin, "pw"),
		newAccount(t, supportID, "support@example.com", domain.RoleSupport, "pw"),
		newAccount(t, brokerID, "broker@example.com", domain.RoleBroker, "pw"),
		newAccount(t, userID, "user@example.com", domain.RoleUser, "pw"),
	)
}

func newTestAccountService(repo *fakeAccountRepo, dispatcher events.Dispatcher) *AccountService {
	return NewAccountService(AccountDependencies{
		AccountRepo:   repo,
		Dispatcher:    dispatcher,
		BcryptCost:    bcrypt.MinCost,
		SellerBaseURL: "https://app.example.com/",
	})
}

func TestCreateAccount(t *testing.T) {
	repo := seededAccounts(t)
	dispatcher := newRecordingDispatcher()
	svc := newTestAccountService(repo, dispatcher)

	account, err := svc.Create(context.Background(), asAdmin, CreateAccountInput{
		Name:     "  Maria  ",
		Email:    "Maria@Example.com",
		CPF:      "987.654.321-00",
		Password: "secret1",
		Role:     domain.RoleBroker,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if account.Name != "Maria" || account.CPF != "98765432100" || *account.Email != "maria@example.com" {
		t.Fatalf("account = %+v", account)
	}
	if account.SellerURL == nil || *account.SellerURL != "https://app.example.com/seller="+account.ID {
		t.Fatalf("seller url = %v", account.SellerURL)
	}
	if account.PasswordHash == "" || account.PasswordHash == "secret1" {
		t.Fatal("password must be stored hashed")
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventAccountCreated {
		t.Fatalf("published = %+v", dispatcher.published)
	}
}

func TestCreateAccountConflictsWriteNothing(t *testing.T) {
	tests := []struct {
		name  string
		input CreateAccountInput
	}{
		{"duplicate email", CreateAccountInput{Name: "Dup", Email: "USER@example.com", CPF: "11122233344"}},
		{"duplicate cpf", CreateAccountInput{Name: "Dup", Email: "new@example.com", CPF: "123456789-04"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededAccounts(t)
			svc := newTestAccountService(repo, nil)

			_, err := svc.Create(context.Background(), asAdmin, tt.input)
			if !errors.Is(err, apperrors.ErrConflictingAccount) {
				t.Fatalf("expected conflicting account, got %v", err)
			}
			if repo.count() != 4 {
				t.Fatalf("accounts = %d, want 4", repo.count())
			}
		})
	}
}

func TestCreateAccountValidation(t *testing.T) {
	svc := newTestAccountService(seededAccounts(t), nil)

	_, err := svc.Create(context.Background(), asAdmin, CreateAccountInput{Name: "", CPF: "12"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.Create(context.Background(), asSupport, CreateAccountInput{Name: "X", CPF: "55566677788"})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("support must not create accounts, got %v", err)
	}
}

func TestCreateAccountReferral(t *testing.T) {
	tests := []struct {
		name     string
		referral *string
		wantErr  error
		wantRef  *string
	}{
		{"malformed id", strPtr("abc"), apperrors.ErrValidation, nil},
		{"unknown account", strPtr("6c1e8a0e-3d6b-4a59-9d4c-0000000000ff"), apperrors.ErrValidation, nil},
		{"blank id is dropped", strPtr("  "), nil, nil},
		{"existing broker", strPtr(brokerID), nil, strPtr(brokerID)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := seededAccounts(t)
			svc := newTestAccountService(repo, nil)

			account, err := svc.Create(context.Background(), asAdmin, CreateAccountInput{
				Name:              "Cliente",
				CPF:               "44455566677",
				ReferralAccountID: tt.referral,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				var de *apperrors.DomainError
				if !errors.As(err, &de) || de.Details["referral_account_id"] == nil {
					t.Fatalf("details = %+v", err)
				}
				if repo.count() != 4 {
					t.Fatalf("accounts = %d, want 4", repo.count())
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			switch {
			case tt.wantRef == nil && account.ReferralAccountID != nil:
				t.Fatalf("referral = %q, want none", *account.ReferralAccountID)
			case tt.wantRef != nil && (account.ReferralAccountID == nil || *account.ReferralAccountID != *tt.wantRef):
				t.Fatalf("referral = %v, want %s", account.ReferralAccountID, *tt.wantRef)
			}
		})
	}
}

func TestDeleteAdminIsAlwaysInvariantViolation(t *testing.T) {
	for _, caller := range []domain.Session{asAdmin, asSupport, asBroker, asUser} {
		repo := seededAccounts(t)
		svc := newTestAccountService(repo, nil)

		err := svc.Delete(context.Background(), caller, adminID)
		if !errors.Is(err, apperrors.ErrInvariantViolation) {
			t.Fatalf("caller %s: expected invariant violation, got %v", caller.Role, err)
		}
		if _, err := repo.GetByID(context.Background(), adminID); err != nil {
			t.Fatalf("caller %s: admin was removed", caller.Role)
		}
	}
}

func TestDeleteAccount(t *testing.T) {
	repo := seededAccounts(t)
	dispatcher := newRecordingDispatcher()
	svc := newTestAccountService(repo, dispatcher)
	ctx := context.Background()

	if err := svc.Delete(ctx, asSupport, userID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("support delete: got %v", err)
	}
	if err := svc.Delete(ctx, asAdmin, userID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, asAdmin, userID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	if err := svc.Delete(ctx, asAdmin, "not-a-uuid"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("bad id: got %v", err)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0].Type != events.EventAccountDeleted {
		t.Fatalf("published = %+v", dispatcher.published)
	}
}

func TestPromoteToBroker(t *testing.T) {
	repo := seededAccounts(t)
	svc := newTestAccountService(repo, nil)
	ctx := context.Background()

	promoted, err := svc.PromoteToBroker(ctx, asAdmin, userID)
	if err != nil {
		t.Fatalf("PromoteToBroker() error = %v", err)
	}
	if promoted.Role != domain.RoleBroker {
		t.Fatalf("role = %s", promoted.Role)
	}
	if promoted.SellerURL == nil || *promoted.SellerURL != "https://app.example.com/seller="+userID {
		t.Fatalf("seller url = %v", promoted.SellerURL)
	}

	_, err = svc.PromoteToBroker(ctx, asAdmin, userID)
	var de *apperrors.DomainError
	if !errors.As(err, &de) || de.Code != apperrors.CodeConflict || de.Details["reason"] != "ALREADY_BROKER" {
		t.Fatalf("second promotion: got %v", err)
	}
	after, _ := repo.GetByID(ctx, userID)
	if after.Role != domain.RoleBroker {
		t.Fatal("failed promotion must leave the account unchanged")
	}

	if _, err := svc.PromoteToBroker(ctx, asAdmin, adminID); !errors.Is(err, apperrors.ErrInvariantViolation) {
		t.Fatalf("admin promotion: got %v", err)
	}
	if _, err := svc.PromoteToBroker(ctx, asAdmin, supportID); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("support promotion: got %v", err)
	}
	if _, err := svc.PromoteToBroker(ctx, asSupport, brokerID); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("support caller: got %v", err)
	}
}

func TestListNeverShowsAdminsToSupport(t *testing.T) {
	svc := newTestAccountService(seededAccounts(t), nil)
	ctx := context.Background()
	admin := domain.RoleAdmin

	for _, input := range []AccountListInput{{}, {Role: &admin}} {
		accounts, total, err := svc.List(ctx, asSupport, input)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		for _, a := range accounts {
			if a.Role == domain.RoleAdmin {
				t.Fatalf("support saw admin account %s", a.ID)
			}
		}
		if total != len(accounts) {
			t.Fatalf("total = %d, len = %d", total, len(accounts))
		}
	}

	accounts, _, err := svc.List(ctx, asAdmin, AccountListInput{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	seen := map[domain.Role]bool{}
	for _, a := range accounts {
		seen[a.Role] = true
	}
	if !seen[domain.RoleAdmin] || seen[domain.RoleUser] {
		t.Fatalf("admin default listing roles = %v", seen)
	}

	user := domain.RoleUser
	users, _, err := svc.List(ctx, asAdmin, AccountListInput{Role: &user})
	if err != nil || len(users) != 1 {
		t.Fatalf("USER filter = %v, %v", users, err)
	}

	if _, _, err := svc.List(ctx, asBroker, AccountListInput{}); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("broker list: got %v", err)
	}
}

func TestUpdateSettingsKeepsUnknownKeys(t *testing.T) {
	repo := seededAccounts(t)
	var stored domain.AccountSettings
	if err := stored.UnmarshalJSON([]byte(`{"general":{"brokerAdminAccess":false},"theme":"dark"}`)); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	repo.accounts[brokerID].Settings = stored
	svc := newTestAccountService(repo, nil)

	updated, err := svc.UpdateSettings(context.Background(), asAdmin, brokerID,
		domain.AccountSettings{General: domain.GeneralSettings{BrokerAdminAccess: true}})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if !updated.Settings.General.BrokerAdminAccess {
		t.Fatal("flag not applied")
	}
	if string(updated.Settings.Extra["theme"]) != `"dark"` {
		t.Fatalf("extra keys = %v", updated.Settings.Extra)
	}
}

func TestListBrokersCountsReferrals(t *testing.T) {
	repo := seededAccounts(t)
	repo.accounts[userID].ReferralAccountID = strPtr(brokerID)
	svc := newTestAccountService(repo, nil)

	brokers, err := svc.ListBrokers(context.Background(), asSupport, 10, 0)
	if err != nil {
		t.Fatalf("ListBrokers() error = %v", err)
	}
	if len(brokers) != 1 || brokers[0].ReferralCount != 1 {
		t.Fatalf("brokers = %+v", brokers)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newTestAccountService(repo, nil)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "Admin", "root@example.com", "00000000000", "bootstrap-pw")
	if err != nil || !created {
		t.Fatalf("EnsureAdmin() = %v, %v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "Admin", "root@example.com", "00000000000", "bootstrap-pw")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin() = %v, %v", created, err)
	}
	if repo.count() != 1 {
		t.Fatalf("accounts = %d, want 1", repo.count())
	}
}
