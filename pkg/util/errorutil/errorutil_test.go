package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func TestSentinelMatchingByCode(t *testing.T) {
	err := fmt.Errorf("login: %w", NewInvalidCredentials())
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("wrapped invalid credentials should match sentinel")
	}
	if errors.Is(err, ErrConflictingAccount) {
		t.Fatal("invalid credentials must not match conflicting account")
	}
	if !errors.Is(NewInvariantViolation("admin", nil), ErrInvariantViolation) {
		t.Fatal("invariant violation should match sentinel")
	}
}

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "domain error passes through", err: NewConflictingAccount("dup", nil), wantCode: CodeConflictingAccount, wantStatus: http.StatusConflict},
		{name: "no rows", err: pgx.ErrNoRows, wantCode: CodeNotFound, wantStatus: http.StatusNotFound},
		{name: "fiber error", err: fiber.NewError(http.StatusBadRequest, "invalid payload"), wantCode: CodeValidation, wantStatus: http.StatusBadRequest},
		{name: "unknown error", err: errors.New("boom"), wantCode: CodeInternal, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.wantCode || got.HTTPStatus != tt.wantStatus {
				t.Fatalf("got %s/%d, want %s/%d", got.Code, got.HTTPStatus, tt.wantCode, tt.wantStatus)
			}
		})
	}

	if ToDomainError(nil) != nil {
		t.Fatal("nil error should map to nil")
	}
}

func TestInvalidCredentialsMessageIsGeneric(t *testing.T) {
	de := ToDomainError(NewInvalidCredentials())
	if de.Message != "invalid credentials" {
		t.Fatalf("message = %q", de.Message)
	}
	if de.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("status = %d", de.HTTPStatus)
	}
}
