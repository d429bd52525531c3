package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loan-backoffice/internal/api/dto"
	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/service"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

// UsersHandler exposes account management endpoints.
type UsersHandler struct {
	service *service.AccountService
}

// NewUsersHandler constructs a UsersHandler.
func NewUsersHandler(svc *service.AccountService) *UsersHandler {
	return &UsersHandler{service: svc}
}

// List returns accounts visible to the caller.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}

	page := parsePagination(c)
	input := service.AccountListInput{
		Search: strings.TrimSpace(c.Query("search")),
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}
	if raw := strings.TrimSpace(c.Query("role")); raw != "" {
		role := domain.Role(strings.ToUpper(raw))
		if !role.Valid() {
			return apperrors.NewValidationError("invalid role filter", map[string]any{"role": raw})
		}
		input.Role = &role
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.AccountStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return apperrors.NewValidationError("invalid status filter", map[string]any{"status": raw})
		}
		input.Status = &status
	}

	accounts, total, err := h.service.List(c.UserContext(), session, input)
	if err != nil {
		return err
	}
	resp := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, dto.NewAccountResponse(&accounts[i]))
	}
	return c.JSON(fiber.Map{"data": resp, "meta": page.Meta(total)})
}

// Get returns a single account.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	account, err := h.service.Get(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// Create registers a new account.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}

	var req dto.CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedBody(err)
	}
	account, err := h.service.Create(c.UserContext(), session, service.CreateAccountInput{
		Name:              req.Name,
		Email:             req.Email,
		CPF:               req.CPF,
		Phone:             req.Phone,
		Password:          req.Password,
		Role:              req.Role,
		ReferralAccountID: req.ReferralAccountID,
		Settings:          req.Settings,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// Delete removes an account. ADMIN accounts are never removed.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UpgradeToBroker promotes a USER account to BROKER.
func (h *UsersHandler) UpgradeToBroker(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	account, err := h.service.PromoteToBroker(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// UpdateSettings replaces per-account settings flags.
func (h *UsersHandler) UpdateSettings(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAccountSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedBody(err)
	}
	account, err := h.service.UpdateSettings(c.UserContext(), session, c.Params("id"), req.Settings)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// Brokers lists BROKER accounts with their referral counts.
func (h *UsersHandler) Brokers(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	page := parsePagination(c)
	brokers, err := h.service.ListBrokers(c.UserContext(), session, page.PageSize, page.Offset())
	if err != nil {
		return err
	}
	resp := make([]dto.BrokerResponse, 0, len(brokers))
	for i := range brokers {
		resp = append(resp, dto.BrokerResponse{
			AccountResponse: dto.NewAccountResponse(&brokers[i].Account),
			ReferralCount:   brokers[i].ReferralCount,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
