package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loan-backoffice/internal/api/dto"
	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/service"
)

// ProposalsHandler exposes loan proposal endpoints.
type ProposalsHandler struct {
	service *service.ProposalService
}

// NewProposalsHandler constructs the handler.
func NewProposalsHandler(svc *service.ProposalService) *ProposalsHandler {
	return &ProposalsHandler{service: svc}
}

// List returns proposals visible to the caller.
func (h *ProposalsHandler) List(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	page := parsePagination(c)
	input := service.ProposalListInput{Limit: page.PageSize, Offset: page.Offset()}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.ProposalStatus(strings.ToUpper(raw))
		input.Status = &status
	}

	proposals, total, err := h.service.List(c.UserContext(), session, input)
	if err != nil {
		return err
	}
	resp := make([]dto.ProposalResponse, 0, len(proposals))
	for i := range proposals {
		resp = append(resp, dto.NewProposalResponse(&proposals[i]))
	}
	return c.JSON(fiber.Map{"data": resp, "meta": page.Meta(total)})
}

// Get returns one proposal.
func (h *ProposalsHandler) Get(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	proposal, err := h.service.Get(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProposalResponse(proposal)})
}

// UpdateStatus changes the status of a proposal.
func (h *ProposalsHandler) UpdateStatus(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProposalStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return malformedBody(err)
	}
	status := domain.ProposalStatus(strings.ToUpper(string(req.Status)))
	proposal, err := h.service.UpdateStatus(c.UserContext(), session, c.Params("id"), status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProposalResponse(proposal)})
}
