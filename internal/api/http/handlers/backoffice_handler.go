package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loan-backoffice/internal/api/dto"
	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/service"
)

// BackofficeHandler serves the dashboard, settings and log endpoints.
type BackofficeHandler struct {
	service  *service.BackofficeService
	activity *service.ActivityService
}

// NewBackofficeHandler constructs the handler.
func NewBackofficeHandler(svc *service.BackofficeService, activity *service.ActivityService) *BackofficeHandler {
	return &BackofficeHandler{service: svc, activity: activity}
}

// Summary returns dashboard counters.
func (h *BackofficeHandler) Summary(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// GetSettings returns the application settings document.
func (h *BackofficeHandler) GetSettings(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	settings, err := h.service.Settings(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SettingsResponse{Document: settings.Document, UpdatedAt: settings.UpdatedAt}})
}

// UpdateSettings replaces the application settings document.
func (h *BackofficeHandler) UpdateSettings(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var document map[string]any
	if err := json.Unmarshal(c.Body(), &document); err != nil {
		return malformedBody(err)
	}
	settings, err := h.service.UpdateSettings(c.UserContext(), session, document)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SettingsResponse{Document: settings.Document, UpdatedAt: settings.UpdatedAt}})
}

// Logs lists system log rows, optionally filtered by type.
func (h *BackofficeHandler) Logs(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	page := parsePagination(c)
	var logType *domain.LogType
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		t := domain.LogType(strings.ToUpper(raw))
		logType = &t
	}
	entries, err := h.service.Logs(c.UserContext(), session, logType, page.PageSize, page.Offset())
	if err != nil {
		return err
	}
	resp := make([]dto.LogResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.LogResponse{
			ID:         e.ID,
			ProposalID: e.ProposalID,
			Type:       e.Type,
			Message:    e.Message,
			Metadata:   e.Metadata,
			CreatedAt:  e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Activities returns the recent activity feed.
func (h *BackofficeHandler) Activities(c *fiber.Ctx) error {
	if _, err := currentSession(c); err != nil {
		return err
	}
	page := parsePagination(c)
	activities, err := h.activity.ListRecent(c.UserContext(), page.PageSize, page.Offset())
	if err != nil {
		return err
	}
	resp := make([]dto.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		resp = append(resp, dto.ActivityResponse{
			ID:          a.ID,
			AccountID:   a.AccountID,
			Type:        a.Type,
			Description: a.Description,
			CreatedAt:   a.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}
