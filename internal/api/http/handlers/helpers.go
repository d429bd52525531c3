package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loan-backoffice/internal/api/dto"
	"github.com/spec-kit/loan-backoffice/internal/auth"
	"github.com/spec-kit/loan-backoffice/internal/domain"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

const defaultPageSize = 20

type pagination struct {
	Page     int
	PageSize int
}

func (p pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p pagination) Meta(total int) dto.PageMeta {
	return dto.PageMeta{Page: p.Page, PageSize: p.PageSize, Total: total}
}

func parsePagination(c *fiber.Ctx) pagination {
	return pagination{
		Page:     parseInt(c.Query("page"), 1),
		PageSize: parseInt(c.Query("page_size"), defaultPageSize),
	}
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func currentSession(c *fiber.Ctx) (domain.Session, error) {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return domain.Session{}, apperrors.NewUnauthenticated("authentication required")
	}
	return session, nil
}

func malformedBody(err error) error {
	return apperrors.NewValidationError("malformed request body", map[string]any{"reason": err.Error()})
}
