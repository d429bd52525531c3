package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loan-backoffice/internal/domain"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

// RequireRoles narrows a gated route to the given roles. It must run after
// one of the Gate handlers.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if _, exists := allowedSet[session.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
