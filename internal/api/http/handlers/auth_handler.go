package handlers

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/loan-backoffice/internal/api/dto"
	"github.com/spec-kit/loan-backoffice/internal/auth"
	"github.com/spec-kit/loan-backoffice/internal/service"
	apperrors "github.com/spec-kit/loan-backoffice/pkg/util/errorutil"
)

// CookieSettings controls the session cookie written on login.
type CookieSettings struct {
	Name   string
	Secure bool
}

// AuthHandler serves sign-in, sign-out and session introspection.
type AuthHandler struct {
	service *service.AuthService
	policy  *auth.Policy
	cookie  CookieSettings
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *service.AuthService, policy *auth.Policy, cookie CookieSettings) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "session_token"
	}
	return &AuthHandler{service: svc, policy: policy, cookie: cookie}
}

// Login authenticates email/password. JSON clients receive the token in the
// body; form posts are redirected to the landing page for the role.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	form := isFormPost(c)

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		if form {
			return h.signInError(c, "invalid_request")
		}
		return malformedBody(err)
	}
	if details := missingCredentials(req); len(details) > 0 {
		if form {
			return h.signInError(c, "invalid_request")
		}
		return apperrors.NewValidationError("email and password are required", details)
	}

	result, err := h.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if form {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				return h.signInError(c, "invalid_credentials")
			case errors.Is(err, apperrors.ErrTooManyAttempts):
				return h.signInError(c, "too_many_attempts")
			}
		}
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(h.service.TokenManager().TTL().Seconds()),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	landing := h.policy.Landing(result.Identity.Role, result.Identity.Settings)
	if form {
		return c.Redirect(landing, fiber.StatusFound)
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		User:     result.Identity,
		Auth:     dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
		Redirect: landing,
	}})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(h.cookie.Name); token != "" {
		if claims, err := h.service.TokenManager().Parse(token); err == nil {
			_ = h.service.Logout(c.UserContext(), claims.Session())
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if isFormPost(c) {
		return c.Redirect(h.policy.SignInPath(), fiber.StatusFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Session returns the decoded claims of the caller.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSessionResponse(session)})
}

// Menu returns the navigation entries the caller may reach.
func (h *AuthHandler) Menu(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.policy.Menu(session.Role, session.Settings)})
}

func (h *AuthHandler) signInError(c *fiber.Ctx, reason string) error {
	return c.Redirect(h.policy.SignInPath()+"?error="+url.QueryEscape(reason), fiber.StatusFound)
}

func missingCredentials(req dto.LoginRequest) map[string]any {
	details := map[string]any{}
	if strings.TrimSpace(req.Email) == "" {
		details["email"] = "required"
	}
	if req.Password == "" {
		details["password"] = "required"
	}
	return details
}

func isFormPost(c *fiber.Ctx) bool {
	ct := strings.ToLower(string(c.Request().Header.ContentType()))
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}
