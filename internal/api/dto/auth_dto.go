package dto

import (
	"time"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// LoginRequest payload for login. Accepted as JSON or as a form post.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse is returned to JSON clients after a successful login.
type LoginResponse struct {
	User     *domain.Identity `json:"user"`
	Auth     AuthResponse     `json:"auth"`
	Redirect string           `json:"redirect"`
}

// SessionResponse describes the decoded session of the caller.
type SessionResponse struct {
	AccountID string                 `json:"id"`
	Role      domain.Role            `json:"role"`
	Settings  domain.AccountSettings `json:"settings"`
	IssuedAt  time.Time              `json:"issued_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// NewSessionResponse maps a session for output.
func NewSessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{
		AccountID: s.AccountID,
		Role:      s.Role,
		Settings:  s.Settings,
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
	}
}
