package dto

import (
	"time"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// UpdateProposalStatusRequest payload.
type UpdateProposalStatusRequest struct {
	Status  domain.ProposalStatus `json:"status"`
	Comment string                `json:"comment"`
}

// ProposalResponse is the public view of a proposal.
type ProposalResponse struct {
	ID          string                `json:"id"`
	AccountID   string                `json:"account_id"`
	AccountName string                `json:"account_name"`
	Amount      float64               `json:"amount"`
	Status      domain.ProposalStatus `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewProposalResponse maps a domain proposal.
func NewProposalResponse(p *domain.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:          p.ID,
		AccountID:   p.AccountID,
		AccountName: p.AccountName,
		Amount:      p.Amount,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ActivityResponse is one entry of the activity feed.
type ActivityResponse struct {
	ID          string              `json:"id"`
	AccountID   string              `json:"account_id,omitempty"`
	Type        domain.ActivityType `json:"type"`
	Description string              `json:"description"`
	CreatedAt   time.Time           `json:"created_at"`
}

// LogResponse is one system log row.
type LogResponse struct {
	ID         string         `json:"id"`
	ProposalID *string        `json:"proposal_id"`
	Type       domain.LogType `json:"type"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SettingsResponse is the application settings document.
type SettingsResponse struct {
	Document  map[string]any `json:"settings"`
	UpdatedAt time.Time      `json:"updated_at"`
}
