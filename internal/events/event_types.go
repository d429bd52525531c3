package events

import (
	"time"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLogin                 EventType = "login"
	EventLogout                EventType = "logout"
	EventAccountCreated        EventType = "account_created"
	EventAccountDeleted        EventType = "account_deleted"
	EventAccountPromoted       EventType = "account_promoted"
	EventAccountSettingsChange EventType = "account_settings_changed"
	EventProposalStatusChanged EventType = "proposal_status_changed"
)

// Event represents a domain event emitted by services. ActorID is the
// account performing the action, SubjectID the record it touched.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountPayload describes the account touched by an account event.
type AccountPayload struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// ProposalStatusChangedPayload payload.
type ProposalStatusChangedPayload struct {
	OldStatus domain.ProposalStatus `json:"old_status"`
	NewStatus domain.ProposalStatus `json:"new_status"`
	Comment   string                `json:"comment,omitempty"`
}
