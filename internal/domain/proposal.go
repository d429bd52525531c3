package domain

import "time"

// ProposalStatus enumerates proposal lifecycle states.
type ProposalStatus string

const (
	ProposalStatusPending    ProposalStatus = "PENDING"
	ProposalStatusProcessing ProposalStatus = "PROCESSING"
	ProposalStatusApproved   ProposalStatus = "APPROVED"
	ProposalStatusRejected   ProposalStatus = "REJECTED"
	ProposalStatusCancelled  ProposalStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusProcessing, ProposalStatusApproved,
		ProposalStatusRejected, ProposalStatusCancelled:
		return true
	default:
		return false
	}
}

// Proposal is a loan / FGTS advance request made by an account.
type Proposal struct {
	ID          string
	AccountID   string
	AccountName string
	ReferrerID  *string
	Amount      float64
	Status      ProposalStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LogType is the severity of a system log row.
type LogType string

const (
	LogInfo     LogType = "INFO"
	LogWarning  LogType = "WARNING"
	LogError    LogType = "ERROR"
	LogCritical LogType = "CRITICAL"
)

// LogEntry is a persisted operational log row, optionally tied to a proposal.
type LogEntry struct {
	ID         string
	ProposalID *string
	Type       LogType
	Message    string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	switch t {
	case LogInfo, LogWarning, LogError, LogCritical:
		return true
	default:
		return false
	}
}
