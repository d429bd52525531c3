package domain

import "time"

// ActivityType captures the kind of back-office action recorded.
type ActivityType string

const (
	ActivityLogin          ActivityType = "LOGIN"
	ActivityLogout         ActivityType = "LOGOUT"
	ActivityCreateProposal ActivityType = "CREATE_PROPOSAL"
	ActivityUpdateProposal ActivityType = "UPDATE_PROPOSAL"
	ActivityDeleteProposal ActivityType = "DELETE_PROPOSAL"
	ActivityCreateBroker   ActivityType = "CREATE_BROKER"
	ActivityUpdateBroker   ActivityType = "UPDATE_BROKER"
	ActivityDeleteBroker   ActivityType = "DELETE_BROKER"
	ActivityCreateUser     ActivityType = "CREATE_USER"
	ActivityDeleteUser     ActivityType = "DELETE_USER"
)

// Activity is an immutable audit entry tied to an account.
type Activity struct {
	ID          string
	AccountID   string
	Type        ActivityType
	Description string
	CreatedAt   time.Time
}
