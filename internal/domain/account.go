package domain

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// Role determines which back-office sections an account can reach.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleBroker  Role = "BROKER"
	RoleSupport Role = "SUPPORT"
	RoleUser    Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBroker, RoleSupport, RoleUser:
		return true
	default:
		return false
	}
}

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusInactive  AccountStatus = "INACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended:
		return true
	default:
		return false
	}
}

// Account is an identity record with credentials and a role.
type Account struct {
	ID                string
	Email             *string
	Name              string
	CPF               string
	Phone             *string
	PasswordHash      string
	Role              Role
	Status            AccountStatus
	ReferralAccountID *string
	ReferralName      *string
	SellerURL         *string
	Settings          AccountSettings
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Identity is the projection handed out after a successful login.
// It never carries the password hash.
type Identity struct {
	ID       string          `json:"id"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Role     Role            `json:"role"`
	Settings AccountSettings `json:"-"`
}

// IdentityOf projects an account for session issuance.
func IdentityOf(a *Account) *Identity {
	id := &Identity{
		ID:       a.ID,
		Name:     a.Name,
		Role:     a.Role,
		Settings: a.Settings,
	}
	if a.Email != nil {
		id.Email = *a.Email
	}
	return id
}

// GeneralSettings holds the per-account feature flags.
type GeneralSettings struct {
	BrokerAdminAccess bool `json:"brokerAdminAccess"`
}

// AccountSettings is the per-account JSON settings blob. Keys other than
// "general" are kept as raw JSON so they survive a round trip.
type AccountSettings struct {
	General GeneralSettings
	Extra   map[string]json.RawMessage
}

// MarshalJSON flattens Extra next to "general".
func (s AccountSettings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+1)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["general"] = s.General
	return json.Marshal(out)
}

// UnmarshalJSON accepts null and unknown keys.
func (s *AccountSettings) UnmarshalJSON(data []byte) error {
	*s = AccountSettings{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if general, ok := raw["general"]; ok {
		if err := json.Unmarshal(general, &s.General); err != nil {
			return err
		}
		delete(raw, "general")
	}
	if len(raw) > 0 {
		s.Extra = raw
	}
	return nil
}

// NormalizeCPF strips everything but digits from a national id.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	for _, r := range cpf {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BrokerSummary is a broker account with the number of accounts it referred.
type BrokerSummary struct {
	Account       Account
	ReferralCount int
}
