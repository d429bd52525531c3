package domain

import "time"

// Session is the decoded content of a session token. It reflects the
// account as it was at login time.
type Session struct {
	AccountID string
	Role      Role
	Settings  AccountSettings
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AppSettings is the single application-wide configuration document.
type AppSettings struct {
	ID        string
	Document  map[string]any
	UpdatedAt time.Time
}

// DefaultAppSettingsID is the key of the seeded settings row.
const DefaultAppSettingsID = "default"

// DefaultAppSettings returns the document written by seed-admin.
func DefaultAppSettings() map[string]any {
	return map[string]any{
		"appName":         "Fintech FGTS",
		"primaryColor":    "#0066FF",
		"logo":            "/images/logo.png",
		"maxLoanAmount":   10000,
		"minLoanAmount":   300,
		"maxInstallments": 12,
		"minInstallments": 3,
		"interestRate":    2.14,
		"iofDaily":        0.0082,
		"iofAdditional":   0.38,
		"cet":             2.95,
	}
}
