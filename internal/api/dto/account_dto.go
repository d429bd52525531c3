package dto

import (
	"time"

	"github.com/spec-kit/loan-backoffice/internal/domain"
)

// CreateAccountRequest payload.
type CreateAccountRequest struct {
	Name              string                  `json:"name"`
	Email             string                  `json:"email"`
	CPF               string                  `json:"cpf"`
	Phone             string                  `json:"phone"`
	Password          string                  `json:"password"`
	Role              domain.Role             `json:"role"`
	ReferralAccountID *string                 `json:"referral_account_id"`
	Settings          *domain.AccountSettings `json:"settings"`
}

// UpdateAccountSettingsRequest payload.
type UpdateAccountSettingsRequest struct {
	Settings domain.AccountSettings `json:"settings"`
}

// AccountResponse is the public view of an account. It has no password
// field.
type AccountResponse struct {
	ID                string                 `json:"id"`
	Email             *string                `json:"email"`
	Name              string                 `json:"name"`
	CPF               string                 `json:"cpf"`
	Phone             *string                `json:"phone"`
	Role              domain.Role            `json:"role"`
	Status            domain.AccountStatus   `json:"status"`
	ReferralAccountID *string                `json:"referral_account_id"`
	ReferralName      *string                `json:"referral_name"`
	SellerURL         *string                `json:"seller_url"`
	Settings          domain.AccountSettings `json:"settings"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// BrokerResponse is a broker with its referral count.
type BrokerResponse struct {
	AccountResponse
	ReferralCount int `json:"referral_count"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// NewAccountResponse maps a domain account.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID,
		Email:             a.Email,
		Name:              a.Name,
		CPF:               a.CPF,
		Phone:             a.Phone,
		Role:              a.Role,
		Status:            a.Status,
		ReferralAccountID: a.ReferralAccountID,
		ReferralName:      a.ReferralName,
		SellerURL:         a.SellerURL,
		Settings:          a.Settings,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
