package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
)

// RegisterRequest contains the payload for creating a new account.
type RegisterRequest struct {
	Name          string  `json:"name" validate:"required"`
	Email         string  `json:"email" validate:"required,email"`
	Password      string  `json:"password" validate:"required,min=8"`
	LicenseNumber *string `json:"license_number,omitempty"`
}

// LoginRequest contains the credentials payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest rotates a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest updates mutable profile fields.
type UpdateProfileRequest struct {
	Name          string  `json:"name" validate:"required"`
	LicenseNumber *string `json:"license_number,omitempty"`
}

// AccountResponse is the public shape of an account.
type AccountResponse struct {
	ID                 uuid.UUID                `json:"id"`
	Email              string                   `json:"email"`
	Name               string                   `json:"name"`
	LicenseNumber      *string                  `json:"license_number,omitempty"`
	ConsentAcceptedAt  *time.Time               `json:"consent_accepted_at,omitempty"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscription_status"`
	TrialEndAt         *time.Time               `json:"trial_end_at,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	Plan               *string                  `json:"plan,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
}

// LoginResponse carries the minted token pair plus the account snapshot.
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Account      AccountResponse `json:"account"`
}

// RefreshResponse carries a rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FromModel converts a stored account into its public shape.
func FromModel(account *models.Account) AccountResponse {
	return AccountResponse{
		ID:                 account.ID,
		Email:              account.Email,
		Name:               account.Name,
		LicenseNumber:      account.LicenseNumber,
		ConsentAcceptedAt:  account.ConsentAcceptedAt,
		SubscriptionStatus: account.SubscriptionStatus,
		TrialEndAt:         account.TrialEndAt,
		CurrentPeriodEnd:   account.CurrentPeriodEnd,
		Plan:               account.Plan,
		CreatedAt:          account.CreatedAt,
	}
}
