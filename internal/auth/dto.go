package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/mirelletran/fangallery-backend/pkg/db/models"
)

// RegisterRequest contains the payload for creating an admin account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=10"`
	DisplayName string `json:"display_name" validate:"required"`
}

// RegisterResponse acknowledges the pending verification.
type RegisterResponse struct {
	Email string `json:"email"`
}

// VerifyRequest carries the emailed code back to the server.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

// LoginRequest contains admin credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the token pair plus the authenticated admin.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	Admin        AdminDTO `json:"admin"`
}

// RefreshRequest rotates an existing session. The access token may be expired.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the replacement token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AdminDTO is the outward-facing shape of an admin account.
type AdminDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FromModel maps a stored admin onto the response DTO.
func FromModel(admin *models.AdminUser) AdminDTO {
	return AdminDTO{
		ID:          admin.ID,
		Email:       admin.Email,
		DisplayName: admin.DisplayName,
		VerifiedAt:  admin.VerifiedAt,
		CreatedAt:   admin.CreatedAt,
	}
}
