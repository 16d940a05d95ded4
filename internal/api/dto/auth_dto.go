package dto

import (
	"time"

	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// LoginRequest payload for pensioner login.
type LoginRequest struct {
	PensionerNumber string `json:"pensioner_number"`
	Password        string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID              string      `json:"id"`
	PensionerNumber string      `json:"pensioner_number"`
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	Role            domain.Role `json:"role"`
	FullName        string      `json:"full_name"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		PensionerNumber: u.PensionerNumber,
		Username:        u.Username,
		Email:           u.Email,
		Role:            u.Role,
		FullName:        u.Details.FullName(),
	}
}
