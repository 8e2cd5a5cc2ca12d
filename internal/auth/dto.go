// AngelaMos | 2026
// dto.go

package auth

import (
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/ident"
)

type RequestOTPRequest struct {
	Email   string `json:"email"   validate:"required,email,max=255"`
	Purpose string `json:"purpose" validate:"required,oneof=login signup recovery"`
}

type RequestOTPResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type VerifyOTPRequest struct {
	Email    string `json:"email"              validate:"required,email,max=255"`
	Code     string `json:"code"               validate:"required,len=6,numeric"`
	Purpose  string `json:"purpose"            validate:"required,oneof=login signup recovery"`
	FullName string `json:"fullName,omitempty" validate:"omitempty,max=100"`
	Mobile   string `json:"mobile,omitempty"   validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"     validate:"required,min=8,max=128"`
}

type UserResponse struct {
	ID        ident.ID  `json:"id"`
	Email     string    `json:"email"`
	Mobile    *string   `json:"mobile"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:        ident.Primary(u.ID),
		Email:     u.Email,
		Mobile:    u.Mobile,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
