// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/ident"
)

type UpdateMeRequest struct {
	FullName *string `json:"fullName,omitempty" validate:"omitempty,min=1,max=100"`
	Mobile   *string `json:"mobile,omitempty"   validate:"omitempty,max=32"`
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user host admin"`
}

type UpdateUserActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type UserResponse struct {
	ID        ident.ID  `json:"id"`
	Email     string    `json:"email"`
	Mobile    *string   `json:"mobile"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the user shape embedded in booking responses.
type Summary struct {
	ID       ident.ID `json:"id"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Mobile   *string  `json:"mobile"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Role     string `json:"role"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.PublicID(),
		Email:     u.Email,
		Mobile:    u.Mobile,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}

func ToSummary(u *User) *Summary {
	if u == nil {
		return nil
	}
	return &Summary{
		ID:       u.PublicID(),
		FullName: u.FullName,
		Email:    u.Email,
		Mobile:   u.Mobile,
	}
}
