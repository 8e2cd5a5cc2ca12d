// AngelaMos | 2026
// dto.go

package message

import (
	"time"
)

type CreateMessageRequest struct {
	Name    string `json:"name"    validate:"required,min=1,max=100"`
	Email   string `json:"email"   validate:"required,email,max=255"`
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

type ReplyRequest struct {
	Reply string `json:"reply" validate:"required,min=1,max=5000"`
}

type ListParams struct {
	Page     int
	PageSize int
	Status   string
}

func (p *ListParams) Normalize() {
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

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type MessageResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Message   string     `json:"message"`
	Status    string     `json:"status"`
	Reply     *string    `json:"reply"`
	RepliedAt *time.Time `json:"repliedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		Status:    m.Status,
		Reply:     m.Reply,
		RepliedAt: m.RepliedAt,
		CreatedAt: m.CreatedAt,
	}
}

func ToMessageResponseList(msgs []Message) []MessageResponse {
	responses := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		responses = append(responses, ToMessageResponse(&msgs[i]))
	}
	return responses
}
