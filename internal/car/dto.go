// AngelaMos | 2026
// dto.go

package car

import (
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/ident"
)

type CreateCarRequest struct {
	Name         string  `json:"name"         validate:"required,min=1,max=120"`
	Type         string  `json:"type"         validate:"max=50"`
	Fuel         string  `json:"fuel"         validate:"max=50"`
	Transmission string  `json:"transmission" validate:"max=50"`
	PricePerDay  int     `json:"pricePerDay"  validate:"gte=0"`
	Rating       float64 `json:"rating"       validate:"gte=0,lte=5"`
	Seats        int     `json:"seats"        validate:"gte=0,lte=100"`
	Image        string  `json:"image"`
	City         string  `json:"city"         validate:"max=100"`
	Brand        string  `json:"brand"        validate:"max=100"`
	Description  string  `json:"description"  validate:"max=5000"`
	Available    *bool   `json:"available"`
	HostID       *int64  `json:"hostId"       validate:"omitempty,gt=0"`
}

type UpdateCarRequest struct {
	Name         *string  `json:"name"         validate:"omitempty,min=1,max=120"`
	Type         *string  `json:"type"         validate:"omitempty,max=50"`
	Fuel         *string  `json:"fuel"         validate:"omitempty,max=50"`
	Transmission *string  `json:"transmission" validate:"omitempty,max=50"`
	PricePerDay  *int     `json:"pricePerDay"  validate:"omitempty,gte=0"`
	Rating       *float64 `json:"rating"       validate:"omitempty,gte=0,lte=5"`
	Seats        *int     `json:"seats"        validate:"omitempty,gte=0,lte=100"`
	Image        *string  `json:"image"`
	City         *string  `json:"city"         validate:"omitempty,max=100"`
	Brand        *string  `json:"brand"        validate:"omitempty,max=100"`
	Description  *string  `json:"description"  validate:"omitempty,max=5000"`
	Available    *bool    `json:"available"`
}

type ListParams struct {
	City         string
	Type         string
	Fuel         string
	Transmission string
	HostID       int64
}

type CarResponse struct {
	ID           ident.ID  `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Fuel         string    `json:"fuel"`
	Transmission string    `json:"transmission"`
	PricePerDay  int       `json:"pricePerDay"`
	Rating       float64   `json:"rating"`
	Seats        int       `json:"seats"`
	Image        string    `json:"image"`
	City         string    `json:"city"`
	Brand        string    `json:"brand"`
	Description  string    `json:"description"`
	Available    bool      `json:"available"`
	HostID       *int64    `json:"hostId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the car shape embedded in booking responses.
type Summary struct {
	ID          ident.ID `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand"`
	City        string   `json:"city"`
	Image       string   `json:"image"`
	PricePerDay int      `json:"pricePerDay"`
	HostID      *int64   `json:"hostId"`
}

type AvailabilityResponse struct {
	ID                ident.ID `json:"id"`
	AvailableForRange bool     `json:"availableForRange"`
}

func ToCarResponse(c *Car) CarResponse {
	return CarResponse{
		ID:           c.PublicID(),
		Name:         c.Name,
		Type:         c.Type,
		Fuel:         c.Fuel,
		Transmission: c.Transmission,
		PricePerDay:  c.PricePerDay,
		Rating:       c.Rating,
		Seats:        c.Seats,
		Image:        c.Image,
		City:         c.City,
		Brand:        c.Brand,
		Description:  c.Description,
		Available:    c.Available,
		HostID:       c.HostID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func ToCarResponseList(cars []Car) []CarResponse {
	responses := make([]CarResponse, 0, len(cars))
	for i := range cars {
		responses = append(responses, ToCarResponse(&cars[i]))
	}
	return responses
}

func ToSummary(c *Car) *Summary {
	if c == nil {
		return nil
	}
	return &Summary{
		ID:          c.PublicID(),
		Name:        c.Name,
		Brand:       c.Brand,
		City:        c.City,
		Image:       c.Image,
		PricePerDay: c.PricePerDay,
		HostID:      c.HostID,
	}
}
