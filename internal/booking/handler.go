// AngelaMos | 2026
// handler.go

package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/bookings", func(r chi.Router) {
		r.Use(authenticator)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/", h.Create)
			r.Get("/me", h.ListMine)
			r.Get("/host", h.ListHost)
			r.Put("/{bookingID}/payment", h.UpdatePayment)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", h.ListAll)
			r.Delete("/{bookingID}", h.Delete)
		})

		r.Get("/{bookingID}", h.Get)
		r.Post("/{bookingID}/cancel", h.Cancel)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if req.CarID.IsZero() {
		core.BadRequest(w, "carId is required")
		return
	}

	detail, err := h.service.Create(r.Context(), middleware.GetActor(r.Context()), req)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	core.Created(w, ToBookingResponse(detail))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListMine(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToBookingResponseList(details))
}

func (h *Handler) ListHost(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListHost(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToBookingResponseList(details))
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListAll(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToBookingResponseList(details))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		core.WriteError(w, err, "booking")
		return
	}

	core.OK(w, ToBookingResponse(detail))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Cancel(r.Context(), middleware.GetActor(r.Context()), id)
	if err != nil {
		core.WriteError(w, err, "booking")
		return
	}

	core.OK(w, ToBookingResponse(detail))
}

func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var req UpdatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	detail, err := h.service.UpdatePayment(r.Context(), middleware.GetActor(r.Context()), id, req)
	if err != nil {
		core.WriteError(w, err, "booking")
		return
	}

	core.OK(w, ToBookingResponse(detail))
}

// Delete hard deletes a booking and its attachments.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		core.WriteError(w, err, "booking")
		return
	}

	core.NoContent(w)
}

func bookingID(w http.ResponseWriter, r *http.Request) (ident.ID, bool) {
	id, err := ident.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		core.BadRequest(w, "invalid booking id")
		return id, false
	}
	return id, true
}

func writeBookingError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrCarNotFound) {
		core.NotFound(w, "car")
		return
	}
	core.WriteError(w, err, "booking")
}
