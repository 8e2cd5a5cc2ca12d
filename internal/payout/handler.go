// AngelaMos | 2026
// handler.go

package payout

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
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
	r.Route("/payouts", func(r chi.Router) {
		r.Use(authenticator)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/request", h.Request)
			r.Get("/me", h.ListMine)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/", h.ListAll)
			r.Post("/{payoutID}/approve", h.Approve)
			r.Post("/{payoutID}/reject", h.Reject)
		})
	})
}

func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	detail, err := h.service.Request(r.Context(), middleware.GetActor(r.Context()), req)
	if err != nil {
		core.WriteError(w, err, "booking")
		return
	}

	core.Created(w, ToPayoutResponse(detail))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListMine(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		core.WriteError(w, err, "payout request")
		return
	}

	core.OK(w, ToPayoutResponseList(details))
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListAll(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPayoutResponseList(details))
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id int64, note *string) (*Detail, error),
) {
	id, err := strconv.ParseInt(chi.URLParam(r, "payoutID"), 10, 64)
	if err != nil || id <= 0 {
		core.BadRequest(w, "invalid payout request id")
		return
	}

	// The body is optional.
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	detail, err := apply(r.Context(), id, req.Note)
	if err != nil {
		core.WriteError(w, err, "payout request")
		return
	}

	core.OK(w, ToPayoutResponse(detail))
}
