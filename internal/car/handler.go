// AngelaMos | 2026
// handler.go

package car

import (
	"encoding/json"
	"net/http"
	"strconv"

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
	r.Route("/cars", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/availability", h.Availability)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.With(middleware.RequireUser).Get("/mine", h.Mine)
			r.Post("/", h.Create)
			r.Put("/{carID}", h.Update)
			r.Delete("/{carID}", h.Delete)
		})

		r.Get("/{carID}", h.Get)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r)
	if !ok {
		return
	}

	cars, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCarResponseList(cars))
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	cars, err := h.service.List(r.Context(), ListParams{
		HostID: middleware.GetUserID(r.Context()),
	})
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCarResponseList(cars))
}

// Availability answers, for every car matching the filters, whether it
// can be booked from pickup up to (not including) return.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pickup, ret := q.Get("pickup"), q.Get("return")
	if pickup == "" || ret == "" {
		core.BadRequest(w, "pickup and return are required")
		return
	}

	params, ok := listParams(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Availability(r.Context(), params, pickup, ret)
	if err != nil {
		core.WriteError(w, err, "car")
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := ident.Parse(chi.URLParam(r, "carID"))
	if err != nil {
		core.BadRequest(w, "invalid car id")
		return
	}

	car, err := h.service.Get(r.Context(), id)
	if err != nil {
		core.WriteError(w, err, "car")
		return
	}

	core.OK(w, ToCarResponse(car))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	car, err := h.service.Create(r.Context(), middleware.GetActor(r.Context()), req)
	if err != nil {
		core.WriteError(w, err, "car")
		return
	}

	core.Created(w, ToCarResponse(car))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := ident.Parse(chi.URLParam(r, "carID"))
	if err != nil {
		core.BadRequest(w, "invalid car id")
		return
	}

	var req UpdateCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	car, err := h.service.Update(r.Context(), middleware.GetActor(r.Context()), id, req)
	if err != nil {
		core.WriteError(w, err, "car")
		return
	}

	core.OK(w, ToCarResponse(car))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := ident.Parse(chi.URLParam(r, "carID"))
	if err != nil {
		core.BadRequest(w, "invalid car id")
		return
	}

	if err := h.service.Delete(r.Context(), middleware.GetActor(r.Context()), id); err != nil {
		core.WriteError(w, err, "car")
		return
	}

	core.NoContent(w)
}

func listParams(w http.ResponseWriter, r *http.Request) (ListParams, bool) {
	q := r.URL.Query()
	params := ListParams{
		City:         q.Get("city"),
		Type:         q.Get("type"),
		Fuel:         q.Get("fuel"),
		Transmission: q.Get("transmission"),
	}

	if host := q.Get("host"); host != "" {
		id, err := strconv.ParseInt(host, 10, 64)
		if err != nil || id <= 0 {
			core.BadRequest(w, "invalid host id")
			return params, false
		}
		params.HostID = id
	}

	return params, true
}
