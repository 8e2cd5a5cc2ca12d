// AngelaMos | 2026
// service.go

package car

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
	"github.com/carterperez-dev/car-rental-backend/internal/upload"
)

// ImageStore persists inline images and hands back the path they are
// served from.
type ImageStore interface {
	SaveDataURL(dataURL, namePrefix string) (string, error)
	Remove(urlPath string) error
}

type Service struct {
	repo    Repository
	readers *mirror.Picker[Reader]
	mirror  mirror.Mirror
	hooks   *mirror.Hooks
	images  ImageStore
}

func NewService(
	repo Repository,
	readers *mirror.Picker[Reader],
	m mirror.Mirror,
	hooks *mirror.Hooks,
	images ImageStore,
) *Service {
	return &Service{
		repo:    repo,
		readers: readers,
		mirror:  m,
		hooks:   hooks,
		images:  images,
	}
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Car, error) {
	cars, _, err := mirror.ReadWithFallback(ctx, s.readers, "car.List",
		func(ctx context.Context, r Reader) ([]Car, error) {
			return r.List(ctx, params)
		},
	)
	return cars, err
}

func (s *Service) Get(ctx context.Context, id ident.ID) (*Car, error) {
	car, _, err := mirror.ReadWithFallback(ctx, s.readers, "car.GetByID",
		func(ctx context.Context, r Reader) (*Car, error) {
			return r.GetByID(ctx, id)
		},
	)
	return car, err
}

// Availability evaluates every listed car against [start, end). Cars and
// their booking windows come from the same store.
func (s *Service) Availability(
	ctx context.Context,
	params ListParams,
	start, end string,
) ([]AvailabilityResponse, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	out, _, err := mirror.ReadWithFallback(ctx, s.readers, "car.Availability",
		func(ctx context.Context, r Reader) ([]AvailabilityResponse, error) {
			cars, err := r.List(ctx, params)
			if err != nil {
				return nil, err
			}

			ids := make([]int64, 0, len(cars))
			for i := range cars {
				if cars[i].ID != 0 {
					ids = append(ids, cars[i].ID)
				}
			}

			windows, err := r.Windows(ctx, ids)
			if err != nil {
				return nil, err
			}

			byCar := make(map[int64][]Window, len(ids))
			for _, w := range windows {
				byCar[w.CarID] = append(byCar[w.CarID], w)
			}

			resp := make([]AvailabilityResponse, 0, len(cars))
			for i := range cars {
				c := &cars[i]
				resp = append(resp, AvailabilityResponse{
					ID:                c.PublicID(),
					AvailableForRange: AvailableForRange(c, byCar[c.ID], start, end),
				})
			}
			return resp, nil
		},
	)
	return out, err
}

// GetForBooking returns a live primary car. Bookings may only reference
// cars the relational store knows.
func (s *Service) GetForBooking(ctx context.Context, id int64) (*Car, error) {
	return s.repo.GetByID(ctx, id)
}

// Lookup resolves car ids through r's store. Booking reads use it so that
// embedded summaries come from the store that served the bookings.
func Lookup(ctx context.Context, r Reader, ids []int64) (map[int64]*Car, error) {
	cars, err := r.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]*Car, len(cars))
	for i := range cars {
		out[cars[i].ID] = &cars[i]
	}
	return out, nil
}

func (s *Service) Create(
	ctx context.Context,
	actor middleware.Actor,
	req CreateCarRequest,
) (*Car, error) {
	car := &Car{
		Name:         req.Name,
		Type:         req.Type,
		Fuel:         req.Fuel,
		Transmission: req.Transmission,
		PricePerDay:  req.PricePerDay,
		Rating:       req.Rating,
		Seats:        req.Seats,
		City:         req.City,
		Brand:        req.Brand,
		Description:  req.Description,
		Available:    true,
	}
	if req.Available != nil {
		car.Available = *req.Available
	}

	switch {
	case actor.IsAdmin():
		car.HostID = req.HostID
	case actor.IsUser() && actor.Role == middleware.RoleHost:
		hostID := actor.ID
		car.HostID = &hostID
	default:
		return nil, fmt.Errorf("create car: %w", core.ErrForbidden)
	}

	image, err := s.storeImage(req.Image)
	if err != nil {
		return nil, err
	}
	car.Image = image

	if err := s.repo.Create(ctx, car); err != nil {
		s.discardImage(image, req.Image)
		return nil, err
	}

	s.mirrorCar(ctx, "car.create", car)

	return car, nil
}

func (s *Service) Update(
	ctx context.Context,
	actor middleware.Actor,
	id ident.ID,
	req UpdateCarRequest,
) (*Car, error) {
	car, err := s.ownedCar(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(car, req)

	previous := car.Image
	if req.Image != nil {
		image, err := s.storeImage(*req.Image)
		if err != nil {
			return nil, err
		}
		car.Image = image
	}

	if err := s.repo.Update(ctx, car); err != nil {
		if req.Image != nil {
			s.discardImage(car.Image, *req.Image)
		}
		return nil, err
	}

	if req.Image != nil && previous != car.Image {
		s.removeImage(previous)
	}

	s.mirrorCar(ctx, "car.update", car)

	return car, nil
}

func (s *Service) Delete(
	ctx context.Context,
	actor middleware.Actor,
	id ident.ID,
) error {
	car, err := s.ownedCar(ctx, actor, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.SoftDelete(ctx, car.ID)
	if err != nil {
		return err
	}

	s.mirrorCar(ctx, "car.delete", deleted)

	return nil
}

func (s *Service) ownedCar(
	ctx context.Context,
	actor middleware.Actor,
	id ident.ID,
) (*Car, error) {
	n, ok := id.PrimaryID()
	if !ok {
		return nil, fmt.Errorf("car %s: %w", id, core.ErrNotFound)
	}

	car, err := s.repo.GetByID(ctx, n)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !(actor.IsUser() && car.HostedBy(actor.ID)) {
		return nil, fmt.Errorf("car %d: %w", n, core.ErrForbidden)
	}

	return car, nil
}

func applyUpdate(car *Car, req UpdateCarRequest) {
	if req.Name != nil {
		car.Name = *req.Name
	}
	if req.Type != nil {
		car.Type = *req.Type
	}
	if req.Fuel != nil {
		car.Fuel = *req.Fuel
	}
	if req.Transmission != nil {
		car.Transmission = *req.Transmission
	}
	if req.PricePerDay != nil {
		car.PricePerDay = *req.PricePerDay
	}
	if req.Rating != nil {
		car.Rating = *req.Rating
	}
	if req.Seats != nil {
		car.Seats = *req.Seats
	}
	if req.City != nil {
		car.City = *req.City
	}
	if req.Brand != nil {
		car.Brand = *req.Brand
	}
	if req.Description != nil {
		car.Description = *req.Description
	}
	if req.Available != nil {
		car.Available = *req.Available
	}
}

// storeImage persists an inline data URL and returns its served path.
// Anything else is kept as given.
func (s *Service) storeImage(image string) (string, error) {
	if !upload.IsDataURL(image) || s.images == nil {
		return image, nil
	}

	path, err := s.images.SaveDataURL(image, "car")
	if err != nil {
		return "", fmt.Errorf("store car image: %w", err)
	}
	return path, nil
}

func (s *Service) discardImage(stored, given string) {
	if stored != given {
		s.removeImage(stored)
	}
}

func (s *Service) removeImage(path string) {
	if s.images == nil || path == "" {
		return
	}
	if err := s.images.Remove(path); err != nil {
		slog.Warn("remove car image", "path", path, "error", err)
	}
}

func (s *Service) mirrorCar(ctx context.Context, hook string, car *Car) {
	s.hooks.RunFor(ctx, mirror.Key(mirror.KindCars, car.ID), hook,
		mirror.UpsertHook(s.mirror, mirror.KindCars, car.ID, *car),
	)
}
