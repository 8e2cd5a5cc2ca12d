// AngelaMos | 2026
// service.go

package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/carterperez-dev/car-rental-backend/internal/booking"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/events"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

// BookingProvider resolves the relational booking a payout claims.
type BookingProvider interface {
	GetForPayout(ctx context.Context, id int64) (*booking.Detail, error)
}

type Publisher interface {
	Hook(name string, data any) func(ctx context.Context) error
}

type Service struct {
	repo     Repository
	readers  *mirror.Picker[Reader]
	bookings BookingProvider
	events   Publisher
	mirror   mirror.Mirror
	hooks    *mirror.Hooks
}

func NewService(
	repo Repository,
	readers *mirror.Picker[Reader],
	bookings BookingProvider,
	publisher Publisher,
	m mirror.Mirror,
	hooks *mirror.Hooks,
) *Service {
	return &Service{
		repo:     repo,
		readers:  readers,
		bookings: bookings,
		events:   publisher,
		mirror:   m,
		hooks:    hooks,
	}
}

// Request files a payout for a booking on one of the actor's cars. The
// amount defaults to the booking total.
func (s *Service) Request(
	ctx context.Context,
	actor middleware.Actor,
	req CreateRequest,
) (*Detail, error) {
	if !actor.IsUser() || actor.ID == 0 {
		return nil, fmt.Errorf("request payout: %w", core.ErrForbidden)
	}

	detail, err := s.bookings.GetForPayout(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if detail.Car == nil || !detail.Car.HostedBy(actor.ID) {
		return nil, core.ForbiddenError("only the host of the booked car can request a payout")
	}

	pending, err := s.repo.HasPending(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, core.ConflictError("a payout request is already pending for this booking")
	}

	p := &PayoutRequest{
		BookingID: req.BookingID,
		HostID:    actor.ID,
		Amount:    detail.Booking.TotalCost,
	}
	if req.Amount != nil {
		p.Amount = *req.Amount
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, core.ConflictError("a payout request is already pending for this booking")
		}
		return nil, err
	}

	result := &Detail{Request: *p, Booking: &detail.Booking}
	s.publish(ctx, "payout.request", events.PayoutRequestCreated, result)

	return result, nil
}

func (s *Service) ListMine(ctx context.Context, actor middleware.Actor) ([]Detail, error) {
	if !actor.IsUser() || actor.ID == 0 {
		return nil, fmt.Errorf("list payouts: %w", core.ErrForbidden)
	}
	return s.list(ctx, "payout.ListMine", actor.ID)
}

func (s *Service) ListAll(ctx context.Context) ([]Detail, error) {
	return s.list(ctx, "payout.ListAll", 0)
}

func (s *Service) list(ctx context.Context, op string, hostID int64) ([]Detail, error) {
	details, _, err := mirror.ReadWithFallback(ctx, s.readers, op,
		func(ctx context.Context, r Reader) ([]Detail, error) {
			requests, err := r.List(ctx, hostID)
			if err != nil {
				return nil, err
			}
			return enrich(ctx, r, requests)
		},
	)
	return details, err
}

func (s *Service) Approve(ctx context.Context, id int64, note *string) (*Detail, error) {
	return s.decide(ctx, id, StatusApproved, note)
}

func (s *Service) Reject(ctx context.Context, id int64, note *string) (*Detail, error) {
	return s.decide(ctx, id, StatusRejected, note)
}

func (s *Service) decide(ctx context.Context, id int64, status string, note *string) (*Detail, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, notPending(current.Status)
	}

	updated, err := s.repo.Transition(ctx, id, status, note)
	if errors.Is(err, core.ErrInvalidState) {
		return nil, notPending("decided")
	}
	if err != nil {
		return nil, err
	}

	details, err := enrich(ctx, s.readers.Primary(), []PayoutRequest{*updated})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "payout."+status, events.PayoutRequestUpdated, &details[0])

	return &details[0], nil
}

func (s *Service) publish(ctx context.Context, hook, event string, d *Detail) {
	s.hooks.RunFor(ctx, mirror.Key(mirror.KindPayouts, d.Request.ID), hook,
		mirror.UpsertHook(s.mirror, mirror.KindPayouts, d.Request.ID, d.Request),
		s.events.Hook(event, ToPayoutResponse(d)),
	)
}

func notPending(status string) error {
	return core.BusinessError("INVALID_STATE", "payout request is already "+status)
}

// enrich attaches bookings read through r, so a payout list never mixes
// stores.
func enrich(ctx context.Context, r Reader, requests []PayoutRequest) ([]Detail, error) {
	ids := make([]int64, 0, len(requests))
	seen := make(map[int64]bool, len(requests))
	for i := range requests {
		if id := requests[i].BookingID; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	bookings, err := booking.Lookup(ctx, r.Bookings(), ids)
	if err != nil {
		return nil, err
	}

	details := make([]Detail, 0, len(requests))
	for i := range requests {
		details = append(details, Detail{
			Request: requests[i],
			Booking: bookings[requests[i].BookingID],
		})
	}
	return details, nil
}
