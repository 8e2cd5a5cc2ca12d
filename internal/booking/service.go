// AngelaMos | 2026
// service.go

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/car-rental-backend/internal/car"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/events"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
	"github.com/carterperez-dev/car-rental-backend/internal/user"
)

var ErrCarNotFound = errors.New("car not found")

// CarProvider resolves the car a new booking references.
type CarProvider interface {
	GetForBooking(ctx context.Context, id int64) (*car.Car, error)
}

type FileStore interface {
	SaveDataURL(dataURL, namePrefix string) (string, error)
	Remove(urlPath string) error
}

type Publisher interface {
	Hook(name string, data any) func(ctx context.Context) error
}

type Service struct {
	repo    Repository
	readers *mirror.Picker[Reader]
	cars    CarProvider
	files   FileStore
	events  Publisher
	mirror  mirror.Mirror
	hooks   *mirror.Hooks
}

func NewService(
	repo Repository,
	readers *mirror.Picker[Reader],
	cars CarProvider,
	files FileStore,
	publisher Publisher,
	m mirror.Mirror,
	hooks *mirror.Hooks,
) *Service {
	return &Service{
		repo:    repo,
		readers: readers,
		cars:    cars,
		files:   files,
		events:  publisher,
		mirror:  m,
		hooks:   hooks,
	}
}

func (s *Service) Create(
	ctx context.Context,
	actor middleware.Actor,
	req CreateBookingRequest,
) (*Detail, error) {
	if !actor.IsUser() || actor.ID == 0 {
		return nil, fmt.Errorf("create booking: %w", core.ErrForbidden)
	}

	if err := car.ValidateRange(req.PickupDate, req.ReturnDate); err != nil {
		return nil, err
	}

	carID, ok := req.CarID.PrimaryID()
	if !ok {
		return nil, fmt.Errorf("create booking: %w", ErrCarNotFound)
	}

	c, err := s.cars.GetForBooking(ctx, carID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("create booking: %w", ErrCarNotFound)
	}
	if err != nil {
		return nil, err
	}

	v, err := parseVerification(req.Verification)
	if err != nil {
		return nil, err
	}

	attachments, saved, err := s.saveInline(v.inline)
	if err != nil {
		return nil, err
	}

	stored, err := v.encode(saved)
	if err != nil {
		s.removeFiles(attachments)
		return nil, err
	}

	b := &Booking{
		UserID:         actor.ID,
		CarID:          c.ID,
		PickupDate:     req.PickupDate,
		ReturnDate:     req.ReturnDate,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		Verification:   stored,
		TotalCost:      req.TotalCost,
		Days:           req.Days,
	}

	if err := s.repo.Create(ctx, b, attachments); err != nil {
		s.removeFiles(attachments)
		return nil, err
	}

	detail := &Detail{Booking: *b, Attachments: attachments, Car: c}

	hooks := []mirror.Hook{
		mirror.UpsertHook(s.mirror, mirror.KindBookings, b.ID, *b),
	}
	for _, a := range attachments {
		hooks = append(hooks, mirror.UpsertHook(s.mirror, mirror.KindAttachments, a.ID, a))
	}
	if s.events != nil {
		hooks = append(hooks, s.events.Hook(events.BookingCreated, ToBookingResponse(detail)))
	}
	s.hooks.RunFor(ctx, mirror.Key(mirror.KindBookings, b.ID), "booking.create", hooks...)

	return detail, nil
}

func (s *Service) ListMine(ctx context.Context, actor middleware.Actor) ([]Detail, error) {
	return s.list(ctx, "booking.ListMine", ListFilter{UserID: actor.ID})
}

// ListHost returns bookings made against cars the actor hosts.
func (s *Service) ListHost(ctx context.Context, actor middleware.Actor) ([]Detail, error) {
	return s.list(ctx, "booking.ListHost", ListFilter{HostID: actor.ID})
}

func (s *Service) ListAll(ctx context.Context) ([]Detail, error) {
	return s.list(ctx, "booking.ListAll", ListFilter{})
}

func (s *Service) list(ctx context.Context, op string, filter ListFilter) ([]Detail, error) {
	details, _, err := mirror.ReadWithFallback(ctx, s.readers, op,
		func(ctx context.Context, r Reader) ([]Detail, error) {
			bookings, err := r.List(ctx, filter)
			if err != nil {
				return nil, err
			}
			return enrich(ctx, r, bookings)
		},
	)
	return details, err
}

// Get returns a booking to its owner, the host of its car or an admin.
func (s *Service) Get(ctx context.Context, actor middleware.Actor, id ident.ID) (*Detail, error) {
	detail, _, err := mirror.ReadWithFallback(ctx, s.readers, "booking.Get",
		func(ctx context.Context, r Reader) (*Detail, error) {
			b, err := r.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			details, err := enrich(ctx, r, []Booking{*b})
			if err != nil {
				return nil, err
			}
			return &details[0], nil
		},
	)
	if err != nil {
		return nil, err
	}

	if !canView(actor, detail) {
		return nil, fmt.Errorf("booking %s: %w", id, core.ErrForbidden)
	}

	return detail, nil
}

// GetForPayout returns a relational booking together with its car.
func (s *Service) GetForPayout(ctx context.Context, id int64) (*Detail, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.primaryDetail(ctx, b)
}

// Lookup resolves booking ids through r's store. Payout reads use it so
// embedded summaries come from the store that served the payouts.
func Lookup(ctx context.Context, r Reader, ids []int64) (map[int64]*Booking, error) {
	bookings, err := r.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]*Booking, len(bookings))
	for i := range bookings {
		out[bookings[i].ID] = &bookings[i]
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, actor middleware.Actor, id ident.ID) (*Detail, error) {
	b, err := s.primaryBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !actor.Owns(b.UserID) {
		return nil, fmt.Errorf("cancel booking %d: %w", b.ID, core.ErrForbidden)
	}

	if b.Status == StatusCancelled {
		return nil, fmt.Errorf("booking is already cancelled: %w", core.ErrInvalidState)
	}

	updated, err := s.repo.UpdateStatus(ctx, b.ID, StatusCancelled)
	if err != nil {
		return nil, err
	}

	s.mirrorBooking(ctx, "booking.cancel", updated)

	return s.primaryDetail(ctx, updated)
}

func (s *Service) UpdatePayment(
	ctx context.Context,
	actor middleware.Actor,
	id ident.ID,
	req UpdatePaymentRequest,
) (*Detail, error) {
	b, err := s.primaryBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.Owns(b.UserID) {
		return nil, fmt.Errorf("update booking payment %d: %w", b.ID, core.ErrForbidden)
	}

	updated, err := s.repo.UpdatePayment(ctx, b.ID, req)
	if err != nil {
		return nil, err
	}

	s.mirrorBooking(ctx, "booking.payment", updated)

	return s.primaryDetail(ctx, updated)
}

// Delete removes a booking with its attachments. Attachment files are
// removed after the rows are gone; a file that cannot be removed is logged.
func (s *Service) Delete(ctx context.Context, actor middleware.Actor, id ident.ID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("delete booking: %w", core.ErrForbidden)
	}

	n, ok := id.PrimaryID()
	if !ok {
		return fmt.Errorf("delete booking %s: %w", id, core.ErrNotFound)
	}

	removed, err := s.repo.Delete(ctx, n)
	if err != nil {
		return err
	}

	s.removeFiles(removed)

	s.hooks.RunFor(ctx, mirror.Key(mirror.KindBookings, n), "booking.delete",
		mirror.DeleteHook(s.mirror, mirror.KindBookings, n),
	)

	return nil
}

func (s *Service) primaryBooking(ctx context.Context, id ident.ID) (*Booking, error) {
	n, ok := id.PrimaryID()
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, n)
}

func (s *Service) primaryDetail(ctx context.Context, b *Booking) (*Detail, error) {
	details, err := enrich(ctx, s.readers.Primary(), []Booking{*b})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *Service) saveInline(inline []inlineAttachment) ([]Attachment, map[string]string, error) {
	if len(inline) == 0 {
		return nil, nil, nil
	}
	if s.files == nil {
		return nil, nil, fmt.Errorf("attachments are not accepted: %w", core.ErrUnavailable)
	}

	attachments := make([]Attachment, 0, len(inline))
	saved := make(map[string]string, len(inline))

	for _, in := range inline {
		path, err := s.files.SaveDataURL(in.dataURL, "booking-"+in.kind)
		if err != nil {
			s.removeFiles(attachments)
			return nil, nil, fmt.Errorf("save %s: %w", in.kind, err)
		}
		attachments = append(attachments, Attachment{Kind: in.kind, Path: path})
		saved[in.field] = path
	}

	return attachments, saved, nil
}

func (s *Service) removeFiles(attachments []Attachment) {
	if s.files == nil {
		return
	}
	for _, a := range attachments {
		if err := s.files.Remove(a.Path); err != nil {
			slog.Warn("remove booking attachment", "path", a.Path, "error", err)
		}
	}
}

func (s *Service) mirrorBooking(ctx context.Context, hook string, b *Booking) {
	s.hooks.RunFor(ctx, mirror.Key(mirror.KindBookings, b.ID), hook,
		mirror.UpsertHook(s.mirror, mirror.KindBookings, b.ID, *b),
	)
}

func canView(actor middleware.Actor, d *Detail) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.Owns(d.Booking.UserID):
		return true
	case actor.IsUser() && d.Car != nil && d.Car.HostedBy(actor.ID):
		return true
	}
	return false
}

// enrich attaches attachments, cars and users read through r.
func enrich(ctx context.Context, r Reader, bookings []Booking) ([]Detail, error) {
	if len(bookings) == 0 {
		return []Detail{}, nil
	}

	var bookingIDs, carIDs, userIDs []int64
	for i := range bookings {
		b := &bookings[i]
		if b.ID != 0 {
			bookingIDs = append(bookingIDs, b.ID)
		}
		carIDs = appendUnique(carIDs, b.CarID)
		userIDs = appendUnique(userIDs, b.UserID)
	}

	attachments, err := r.Attachments(ctx, bookingIDs)
	if err != nil {
		return nil, err
	}
	byBooking := make(map[int64][]Attachment, len(bookingIDs))
	for _, a := range attachments {
		byBooking[a.BookingID] = append(byBooking[a.BookingID], a)
	}

	cars, err := car.Lookup(ctx, r.Cars(), carIDs)
	if err != nil {
		return nil, err
	}

	users, err := r.Users().ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	byUser := make(map[int64]*user.User, len(users))
	for i := range users {
		byUser[users[i].ID] = &users[i]
	}

	details := make([]Detail, 0, len(bookings))
	for i := range bookings {
		b := bookings[i]
		d := Detail{Booking: b, Car: cars[b.CarID], User: byUser[b.UserID]}
		if b.ID != 0 {
			d.Attachments = byBooking[b.ID]
		}
		details = append(details, d)
	}

	return details, nil
}

func appendUnique(ids []int64, id int64) []int64 {
	if id == 0 {
		return ids
	}
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
