// AngelaMos | 2026
// payout_test.go

package payout

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/car-rental-backend/internal/booking"
	"github.com/carterperez-dev/car-rental-backend/internal/car"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/events"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

const (
	hostID  int64 = 7
	guestID int64 = 8
)

type memRepo struct {
	mu       sync.Mutex
	requests map[int64]*PayoutRequest
	next     int64
}

func newMemRepo() *memRepo {
	return &memRepo{requests: map[int64]*PayoutRequest{}}
}

func (m *memRepo) Create(_ context.Context, p *PayoutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	p.ID = m.next
	p.Status = StatusPending
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	m.requests[p.ID] = &stored
	return nil
}

func (m *memRepo) HasPending(_ context.Context, bookingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.requests {
		if p.BookingID == bookingID && p.IsPending() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.requests[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *memRepo) List(_ context.Context, host int64) ([]PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PayoutRequest
	for id := m.next; id >= 1; id-- {
		if p, ok := m.requests[id]; ok && (host == 0 || p.HostID == host) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memRepo) Transition(_ context.Context, id int64, status string, note *string) (*PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.requests[id]
	if !ok || !p.IsPending() {
		return nil, core.ErrInvalidState
	}
	now := time.Now()
	p.Status = status
	p.UpdatedAt = now
	if note != nil {
		p.Note = note
	}
	if status == StatusApproved {
		p.ApprovedAt = &now
	}
	out := *p
	return &out, nil
}

// bookingTable serves one relational booking on a car hosted by hostID.
type bookingTable struct {
	booking.Reader
	b booking.Booking
}

func newBookingTable() *bookingTable {
	return &bookingTable{b: booking.Booking{
		ID:         3,
		UserID:     guestID,
		CarID:      11,
		PickupDate: "2025-01-10",
		ReturnDate: "2025-01-15",
		TotalCost:  500,
		Status:     booking.StatusConfirmed,
	}}
}

func (t *bookingTable) GetForPayout(_ context.Context, id int64) (*booking.Detail, error) {
	if id != t.b.ID {
		return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	host := hostID
	return &booking.Detail{
		Booking: t.b,
		Car:     &car.Car{ID: t.b.CarID, HostID: &host},
	}, nil
}

func (t *bookingTable) ListByIDs(_ context.Context, ids []int64) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, id := range ids {
		if id == t.b.ID {
			out = append(out, t.b)
		}
	}
	return out, nil
}

type brokenReader struct{}

func (brokenReader) List(context.Context, int64) ([]PayoutRequest, error) {
	return nil, mirror.ErrUnreachable
}

func (brokenReader) Bookings() booking.Reader { return nil }

type reachable bool

func (r reachable) Reachable(context.Context) bool { return bool(r) }

type recordingMirror struct {
	mu    sync.Mutex
	calls []string
}

func (m *recordingMirror) Upsert(_ context.Context, kind mirror.Kind, id int64, _ any) mirror.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("upsert:%s:%d", kind, id))
	return mirror.Outcome{OK: true}
}

func (m *recordingMirror) Delete(context.Context, mirror.Kind, int64) mirror.Outcome {
	return mirror.Outcome{OK: true}
}

func (m *recordingMirror) Link(context.Context, mirror.Kind, string, int64, any) mirror.Outcome {
	return mirror.Outcome{OK: true}
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	hub    *events.Hub
	mirror *recordingMirror
	hooks  *mirror.Hooks
}

func newFixture(mirrorReachable bool) *fixture {
	repo := newMemRepo()
	bookings := newBookingTable()
	hub := events.NewHub(8, nil)
	rec := &recordingMirror{}
	hooks := mirror.NewHooks(time.Second, nil)

	picker := mirror.NewPicker[Reader](
		NewPrimaryReader(repo, bookings),
		brokenReader{},
		reachable(mirrorReachable),
	)

	return &fixture{
		svc:    NewService(repo, picker, bookings, hub, rec, hooks),
		repo:   repo,
		hub:    hub,
		mirror: rec,
		hooks:  hooks,
	}
}

func (f *fixture) drain(t *testing.T) []string {
	t.Helper()
	require.NoError(t, f.hooks.Wait(context.Background()))
	f.mirror.mu.Lock()
	defer f.mirror.mu.Unlock()
	return append([]string(nil), f.mirror.calls...)
}

func host() middleware.Actor {
	return middleware.Actor{ID: hostID, Role: middleware.RoleHost, Kind: middleware.KindUser}
}

func TestRequestCreatesPendingAndPublishes(t *testing.T) {
	f := newFixture(false)
	sub := f.hub.Subscribe()
	defer sub.Close()

	d, err := f.svc.Request(context.Background(), host(), CreateRequest{BookingID: 3})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Request.Status)
	assert.Equal(t, 500, d.Request.Amount)
	assert.Equal(t, hostID, d.Request.HostID)
	require.NotNil(t, d.Booking)

	assert.Equal(t, []string{fmt.Sprintf("upsert:payout_requests:%d", d.Request.ID)}, f.drain(t))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, events.PayoutRequestCreated, ev.Name)
		resp, ok := ev.Data.(PayoutResponse)
		require.True(t, ok)
		assert.Equal(t, d.Request.ID, resp.ID)
		require.NotNil(t, resp.Booking)
		assert.Equal(t, int64(11), resp.Booking.CarID)
	case <-time.After(time.Second):
		t.Fatal("payout_request_created not published")
	}
}

func TestRequestRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)

	amount := 120
	_, err := f.svc.Request(ctx, host(), CreateRequest{BookingID: 3, Amount: &amount})
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, host(), CreateRequest{BookingID: 3})
	assert.ErrorIs(t, err, core.ErrConflict)

	guest := middleware.Actor{ID: guestID, Role: middleware.RoleUser, Kind: middleware.KindUser}
	_, err = f.svc.Request(ctx, guest, CreateRequest{BookingID: 3})
	assert.ErrorIs(t, err, core.ErrForbidden)

	admin := middleware.Actor{ID: 1, Role: middleware.RoleAdmin, Kind: middleware.KindAdmin}
	_, err = f.svc.Request(ctx, admin, CreateRequest{BookingID: 3})
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.svc.Request(ctx, host(), CreateRequest{BookingID: 99})
	assert.ErrorIs(t, err, core.ErrNotFound)

	f.drain(t)
}

func TestDecisionsAreTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(false)

	d, err := f.svc.Request(ctx, host(), CreateRequest{BookingID: 3})
	require.NoError(t, err)

	note := "paid out"
	approved, err := f.svc.Approve(ctx, d.Request.ID, &note)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Request.Status)
	require.NotNil(t, approved.Request.ApprovedAt)
	require.NotNil(t, approved.Request.Note)
	assert.Equal(t, note, *approved.Request.Note)
	require.NotNil(t, approved.Booking)

	_, err = f.svc.Reject(ctx, d.Request.ID, nil)
	assert.ErrorIs(t, err, core.ErrInvalidState)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)

	second, err := f.svc.Request(ctx, host(), CreateRequest{BookingID: 3})
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, second.Request.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Request.Status)
	assert.Nil(t, rejected.Request.ApprovedAt)

	_, err = f.svc.Approve(ctx, 404, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Len(t, f.drain(t), 4)
}

func TestListsFallBackToPrimary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(true)

	_, err := f.svc.Request(ctx, host(), CreateRequest{BookingID: 3})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, host())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Booking)

	other, err := f.svc.ListMine(ctx, middleware.Actor{ID: guestID, Kind: middleware.KindUser})
	require.NoError(t, err)
	assert.Empty(t, other)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	f.drain(t)
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(false)

	as := func(actor middleware.Actor) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				claims := &middleware.AccessTokenClaims{UserID: actor.ID, Role: actor.Role, Kind: actor.Kind}
				next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), claims)))
			})
		}
	}

	hostRouter := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(hostRouter, as(host()))

	adminRouter := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(adminRouter,
		as(middleware.Actor{ID: 1, Role: middleware.RoleAdmin, Kind: middleware.KindAdmin}))

	do := func(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(hostRouter, http.MethodPost, "/payouts/request", `{"bookingId":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)

	rec = do(hostRouter, http.MethodPost, "/payouts/request", `{"bookingId":3}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(hostRouter, http.MethodPost, "/payouts/request", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(hostRouter, http.MethodGet, "/payouts/", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(hostRouter, http.MethodGet, "/payouts/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bookingId":3`)

	rec = do(adminRouter, http.MethodPost, "/payouts/request", `{"bookingId":3}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(adminRouter, http.MethodPost, "/payouts/1/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"approved"`)

	rec = do(adminRouter, http.MethodPost, "/payouts/1/reject", `{"note":"late"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_STATE")

	rec = do(adminRouter, http.MethodPost, "/payouts/x/approve", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.drain(t)
}

func TestRepositoryCreateMapsPendingViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payout_requests")).
		WithArgs(int64(3), hostID, int64(500)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: pendingConstraint})

	err = repo.Create(context.Background(), &PayoutRequest{BookingID: 3, HostID: hostID, Amount: 500})
	assert.ErrorIs(t, err, core.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryTransitionRequiresPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(`UPDATE payout_requests(.|\n)*WHERE id = \$1 AND status = 'pending'`).
		WithArgs(int64(5), StatusApproved, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.Transition(context.Background(), 5, StatusApproved, nil)
	assert.ErrorIs(t, err, core.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}
