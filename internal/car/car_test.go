// AngelaMos | 2026
// car_test.go

package car

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

func TestWindowOverlaps(t *testing.T) {
	w := Window{CarID: 1, Pickup: "2025-10-12", Return: "2025-10-14", Status: "confirmed"}

	tests := []struct {
		name       string
		start, end string
		want       bool
	}{
		{"inside", "2025-10-12", "2025-10-13", true},
		{"straddles return", "2025-10-13", "2025-10-15", true},
		{"covers", "2025-10-01", "2025-10-30", true},
		{"ends at pickup", "2025-10-10", "2025-10-12", false},
		{"starts at return", "2025-10-14", "2025-10-16", false},
		{"after", "2025-10-15", "2025-10-16", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Overlaps(tt.start, tt.end))
		})
	}

	w.Status = StatusCancelled
	assert.False(t, w.Overlaps("2025-10-12", "2025-10-13"))
}

func TestAvailableForRange(t *testing.T) {
	car := &Car{ID: 1, Available: true}
	windows := []Window{
		{CarID: 1, Pickup: "2025-10-12", Return: "2025-10-14", Status: "confirmed"},
		{CarID: 1, Pickup: "2025-11-01", Return: "2025-11-05", Status: StatusCancelled},
		{CarID: 2, Pickup: "2025-12-01", Return: "2025-12-05", Status: "confirmed"},
	}

	assert.False(t, AvailableForRange(car, windows, "2025-10-13", "2025-10-15"))
	assert.True(t, AvailableForRange(car, windows, "2025-10-15", "2025-10-16"))
	assert.True(t, AvailableForRange(car, windows, "2025-11-02", "2025-11-03"))
	assert.True(t, AvailableForRange(car, windows, "2025-12-02", "2025-12-03"))

	car.Available = false
	assert.False(t, AvailableForRange(car, nil, "2030-01-01", "2030-01-02"))
	assert.False(t, AvailableForRange(nil, nil, "2030-01-01", "2030-01-02"))
}

func TestValidateRange(t *testing.T) {
	require.NoError(t, ValidateRange("2025-10-13", "2025-10-15"))
	assert.ErrorIs(t, ValidateRange("2025-10-15", "2025-10-15"), core.ErrInvalidInput)
	assert.ErrorIs(t, ValidateRange("2025-10-16", "2025-10-15"), core.ErrInvalidInput)
	assert.ErrorIs(t, ValidateRange("13/10/2025", "2025-10-15"), core.ErrInvalidInput)
}

func TestRepositoryListFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE deleted = false AND LOWER(city) = LOWER($1) AND LOWER(fuel) = LOWER($2) AND host_id = $3",
	)).WithArgs("Pune", "diesel", int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "Nexon"))

	cars, err := repo.List(context.Background(), ListParams{City: "Pune", Fuel: "diesel", HostID: 4})
	require.NoError(t, err)
	require.Len(t, cars, 1)
	assert.Equal(t, "Nexon", cars[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryWindowsSkipsCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE car_id = ANY($1) AND status <> 'cancelled'")).
		WillReturnRows(sqlmock.NewRows([]string{"car_id", "pickup_date", "return_date", "status"}).
			AddRow(1, "2025-10-12", "2025-10-14", "confirmed"))

	windows, err := repo.Windows(context.Background(), []int64{1})
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "2025-10-14", windows[0].Return)

	empty, err := repo.Windows(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}

type memRepo struct {
	mu      sync.Mutex
	cars    map[int64]*Car
	windows []Window
	next    int64
}

func newMemRepo() *memRepo {
	return &memRepo{cars: map[int64]*Car{}}
}

func (m *memRepo) Create(_ context.Context, c *Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	c.ID = m.next
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	m.cars[c.ID] = &stored
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cars[id]
	if !ok || c.Deleted {
		return nil, core.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *memRepo) Update(_ context.Context, c *Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cars[c.ID]; !ok {
		return core.ErrNotFound
	}
	stored := *c
	m.cars[c.ID] = &stored
	return nil
}

func (m *memRepo) SoftDelete(_ context.Context, id int64) (*Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cars[id]
	if !ok || c.Deleted {
		return nil, core.ErrNotFound
	}
	c.Deleted = true
	c.Available = false
	out := *c
	return &out, nil
}

func (m *memRepo) List(_ context.Context, params ListParams) ([]Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Car
	for id := int64(1); id <= m.next; id++ {
		c, ok := m.cars[id]
		if !ok || c.Deleted {
			continue
		}
		if params.City != "" && !strings.EqualFold(c.City, params.City) {
			continue
		}
		if params.HostID != 0 && !c.HostedBy(params.HostID) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *memRepo) ListByIDs(_ context.Context, ids []int64) ([]Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Car
	for _, id := range ids {
		if c, ok := m.cars[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memRepo) Windows(_ context.Context, ids []int64) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Window
	for _, w := range m.windows {
		for _, id := range ids {
			if w.CarID == id && w.Status != StatusCancelled {
				out = append(out, w)
			}
		}
	}
	return out, nil
}

// docReader stands in for the document store. It only knows the cars and
// windows it is given.
type docReader struct {
	cars    []Car
	windows []Window
	fail    error
}

func (d *docReader) GetByID(_ context.Context, id ident.ID) (*Car, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	for i := range d.cars {
		if d.cars[i].PublicID() == id {
			return &d.cars[i], nil
		}
	}
	return nil, core.ErrNotFound
}

func (d *docReader) List(context.Context, ListParams) ([]Car, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	return d.cars, nil
}

func (d *docReader) ListByIDs(context.Context, []int64) ([]Car, error) {
	return d.cars, d.fail
}

func (d *docReader) Windows(context.Context, []int64) ([]Window, error) {
	return d.windows, d.fail
}

type reachable bool

func (r reachable) Reachable(context.Context) bool { return bool(r) }

type recordingMirror struct {
	mu   sync.Mutex
	rows []Car
}

func (m *recordingMirror) Upsert(_ context.Context, _ mirror.Kind, _ int64, row any) mirror.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row.(Car))
	return mirror.Outcome{OK: true}
}

func (m *recordingMirror) Delete(context.Context, mirror.Kind, int64) mirror.Outcome {
	return mirror.Outcome{OK: true}
}

func (m *recordingMirror) Link(context.Context, mirror.Kind, string, int64, any) mirror.Outcome {
	return mirror.Outcome{OK: true}
}

type memImages struct {
	saved   []string
	removed []string
}

func (m *memImages) SaveDataURL(_, prefix string) (string, error) {
	path := "/uploads/" + prefix + "-1.png"
	m.saved = append(m.saved, path)
	return path, nil
}

func (m *memImages) Remove(path string) error {
	m.removed = append(m.removed, path)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	docs   *docReader
	mirror *recordingMirror
	images *memImages
	hooks  *mirror.Hooks
}

func newFixture(mirrorUp bool) *fixture {
	repo := newMemRepo()
	docs := &docReader{}
	rec := &recordingMirror{}
	images := &memImages{}
	hooks := mirror.NewHooks(time.Second, nil)

	picker := mirror.NewPicker[Reader](NewPrimaryReader(repo), docs, reachable(mirrorUp))

	return &fixture{
		svc:    NewService(repo, picker, rec, hooks, images),
		repo:   repo,
		docs:   docs,
		mirror: rec,
		images: images,
		hooks:  hooks,
	}
}

func (f *fixture) drain(t *testing.T) []Car {
	t.Helper()
	require.NoError(t, f.hooks.Wait(context.Background()))
	f.mirror.mu.Lock()
	defer f.mirror.mu.Unlock()
	return append([]Car(nil), f.mirror.rows...)
}

var (
	admin = middleware.Actor{ID: 1, Role: middleware.RoleAdmin, Kind: middleware.KindAdmin}
	host  = middleware.Actor{ID: 9, Role: middleware.RoleHost, Kind: middleware.KindUser}
	guest = middleware.Actor{ID: 10, Role: middleware.RoleUser, Kind: middleware.KindUser}
)

func TestAvailabilityScenario(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	car, err := f.svc.Create(ctx, admin, CreateCarRequest{Name: "Swift", PricePerDay: 100})
	require.NoError(t, err)
	assert.True(t, car.Available)

	f.repo.windows = append(f.repo.windows, Window{
		CarID: car.ID, Pickup: "2025-10-12", Return: "2025-10-14", Status: "confirmed",
	})

	resp, err := f.svc.Availability(ctx, ListParams{}, "2025-10-13", "2025-10-15")
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, ident.Primary(car.ID), resp[0].ID)
	assert.False(t, resp[0].AvailableForRange)

	resp, err = f.svc.Availability(ctx, ListParams{}, "2025-10-15", "2025-10-16")
	require.NoError(t, err)
	assert.True(t, resp[0].AvailableForRange)

	_, err = f.svc.Availability(ctx, ListParams{}, "2025-10-16", "2025-10-15")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	f.drain(t)
}

func TestAvailabilityUsesServingStore(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.docs.cars = []Car{
		{ID: 5, Available: true},
		{MirrorID: "65f1c0ffee0000000000abcd", Available: true},
	}
	f.docs.windows = []Window{{CarID: 5, Pickup: "2025-01-01", Return: "2025-01-10", Status: "confirmed"}}

	resp, err := f.svc.Availability(ctx, ListParams{}, "2025-01-05", "2025-01-06")
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.False(t, resp[0].AvailableForRange)
	assert.True(t, resp[1].AvailableForRange)
	assert.True(t, resp[1].ID.IsMirror())

	f.docs.fail = assert.AnError
	resp, err = f.svc.Availability(ctx, ListParams{}, "2025-01-05", "2025-01-06")
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestCreateOwnership(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	other := int64(77)
	car, err := f.svc.Create(ctx, host, CreateCarRequest{Name: "Jimny", HostID: &other})
	require.NoError(t, err)
	require.NotNil(t, car.HostID)
	assert.Equal(t, host.ID, *car.HostID)

	car, err = f.svc.Create(ctx, admin, CreateCarRequest{Name: "Thar", HostID: &other})
	require.NoError(t, err)
	assert.Equal(t, other, *car.HostID)

	_, err = f.svc.Create(ctx, guest, CreateCarRequest{Name: "Alto"})
	assert.ErrorIs(t, err, core.ErrForbidden)

	rows := f.drain(t)
	assert.Len(t, rows, 2)
}

func TestCreateStoresInlineImage(t *testing.T) {
	f := newFixture(false)

	car, err := f.svc.Create(context.Background(), admin, CreateCarRequest{
		Name:  "City",
		Image: "data:image/png;base64,iVBORw0KGgo=",
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/car-1.png", car.Image)
	assert.Len(t, f.images.saved, 1)

	car, err = f.svc.Create(context.Background(), admin, CreateCarRequest{
		Name:  "Verna",
		Image: "https://cdn.example.com/verna.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/verna.jpg", car.Image)
	assert.Len(t, f.images.saved, 1)

	f.drain(t)
}

func TestUpdateAndDeleteRequireOwner(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	car, err := f.svc.Create(ctx, host, CreateCarRequest{Name: "Creta", PricePerDay: 80})
	require.NoError(t, err)
	id := ident.Primary(car.ID)

	price := 95
	_, err = f.svc.Update(ctx, guest, id, UpdateCarRequest{PricePerDay: &price})
	assert.ErrorIs(t, err, core.ErrForbidden)

	updated, err := f.svc.Update(ctx, host, id, UpdateCarRequest{PricePerDay: &price})
	require.NoError(t, err)
	assert.Equal(t, 95, updated.PricePerDay)
	assert.Equal(t, "Creta", updated.Name)

	_, err = f.svc.Update(ctx, host, ident.Mirror("65f1c0ffee0000000000abcd"), UpdateCarRequest{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, guest, id), core.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, admin, id))

	_, err = f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	rows := f.drain(t)
	require.Len(t, rows, 3)
	assert.True(t, rows[2].Deleted || rows[1].Deleted || rows[0].Deleted)
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(false)

	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			claims := &middleware.AccessTokenClaims{UserID: host.ID, Role: host.Role, Kind: host.Kind}
			next.ServeHTTP(w, req.WithContext(middleware.WithClaims(req.Context(), claims)))
		})
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodPost, "/cars/", `{"name":"Swift","pricePerDay":100,"city":"Goa"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data CarResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, ident.Primary(1), created.Data.ID)

	rec = do(http.MethodPost, "/cars/", `{"pricePerDay":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, "/cars/?city=goa", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Swift"`)

	rec = do(http.MethodGet, "/cars/mine", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hostId":9`)

	rec = do(http.MethodGet, "/cars/availability?pickup=2025-10-13&return=2025-10-15", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"availableForRange":true`)

	rec = do(http.MethodGet, "/cars/availability?pickup=2025-10-13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, "/cars/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, "/cars/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodDelete, "/cars/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(http.MethodGet, "/cars/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.drain(t)
}
