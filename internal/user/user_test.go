// AngelaMos | 2026
// user_test.go

package user

import (
	"context"
	"errors"
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

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

func TestNormalizeEmail(t *testing.T) {
	for _, in := range []string{"  Foo@Example.COM ", "foo@example.com", "FOO@EXAMPLE.COM"} {
		once := NormalizeEmail(in)
		assert.Equal(t, "foo@example.com", once)
		assert.Equal(t, once, NormalizeEmail(once))
	}
}

func TestNormalizeMobile(t *testing.T) {
	assert.Equal(t, "15551234567", NormalizeMobile("+1 (555) 123-4567"))
	assert.Equal(t, "", NormalizeMobile("n/a"))
	assert.Nil(t, mobilePtr(" - "))
	assert.Equal(t, "0700", *mobilePtr("07-00"))
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRepositoryCreateDuplicates(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: emailConstraint})
	err := repo.Create(context.Background(), &User{Email: "a@b.co", Role: RoleUser})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.NotErrorIs(t, err, ErrMobileTaken)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: mobileConstraint})
	err = repo.Create(context.Background(), &User{Email: "c@d.co", Role: RoleUser})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.ErrorIs(t, err, ErrMobileTaken)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetByEmailFiltersDeleted(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM users\s+WHERE email = \$1 AND deleted = false`).
		WithArgs("gone@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByEmail(context.Background(), "gone@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryExistsByEmailIgnoresDeleted(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND deleted = false)")).
		WithArgs("gone@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsByEmail(context.Background(), "gone@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListBuildsFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FROM users WHERE deleted = false AND (email ILIKE $1 OR full_name ILIKE $1) AND role = $2",
	)).WithArgs("%50\\%%", "host").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`ORDER BY created_at DESC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("%50\\%%", "host", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "mobile", "full_name", "password_hash", "role", "is_active",
			"deleted", "deleted_at", "created_at", "updated_at",
		}).AddRow(7, "h@example.com", nil, "Host", nil, "host", true, false, nil, now, now))

	users, total, err := repo.List(context.Background(), ListUsersParams{
		Page: 2, PageSize: 10, Search: "50%", Role: "host",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, int64(7), users[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

type memRepo struct {
	mu    sync.Mutex
	users map[int64]*User
	next  int64
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[int64]*User{}}
}

func (m *memRepo) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.users {
		if other.Email == u.Email {
			return core.ErrDuplicateKey
		}
		if u.Mobile != nil && other.Mobile != nil && *u.Mobile == *other.Mobile {
			return errors.Join(ErrMobileTaken, core.ErrDuplicateKey)
		}
	}

	m.next++
	u.ID = m.next
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.Deleted {
		return nil, core.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email && !u.Deleted {
			out := *u
			return &out, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *memRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = &hash
	return nil
}

func (m *memRepo) SoftDelete(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.Deleted {
		return nil, core.ErrNotFound
	}
	now := time.Now()
	u.Deleted = true
	u.DeletedAt = &now
	u.IsActive = false
	out := *u
	return &out, nil
}

func (m *memRepo) List(_ context.Context, params ListUsersParams) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []User
	for _, u := range m.users {
		if !u.Deleted && (params.Role == "" || u.Role == params.Role) {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) ListByIDs(_ context.Context, ids []int64) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) ExistsByMobile(_ context.Context, mobile string, exceptID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID != exceptID && u.Mobile != nil && *u.Mobile == mobile {
			return true, nil
		}
	}
	return false, nil
}

// docReader stands in for the mirror store's user documents.
type docReader struct {
	byEmail map[string]User
	fail    error
}

func (d *docReader) GetByID(_ context.Context, id ident.ID) (*User, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	for _, u := range d.byEmail {
		if u.PublicID() == id {
			return &u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (d *docReader) GetByEmail(_ context.Context, email string) (*User, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	u, ok := d.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (d *docReader) List(context.Context, ListUsersParams) ([]User, int, error) {
	if d.fail != nil {
		return nil, 0, d.fail
	}
	out := make([]User, 0, len(d.byEmail))
	for _, u := range d.byEmail {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (d *docReader) ListByIDs(context.Context, []int64) ([]User, error) {
	return nil, d.fail
}

type reachable bool

func (r reachable) Reachable(context.Context) bool { return bool(r) }

type call struct {
	op       string
	id       int64
	mirrorID string
}

type recordingMirror struct {
	mu    sync.Mutex
	calls []call
}

func (m *recordingMirror) record(c call) mirror.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return mirror.Outcome{OK: true}
}

func (m *recordingMirror) Upsert(_ context.Context, _ mirror.Kind, id int64, _ any) mirror.Outcome {
	return m.record(call{op: "upsert", id: id})
}

func (m *recordingMirror) Delete(_ context.Context, _ mirror.Kind, id int64) mirror.Outcome {
	return m.record(call{op: "delete", id: id})
}

func (m *recordingMirror) Link(
	_ context.Context,
	_ mirror.Kind,
	mirrorID string,
	id int64,
	_ any,
) mirror.Outcome {
	return m.record(call{op: "link", id: id, mirrorID: mirrorID})
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	docs   *docReader
	mirror *recordingMirror
	hooks  *mirror.Hooks
}

func newFixture(mirrorUp bool) *fixture {
	repo := newMemRepo()
	docs := &docReader{byEmail: map[string]User{}}
	rec := &recordingMirror{}
	hooks := mirror.NewHooks(time.Second, nil)

	picker := mirror.NewPicker[Reader](NewPrimaryReader(repo), docs, reachable(mirrorUp))

	return &fixture{
		svc:    NewService(repo, picker, rec, hooks),
		repo:   repo,
		docs:   docs,
		mirror: rec,
		hooks:  hooks,
	}
}

func (f *fixture) drain(t *testing.T) []call {
	t.Helper()
	require.NoError(t, f.hooks.Wait(context.Background()))
	f.mirror.mu.Lock()
	defer f.mirror.mu.Unlock()
	return append([]call(nil), f.mirror.calls...)
}

func TestFindForLoginCopiesMirrorOnlyUser(t *testing.T) {
	f := newFixture(true)
	f.docs.byEmail["legacy@example.com"] = User{
		Email:    "legacy@example.com",
		FullName: "Legacy",
		Role:     RoleHost,
		IsActive: true,
		MirrorID: "65f0c0ffee0000000000abcd",
	}

	info, err := f.svc.FindForLogin(context.Background(), "Legacy@Example.com")
	require.NoError(t, err)
	assert.NotZero(t, info.ID)
	assert.Equal(t, RoleHost, info.Role)

	stored, err := f.repo.GetByEmail(context.Background(), "legacy@example.com")
	require.NoError(t, err)
	assert.Equal(t, info.ID, stored.ID)

	calls := f.drain(t)
	require.Len(t, calls, 1)
	assert.Equal(t, call{op: "link", id: info.ID, mirrorID: "65f0c0ffee0000000000abcd"}, calls[0])

	again, err := f.svc.FindForLogin(context.Background(), "legacy@example.com")
	require.NoError(t, err)
	assert.Equal(t, info.ID, again.ID)
}

func TestFindForLoginMirrorDown(t *testing.T) {
	f := newFixture(false)
	f.docs.byEmail["legacy@example.com"] = User{Email: "legacy@example.com", MirrorID: "abc"}

	_, err := f.svc.FindForLogin(context.Background(), "legacy@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestEmailExistsChecksBothStores(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	f.docs.byEmail["doc@example.com"] = User{Email: "doc@example.com"}

	exists, err := f.svc.EmailExists(ctx, "DOC@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = f.svc.CreatePasswordless(ctx, "row@example.com", "Row", "")
	require.NoError(t, err)

	exists, err = f.svc.EmailExists(ctx, "row@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	f.docs.fail = errors.New("mirror broke")
	exists, err = f.svc.EmailExists(ctx, "doc@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreatePasswordlessMobileConflict(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.svc.CreatePasswordless(ctx, "one@example.com", "One", "+1 555 0100")
	require.NoError(t, err)

	_, err = f.svc.CreatePasswordless(ctx, "two@example.com", "Two", "1-555-0100")
	assert.ErrorIs(t, err, ErrMobileTaken)
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	calls := f.drain(t)
	require.Len(t, calls, 1)
	assert.Equal(t, "upsert", calls[0].op)
}

func TestAdminOperationsMirrorWrites(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	info, err := f.svc.CreatePasswordless(ctx, "u@example.com", "U", "")
	require.NoError(t, err)
	id := ident.Primary(info.ID)

	u, err := f.svc.UpdateUserRole(ctx, id, RoleHost)
	require.NoError(t, err)
	assert.Equal(t, RoleHost, u.Role)

	_, err = f.svc.UpdateUserRole(ctx, id, "owner")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	u, err = f.svc.SetActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	require.NoError(t, f.svc.DeleteUser(ctx, id))
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, id), core.ErrNotFound)

	_, err = f.svc.GetUser(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.svc.UpdateUserRole(ctx, ident.Mirror("abc123"), RoleHost)
	assert.ErrorIs(t, err, core.ErrNotFound)

	calls := f.drain(t)
	assert.Len(t, calls, 4)
}

func TestReadsPreferMirrorAndFallBack(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()
	f.docs.byEmail["m@example.com"] = User{Email: "m@example.com", FullName: "Mirror Only", MirrorID: "abc123"}

	users, total, err := f.svc.ListUsers(ctx, ListUsersParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, ident.Mirror("abc123"), users[0].PublicID())

	u, err := f.svc.GetUser(ctx, ident.Mirror("abc123"))
	require.NoError(t, err)
	assert.Equal(t, "Mirror Only", u.FullName)

	f.docs.fail = errors.New("connection reset")
	_, err = f.svc.CreatePasswordless(ctx, "p@example.com", "Primary", "")
	require.NoError(t, err)

	users, _, err = f.svc.ListUsers(ctx, ListUsersParams{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Primary", users[0].FullName)

	_, err = f.svc.GetUser(ctx, ident.Mirror("abc123"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdateMe(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	a, err := f.svc.CreatePasswordless(ctx, "a@example.com", "A", "111")
	require.NoError(t, err)
	b, err := f.svc.CreatePasswordless(ctx, "b@example.com", "B", "")
	require.NoError(t, err)

	name := "Bee"
	mobile := "(111)"
	_, err = f.svc.UpdateMe(ctx, b.ID, UpdateMeRequest{FullName: &name, Mobile: &mobile})
	assert.ErrorIs(t, err, ErrMobileTaken)

	same := "111"
	u, err := f.svc.UpdateMe(ctx, a.ID, UpdateMeRequest{Mobile: &same})
	require.NoError(t, err)
	assert.Equal(t, "111", *u.Mobile)

	_, err = f.svc.UpdateMe(ctx, 0, UpdateMeRequest{})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	info, err := f.svc.CreatePasswordless(ctx, "h@example.com", "H", "")
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(f.svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			kind := req.Header.Get("X-Kind")
			role := middleware.RoleUser
			if kind == middleware.KindAdmin {
				role = middleware.RoleAdmin
			}
			claims := &middleware.AccessTokenClaims{UserID: info.ID, Role: role, Kind: kind}
			next.ServeHTTP(w, req.WithContext(middleware.WithClaims(req.Context(), claims)))
		})
	})

	do := func(method, path, kind, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-Kind", kind)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/users/me", middleware.KindUser, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fullName":"H"`)

	rec = do(http.MethodGet, "/users/me", middleware.KindAdmin, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodGet, "/users/", middleware.KindUser, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodGet, "/users/", middleware.KindAdmin, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/users/not-an-id", middleware.KindAdmin, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPut, "/users/1/role", middleware.KindAdmin, `{"role":"host"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"host"`)

	rec = do(http.MethodPut, "/users/1/role", middleware.KindAdmin, `{"role":"owner"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodDelete, "/users/1", middleware.KindAdmin, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(http.MethodGet, "/users/1", middleware.KindAdmin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, f.hooks.Wait(ctx))
}
