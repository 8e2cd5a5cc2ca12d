// AngelaMos | 2026
// message_test.go

package message

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
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

	"github.com/carterperez-dev/car-rental-backend/internal/config"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/mail"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

type memRepo struct {
	mu   sync.Mutex
	msgs map[int64]*Message
	next int64
}

func newMemRepo() *memRepo {
	return &memRepo{msgs: map[int64]*Message{}}
}

func (m *memRepo) Create(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	msg.ID = m.next
	msg.Status = StatusNew
	msg.CreatedAt = time.Now()
	stored := *msg
	m.msgs[msg.ID] = &stored
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.msgs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	out := *msg
	return &out, nil
}

func (m *memRepo) List(_ context.Context, params ListParams) ([]Message, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Message
	for id := m.next; id >= 1; id-- {
		if msg, ok := m.msgs[id]; ok && (params.Status == "" || msg.Status == params.Status) {
			out = append(out, *msg)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) SetReply(_ context.Context, id int64, reply string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.msgs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	now := time.Now()
	msg.Reply = &reply
	msg.RepliedAt = &now
	msg.Status = StatusReplied
	out := *msg
	return &out, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.msgs[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.msgs, id)
	return nil
}

type stubMailer struct {
	enabled bool
	err     error
	sent    []mail.Message
}

func (s *stubMailer) Enabled() bool { return s.enabled }

func (s *stubMailer) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// unreachableMirror points at a port nothing listens on, so every mirrored
// write is skipped.
func unreachableMirror() *mirror.MongoMirror {
	cfg := config.MongoConfig{
		URL:            "mongodb://127.0.0.1:1/?directConnection=true",
		Database:       "car_rental_test",
		ConnectTimeout: 100 * time.Millisecond,
		BreakerTimeout: time.Minute,
	}
	return mirror.NewMongoMirror(mirror.NewStore(core.NewMongo(cfg), cfg, slog.Default()))
}

func newRouter(svc *Service) chi.Router {
	asAdmin := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &middleware.AccessTokenClaims{UserID: 1, Role: middleware.RoleAdmin, Kind: middleware.KindAdmin}
			next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), claims)))
		})
	}

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, asAdmin, middleware.RequireAdmin)
	return r
}

func TestMessageLifecycleWithMirrorDown(t *testing.T) {
	hooks := mirror.NewHooks(time.Second, nil)
	svc := NewService(newMemRepo(), &stubMailer{}, unreachableMirror(), hooks)
	r := newRouter(svc)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodPost, "/messages/", `{"name":"A","email":"a@x.com","message":"hi there"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data MessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, StatusNew, created.Data.Status)

	rec = do(http.MethodGet, "/messages/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"hi there"`)

	path := fmt.Sprintf("/messages/%d", created.Data.ID)

	rec = do(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodGet, "/messages/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/messages/", `{"name":"A","email":"nope","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, hooks.Wait(context.Background()))
}

func TestReply(t *testing.T) {
	ctx := context.Background()
	hooks := mirror.NewHooks(time.Second, nil)
	mailer := &stubMailer{}
	svc := NewService(newMemRepo(), mailer, mirror.Disabled{}, hooks)

	msg, err := svc.Create(ctx, CreateMessageRequest{Name: " Ann ", Email: "Ann@X.com", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", msg.Email)

	_, err = svc.Reply(ctx, msg.ID, "thanks")
	assert.ErrorIs(t, err, core.ErrUnavailable)

	mailer.enabled = true
	mailer.err = assert.AnError
	_, err = svc.Reply(ctx, msg.ID, "thanks")
	assert.ErrorIs(t, err, core.ErrUnavailable)

	got, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, got.Status)

	mailer.err = nil
	replied, err := svc.Reply(ctx, msg.ID, "thanks")
	require.NoError(t, err)
	assert.Equal(t, StatusReplied, replied.Status)
	require.NotNil(t, replied.RepliedAt)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "ann@x.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Body, "thanks")

	_, err = svc.Reply(ctx, 99, "thanks")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, hooks.Wait(ctx))
}

func TestReplyHandlerUnavailable(t *testing.T) {
	hooks := mirror.NewHooks(time.Second, nil)
	repo := newMemRepo()
	svc := NewService(repo, &stubMailer{}, mirror.Disabled{}, hooks)
	_, err := svc.Create(context.Background(), CreateMessageRequest{Name: "A", Email: "a@x.com", Message: "m"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/messages/1/reply",
		strings.NewReader(`{"reply":"ok"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SERVICE_UNAVAILABLE")

	require.NoError(t, hooks.Wait(context.Background()))
}

func TestRepositoryList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM messages WHERE status = $1")).
		WithArgs("new").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY created_at DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs("new", int64(20), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "message", "status"}).
			AddRow(1, "A", "a@x.com", "hi", "new"))

	msgs, total, err := repo.List(context.Background(), ListParams{Page: 1, PageSize: 20, Status: "new"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, msgs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM messages WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 9), core.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
