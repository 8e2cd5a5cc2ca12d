// AngelaMos | 2026
// auth_test.go

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
)

type memCodes struct {
	mu    sync.Mutex
	codes []*OTPCode
	next  int64
}

func (m *memCodes) Create(_ context.Context, code *OTPCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	code.ID = m.next
	code.CreatedAt = time.Now()
	stored := *code
	m.codes = append(m.codes, &stored)
	return nil
}

func (m *memCodes) Consume(
	_ context.Context,
	email, code, purpose string,
) (*OTPCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.codes) - 1; i >= 0; i-- {
		c := m.codes[i]
		if c.Email == email && c.Code == code && c.Purpose == purpose && !c.Consumed {
			c.Consumed = true
			c.Attempts++
			out := *c
			return &out, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memCodes) RecordFailure(_ context.Context, email, purpose string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.codes) - 1; i >= 0; i-- {
		c := m.codes[i]
		if c.Email == email && c.Purpose == purpose && !c.Consumed {
			c.Attempts++
			return nil
		}
	}
	return nil
}

func (m *memCodes) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.codes[:0]
	var n int64
	for _, c := range m.codes {
		if c.Consumed || c.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	m.codes = kept
	return n, nil
}

func (m *memCodes) latest(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.codes) - 1; i >= 0; i-- {
		if m.codes[i].Email == email {
			return m.codes[i].Code
		}
	}
	return ""
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
	next  int64
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*UserInfo{}}
}

func (m *memUsers) add(email string) *UserInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	u := &UserInfo{ID: m.next, Email: email, Role: "user", IsActive: true}
	m.users[email] = u
	return u
}

func (m *memUsers) FindForLogin(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[normalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("find user: %w", core.ErrNotFound)
}

func (m *memUsers) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.users[email]
	return ok, nil
}

func (m *memUsers) CreatePasswordless(
	_ context.Context,
	email, fullName, mobile string,
) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if mobile != "" && u.Mobile != nil && *u.Mobile == mobile {
			return nil, fmt.Errorf("%w: %w", ErrMobileTaken, core.ErrDuplicateKey)
		}
	}

	m.next++
	u := &UserInfo{ID: m.next, Email: email, FullName: fullName, Role: "user", IsActive: true}
	if mobile != "" {
		u.Mobile = &mobile
	}
	m.users[email] = u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			u.PasswordHash = &hash
			return nil
		}
	}
	return core.ErrNotFound
}

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, GenerateKeyPair(priv, pub))

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:    priv,
		PublicKeyPath:     pub,
		AccessTokenExpire: 15 * time.Minute,
		Issuer:            "car-rental",
		Audience:          "car-rental-api",
	})
	require.NoError(t, err)
	return m
}

func newTestService(t *testing.T) (*Service, *memCodes, *memUsers) {
	t.Helper()

	codes := &memCodes{}
	users := newMemUsers()
	svc := NewService(codes, newTestJWT(t), users, nil, nil, config.OTPConfig{
		TTL:         10 * time.Minute,
		MaxAttempts: 5,
	})
	return svc, codes, users
}

func TestSignupCodeCannotBeReplayed(t *testing.T) {
	svc, codes, users := newTestService(t)
	ctx := context.Background()

	resp, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "New@Example.com", Purpose: PurposeSignup})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	code := codes.latest("new@example.com")
	require.Len(t, code, 6)

	verify := VerifyOTPRequest{
		Email:    "new@example.com",
		Code:     code,
		Purpose:  PurposeSignup,
		FullName: "New Person",
	}

	auth, err := svc.VerifyOTP(ctx, verify)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "new@example.com", auth.User.Email)

	exists, _ := users.EmailExists(ctx, "new@example.com")
	assert.True(t, exists)

	_, err = svc.VerifyOTP(ctx, verify)
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestRequestOTPRules(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()
	users.add("known@example.com")

	_, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "known@example.com", Purpose: PurposeSignup})
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.ErrorIs(t, err, errSignupRequested)

	_, err = svc.RequestOTP(ctx, RequestOTPRequest{Email: "ghost@example.com", Purpose: PurposeLogin})
	assert.ErrorIs(t, err, ErrUnknownEmail)

	_, err = svc.RequestOTP(ctx, RequestOTPRequest{Email: "known@example.com", Purpose: PurposeRecovery})
	assert.NoError(t, err)
}

type memFlags struct {
	mu   sync.Mutex
	keys map[string]time.Duration
}

func (f *memFlags) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.keys[key]; ok {
		return false, nil
	}
	f.keys[key] = ttl
	return true, nil
}

func (f *memFlags) Mark(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.keys[key] = ttl
	return nil
}

func (f *memFlags) Marked(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.keys[key]
	return ok, nil
}

func TestCooldownAndRevocationFlags(t *testing.T) {
	ctx := context.Background()
	flags := &memFlags{keys: map[string]time.Duration{}}
	users := newMemUsers()
	users.add("known@example.com")

	svc := NewService(&memCodes{}, newTestJWT(t), users, flags, nil, config.OTPConfig{
		TTL:             10 * time.Minute,
		MaxAttempts:     5,
		RequestCooldown: time.Minute,
	})

	_, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "known@example.com", Purpose: PurposeLogin})
	require.NoError(t, err)

	_, err = svc.RequestOTP(ctx, RequestOTPRequest{Email: "Known@Example.com", Purpose: PurposeLogin})
	assert.ErrorIs(t, err, ErrOTPCooldown)
	assert.Equal(t, time.Minute, flags.keys["otp:cooldown:login:known@example.com"])

	revoked, err := svc.IsAccessTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.RevokeAccessToken(ctx, "jti-1", time.Now().Add(time.Minute)))
	revoked, err = svc.IsAccessTokenBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, svc.RevokeAccessToken(ctx, "jti-2", time.Now().Add(-time.Minute)))
	revoked, err = svc.IsAccessTokenBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRecoveryCodesAreLoginCodes(t *testing.T) {
	svc, codes, users := newTestService(t)
	ctx := context.Background()
	users.add("known@example.com")

	_, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "known@example.com", Purpose: PurposeRecovery})
	require.NoError(t, err)

	assert.Equal(t, PurposeLogin, codes.codes[0].Purpose)

	resp, err := svc.VerifyOTP(ctx, VerifyOTPRequest{
		Email:   "known@example.com",
		Code:    codes.latest("known@example.com"),
		Purpose: PurposeLogin,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestOTPAttemptsExhausted(t *testing.T) {
	svc, codes, users := newTestService(t)
	ctx := context.Background()
	users.add("known@example.com")

	_, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "known@example.com", Purpose: PurposeLogin})
	require.NoError(t, err)

	code := codes.latest("known@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for range 5 {
		_, err := svc.VerifyOTP(ctx, VerifyOTPRequest{Email: "known@example.com", Code: wrong, Purpose: PurposeLogin})
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}

	_, err = svc.VerifyOTP(ctx, VerifyOTPRequest{Email: "known@example.com", Code: code, Purpose: PurposeLogin})
	assert.ErrorIs(t, err, ErrOTPExhausted)
}

func TestOTPExpired(t *testing.T) {
	svc, codes, users := newTestService(t)
	ctx := context.Background()
	users.add("known@example.com")

	_, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "known@example.com", Purpose: PurposeLogin})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	_, err = svc.VerifyOTP(ctx, VerifyOTPRequest{
		Email:   "known@example.com",
		Code:    codes.latest("known@example.com"),
		Purpose: PurposeLogin,
	})
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestClaimStates(t *testing.T) {
	now := time.Now()
	code := OTPCode{ExpiresAt: now.Add(time.Minute), Attempts: 1}
	assert.Equal(t, OTPConsumed, code.Claim(now, 5))

	code.Attempts = 6
	assert.Equal(t, OTPExhausted, code.Claim(now, 5))

	code.Attempts = 2
	code.ExpiresAt = now
	assert.Equal(t, OTPExpired, code.Claim(now, 5))
}

func TestPasswordLoginAndChange(t *testing.T) {
	svc, _, users := newTestService(t)
	ctx := context.Background()
	u := users.add("pw@example.com")

	_, err := svc.Login(ctx, LoginRequest{Email: "pw@example.com", Password: "whatever123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "", "first-password"))

	resp, err := svc.Login(ctx, LoginRequest{Email: "pw@example.com", Password: "first-password"})
	require.NoError(t, err)
	assert.Equal(t, "pw@example.com", resp.User.Email)

	err = svc.ChangePassword(ctx, u.ID, "wrong-password", "second-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDisabledAccountCannotSignIn(t *testing.T) {
	svc, codes, users := newTestService(t)
	ctx := context.Background()
	users.add("off@example.com").IsActive = false

	_, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "off@example.com", Purpose: PurposeLogin})
	require.NoError(t, err)

	_, err = svc.VerifyOTP(ctx, VerifyOTPRequest{
		Email:   "off@example.com",
		Code:    codes.latest("off@example.com"),
		Purpose: PurposeLogin,
	})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAccessTokenClaims(t *testing.T) {
	m := newTestJWT(t)

	token, expiresAt, err := m.CreateAccessToken(AccessTokenClaims{
		UserID: 42,
		Role:   "host",
		Kind:   middleware.KindUser,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "host", claims.Role)
	assert.Equal(t, middleware.KindUser, claims.Kind)
	assert.NotEmpty(t, claims.TokenID)

	_, err = m.VerifyAccessToken(context.Background(), token+"x")
	assert.True(t, errors.Is(err, core.ErrTokenInvalid))

	other := newTestJWT(t)
	_, err = other.VerifyAccessToken(context.Background(), token)
	assert.True(t, errors.Is(err, core.ErrTokenInvalid))
}

func TestPurgeExpiredCodes(t *testing.T) {
	svc, codes, users := newTestService(t)
	ctx := context.Background()
	users.add("known@example.com")

	_, err := svc.RequestOTP(ctx, RequestOTPRequest{Email: "known@example.com", Purpose: PurposeLogin})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	svc.PurgeExpiredCodes(ctx, time.Minute)

	assert.Empty(t, codes.codes)
}

func postJSON(h http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSignupFlow(t *testing.T) {
	svc, codes, _ := newTestService(t)

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, middleware.Authenticator(svc))

	rec := postJSON(r, "/auth/request-otp", map[string]string{
		"email":   "flow@example.com",
		"purpose": "signup",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "expiresAt")

	verify := map[string]string{
		"email":    "flow@example.com",
		"code":     codes.latest("flow@example.com"),
		"purpose":  "signup",
		"fullName": "Flow",
	}

	rec = postJSON(r, "/auth/verify-otp", verify)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data AuthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.Token)

	rec = postJSON(r, "/auth/verify-otp", verify)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "OTP_INVALID")

	rec = postJSON(r, "/auth/request-otp", map[string]string{
		"email":   "flow@example.com",
		"purpose": "signup",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+body.Data.Token)
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.True(t, strings.Contains(me.Body.String(), "flow@example.com"))
}

func TestHandlerValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, middleware.Authenticator(svc))

	rec := postJSON(r, "/auth/request-otp", map[string]string{
		"email":   "not-an-email",
		"purpose": "signup",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(r, "/auth/verify-otp", map[string]string{
		"email":   "a@b.co",
		"code":    "12ab",
		"purpose": "login",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(r, "/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
