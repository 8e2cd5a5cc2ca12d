// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/mail"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrUnknownEmail       = errors.New("no account for email")
	ErrOTPInvalid         = errors.New("invalid or expired code")
	ErrOTPExpired         = errors.New("code expired")
	ErrOTPExhausted       = errors.New("too many attempts")
	ErrOTPCooldown        = errors.New("code requested too recently")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrMobileTaken        = errors.New("mobile already registered")

	errSignupRequested = errors.New("signup requested")
)

type UserInfo struct {
	ID           int64
	Email        string
	Mobile       *string
	FullName     string
	PasswordHash *string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// UserProvider is the account store seen by authentication. Lookups by
// email cover both the relational and the mirror store.
type UserProvider interface {
	FindForLogin(ctx context.Context, email string) (*UserInfo, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreatePasswordless(
		ctx context.Context,
		email, fullName, mobile string,
	) (*UserInfo, error)
	GetByID(ctx context.Context, id int64) (*UserInfo, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// Flags is the expiring key store behind OTP request cooldowns and the
// logout blacklist.
type Flags interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
	Marked(ctx context.Context, key string) (bool, error)
}

type Service struct {
	repo         Repository
	jwt          *JWTManager
	userProvider UserProvider
	flags        Flags
	mailer       mail.Sender
	otp          config.OTPConfig
	now          func() time.Time
}

func NewService(
	repo Repository,
	jwt *JWTManager,
	userProvider UserProvider,
	flags Flags,
	mailer mail.Sender,
	otpCfg config.OTPConfig,
) *Service {
	return &Service{
		repo:         repo,
		jwt:          jwt,
		userProvider: userProvider,
		flags:        flags,
		mailer:       mailer,
		otp:          otpCfg,
		now:          time.Now,
	}
}

func (s *Service) RequestOTP(
	ctx context.Context,
	req RequestOTPRequest,
) (*RequestOTPResponse, error) {
	email := normalizeEmail(req.Email)
	purpose := StoredPurpose(req.Purpose)

	exists, err := s.userProvider.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}

	switch {
	case purpose == PurposeSignup && exists:
		return nil, fmt.Errorf("%w: %w", errSignupRequested, ErrEmailExists)
	case purpose == PurposeLogin && !exists:
		return nil, ErrUnknownEmail
	}

	if err := s.claimCooldown(ctx, email, purpose); err != nil {
		return nil, err
	}

	code, err := core.GenerateOTP(6)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	otp := &OTPCode{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(s.otp.TTL),
	}

	if err := s.repo.Create(ctx, otp); err != nil {
		return nil, err
	}

	s.deliver(ctx, otp, req.Purpose)

	return &RequestOTPResponse{
		Success:   true,
		Message:   "verification code sent",
		ExpiresAt: otp.ExpiresAt,
	}, nil
}

func (s *Service) claimCooldown(ctx context.Context, email, purpose string) error {
	if s.flags == nil || s.otp.RequestCooldown <= 0 {
		return nil
	}

	key := "otp:cooldown:" + purpose + ":" + email

	ok, err := s.flags.Claim(ctx, key, s.otp.RequestCooldown)
	if err != nil {
		slog.WarnContext(ctx, "otp cooldown check failed", "error", err)
		return nil
	}
	if !ok {
		return ErrOTPCooldown
	}

	return nil
}

func (s *Service) deliver(ctx context.Context, otp *OTPCode, purpose string) {
	if s.mailer == nil || !s.mailer.Enabled() {
		slog.DebugContext(ctx, "otp issued",
			"email", otp.Email,
			"purpose", otp.Purpose,
			"code", otp.Code,
		)
		return
	}

	msg := mail.OTPMessage(otp.Email, otp.Code, purpose, int(s.otp.TTL/time.Minute))
	if err := s.mailer.Send(ctx, msg); err != nil {
		slog.WarnContext(ctx, "otp email failed",
			"email", otp.Email,
			"error", err,
		)
	}
}

func (s *Service) VerifyOTP(
	ctx context.Context,
	req VerifyOTPRequest,
) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	purpose := StoredPurpose(req.Purpose)

	otp, err := s.repo.Consume(ctx, email, req.Code, purpose)
	if errors.Is(err, core.ErrNotFound) {
		if failErr := s.repo.RecordFailure(ctx, email, purpose); failErr != nil {
			slog.WarnContext(ctx, "record otp failure", "error", failErr)
		}
		return nil, ErrOTPInvalid
	}
	if err != nil {
		return nil, err
	}

	switch otp.Claim(s.now(), s.otp.MaxAttempts) {
	case OTPExhausted:
		return nil, ErrOTPExhausted
	case OTPExpired:
		return nil, ErrOTPExpired
	}

	var user *UserInfo

	if purpose == PurposeSignup {
		user, err = s.signup(ctx, email, req)
	} else {
		user, err = s.userProvider.FindForLogin(ctx, email)
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUnknownEmail
		}
	}
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *Service) signup(
	ctx context.Context,
	email string,
	req VerifyOTPRequest,
) (*UserInfo, error) {
	exists, err := s.userProvider.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	user, err := s.userProvider.CreatePasswordless(ctx, email, req.FullName, req.Mobile)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			if isMobileConflict(err) {
				return nil, ErrMobileTaken
			}
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*AuthResponse, error) {
	user, err := s.userProvider.FindForLogin(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.userProvider.UpdatePassword(ctx, user.ID, newHash)
	}

	return s.issue(user)
}

func (s *Service) issue(user *UserInfo) (*AuthResponse, error) {
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	token, expiresAt, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID: user.ID,
		Role:   user.Role,
		Kind:   middleware.KindUser,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &AuthResponse{
		User:      toUserResponse(user),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID int64,
) (*UserResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID int64,
	currentPassword, newPassword string,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if user.PasswordHash != nil && *user.PasswordHash != "" {
		valid, _, err := core.VerifyPasswordWithRehash(
			currentPassword,
			*user.PasswordHash,
		)
		if err != nil {
			return fmt.Errorf("verify password: %w", err)
		}

		if !valid {
			return ErrInvalidCredentials
		}
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	key := "blacklist:" + jti
	ttl := time.Until(expiresAt)

	if s.flags == nil || ttl <= 0 {
		return nil
	}

	if err := s.flags.Mark(ctx, key, ttl); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	key := "blacklist:" + jti

	revoked, err := s.flags.Marked(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return revoked, nil
}

// VerifyAccessToken checks the signature and claims and then the logout
// blacklist. A blacklist lookup failure lets the token through.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.flags == nil || claims.TokenID == "" {
		return claims, nil
	}

	revoked, err := s.IsAccessTokenBlacklisted(ctx, claims.TokenID)
	if err != nil {
		slog.WarnContext(ctx, "token blacklist unavailable", "error", err)
		return claims, nil
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

// PurgeExpiredCodes removes consumed codes and codes that expired before
// the retention window.
func (s *Service) PurgeExpiredCodes(ctx context.Context, retention time.Duration) {
	n, err := s.repo.DeleteExpired(ctx, s.now().Add(-retention))
	if err != nil {
		slog.WarnContext(ctx, "purge otp codes failed", "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "purged otp codes", "count", n)
	}
}

// RunPurge calls PurgeExpiredCodes every interval until ctx is done.
func (s *Service) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PurgeExpiredCodes(ctx, interval)
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isMobileConflict(err error) bool {
	return errors.Is(err, ErrMobileTaken)
}
