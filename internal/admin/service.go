// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/auth"
	"github.com/carterperez-dev/car-rental-backend/internal/config"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenIssuer interface {
	CreateAccessToken(claims auth.AccessTokenClaims) (string, time.Time, error)
}

type Service struct {
	repo Repository
	jwt  TokenIssuer
}

func NewService(repo Repository, jwt TokenIssuer) *Service {
	return &Service{repo: repo, jwt: jwt}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	a, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(req.Password, &a.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.repo.UpdatePassword(ctx, a.ID, newHash)
	}

	token, expiresAt, err := s.jwt.CreateAccessToken(auth.AccessTokenClaims{
		UserID: a.ID,
		Role:   middleware.RoleAdmin,
		Kind:   middleware.KindAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &AuthResponse{
		Admin:     toAdminResponse(a),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Seed creates the configured bootstrap admin when it does not exist yet.
func (s *Service) Seed(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}

	hash, err := core.HashPassword(cfg.SeedPassword)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	a := &Admin{
		Email:        strings.ToLower(strings.TrimSpace(cfg.SeedEmail)),
		PasswordHash: hash,
		Name:         cfg.SeedName,
	}

	created, err := s.repo.CreateIfMissing(ctx, a)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if created {
		slog.InfoContext(ctx, "seeded admin account", "email", a.Email)
	}

	return nil
}

func (s *Service) GetMe(ctx context.Context, id int64) (*AdminResponse, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := toAdminResponse(a)
	return &resp, nil
}
