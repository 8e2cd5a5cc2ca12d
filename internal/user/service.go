// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/car-rental-backend/internal/auth"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/ident"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

type Service struct {
	repo    Repository
	readers *mirror.Picker[Reader]
	mirror  mirror.Mirror
	hooks   *mirror.Hooks
}

func NewService(
	repo Repository,
	readers *mirror.Picker[Reader],
	m mirror.Mirror,
	hooks *mirror.Hooks,
) *Service {
	return &Service{
		repo:    repo,
		readers: readers,
		mirror:  m,
		hooks:   hooks,
	}
}

// FindForLogin resolves an email to a primary user. A user known only to
// the mirror store gets a primary copy, and the mirror document is linked
// to the new row.
func (s *Service) FindForLogin(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return toUserInfo(user), nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	reader, src := s.readers.Pick(ctx)
	if src != mirror.SourceMirror {
		return nil, err
	}

	doc, mirrorErr := reader.GetByEmail(ctx, email)
	if mirrorErr != nil {
		if !errors.Is(mirrorErr, core.ErrNotFound) {
			slog.WarnContext(ctx, "mirror user lookup failed",
				"error", mirrorErr,
			)
		}
		return nil, err
	}

	if doc.ID != 0 {
		return nil, err
	}

	shadow := &User{
		Email:        email,
		Mobile:       doc.Mobile,
		FullName:     doc.FullName,
		PasswordHash: doc.PasswordHash,
		Role:         doc.Role,
		IsActive:     doc.IsActive,
	}
	if !ValidRole(shadow.Role) {
		shadow.Role = RoleUser
	}

	if err := s.repo.Create(ctx, shadow); err != nil {
		return nil, fmt.Errorf("copy mirror user: %w", err)
	}

	s.hooks.RunFor(ctx, mirror.Key(mirror.KindUsers, shadow.ID), "user.link",
		mirror.LinkHook(s.mirror, mirror.KindUsers, doc.MirrorID, shadow.ID, *shadow),
	)

	return toUserInfo(shadow), nil
}

// EmailExists reports whether a live account uses the email in either
// store.
func (s *Service) EmailExists(
	ctx context.Context,
	email string,
) (bool, error) {
	email = NormalizeEmail(email)

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	reader, src := s.readers.Pick(ctx)
	if src != mirror.SourceMirror {
		return false, nil
	}

	_, err = reader.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, core.ErrNotFound):
		return false, nil
	default:
		slog.WarnContext(ctx, "mirror email lookup failed", "error", err)
		return false, nil
	}
}

func (s *Service) CreatePasswordless(
	ctx context.Context,
	email, fullName, mobile string,
) (*auth.UserInfo, error) {
	user := &User{
		Email:    NormalizeEmail(email),
		Mobile:   mobilePtr(mobile),
		FullName: fullName,
		Role:     RoleUser,
		IsActive: true,
	}

	if user.Mobile != nil {
		taken, err := s.repo.ExistsByMobile(ctx, *user.Mobile, 0)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("create user: %w: %w", ErrMobileTaken, core.ErrDuplicateKey)
		}
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.mirrorUser(ctx, "user.create", user)

	return toUserInfo(user), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	id int64,
	passwordHash string,
) error {
	if err := s.repo.UpdatePassword(ctx, id, passwordHash); err != nil {
		return err
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil
	}
	s.mirrorUser(ctx, "user.password", user)

	return nil
}

func (s *Service) GetMe(ctx context.Context, userID int64) (*User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateMe(
	ctx context.Context,
	userID int64,
	req UpdateMeRequest,
) (*User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("update me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}

	if req.Mobile != nil {
		user.Mobile = mobilePtr(*req.Mobile)
		if user.Mobile != nil {
			taken, err := s.repo.ExistsByMobile(ctx, *user.Mobile, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, fmt.Errorf("update me: %w: %w", ErrMobileTaken, core.ErrDuplicateKey)
			}
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.mirrorUser(ctx, "user.update", user)

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id ident.ID) (*User, error) {
	user, _, err := mirror.ReadWithFallback(ctx, s.readers, "user.GetByID",
		func(ctx context.Context, r Reader) (*User, error) {
			return r.GetByID(ctx, id)
		},
	)
	return user, err
}

func (s *Service) LookupByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)

	user, _, err := mirror.ReadWithFallback(ctx, s.readers, "user.GetByEmail",
		func(ctx context.Context, r Reader) (*User, error) {
			return r.GetByEmail(ctx, email)
		},
	)
	return user, err
}

type userPage struct {
	users []User
	total int
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	page, _, err := mirror.ReadWithFallback(ctx, s.readers, "user.List",
		func(ctx context.Context, r Reader) (userPage, error) {
			users, total, err := r.List(ctx, params)
			return userPage{users: users, total: total}, err
		},
	)
	if err != nil {
		return nil, 0, err
	}

	return page.users, page.total, nil
}

func (s *Service) UpdateUserRole(
	ctx context.Context,
	id ident.ID,
	role string,
) (*User, error) {
	if !ValidRole(role) {
		return nil, fmt.Errorf(
			"update role: invalid role %q: %w",
			role,
			core.ErrInvalidInput,
		)
	}

	return s.updatePrimary(ctx, id, "user.role", func(u *User) {
		u.Role = role
	})
}

func (s *Service) SetActive(
	ctx context.Context,
	id ident.ID,
	active bool,
) (*User, error) {
	return s.updatePrimary(ctx, id, "user.active", func(u *User) {
		u.IsActive = active
	})
}

func (s *Service) DeleteUser(ctx context.Context, id ident.ID) error {
	n, ok := id.PrimaryID()
	if !ok {
		return fmt.Errorf("delete user %s: %w", id, core.ErrNotFound)
	}

	user, err := s.repo.SoftDelete(ctx, n)
	if err != nil {
		return err
	}

	s.mirrorUser(ctx, "user.delete", user)

	return nil
}

func (s *Service) updatePrimary(
	ctx context.Context,
	id ident.ID,
	hook string,
	apply func(u *User),
) (*User, error) {
	n, ok := id.PrimaryID()
	if !ok {
		return nil, fmt.Errorf("update user %s: %w", id, core.ErrNotFound)
	}

	user, err := s.repo.GetByID(ctx, n)
	if err != nil {
		return nil, err
	}

	apply(user)

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.mirrorUser(ctx, hook, user)

	return user, nil
}

func (s *Service) mirrorUser(ctx context.Context, hook string, user *User) {
	s.hooks.RunFor(ctx, mirror.Key(mirror.KindUsers, user.ID), hook,
		mirror.UpsertHook(s.mirror, mirror.KindUsers, user.ID, *user),
	)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Email:        u.Email,
		Mobile:       u.Mobile,
		FullName:     u.FullName,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
	}
}

var _ auth.UserProvider = (*Service)(nil)
