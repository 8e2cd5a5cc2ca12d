// AngelaMos | 2026
// entity.go

package user

import (
	"strings"
	"time"

	"github.com/carterperez-dev/car-rental-backend/internal/ident"
)

type User struct {
	ID           int64      `db:"id"            bson:"pgId"`
	Email        string     `db:"email"         bson:"email"`
	Mobile       *string    `db:"mobile"        bson:"mobile"`
	FullName     string     `db:"full_name"     bson:"fullName"`
	PasswordHash *string    `db:"password_hash" bson:"passwordHash"`
	Role         string     `db:"role"          bson:"role"`
	IsActive     bool       `db:"is_active"     bson:"isActive"`
	Deleted      bool       `db:"deleted"       bson:"deleted"`
	DeletedAt    *time.Time `db:"deleted_at"    bson:"deletedAt"`
	CreatedAt    time.Time  `db:"created_at"    bson:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at"    bson:"updatedAt"`

	MirrorID string `db:"-" bson:"-"`
}

func (u *User) PublicID() ident.ID {
	return ident.Of(u.ID, u.MirrorID)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

const (
	RoleUser  = "user"
	RoleHost  = "host"
	RoleAdmin = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleUser, RoleHost, RoleAdmin:
		return true
	}
	return false
}

// NormalizeEmail lowercases and trims an address. Applying it twice gives
// the same result as applying it once.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeMobile keeps only the digits of a phone number.
func NormalizeMobile(mobile string) string {
	var b strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mobilePtr returns the stored form of a mobile number, nil when it has no
// digits.
func mobilePtr(mobile string) *string {
	n := NormalizeMobile(mobile)
	if n == "" {
		return nil
	}
	return &n
}
