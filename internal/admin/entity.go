// AngelaMos | 2026
// entity.go

package admin

import (
	"time"
)

// Admin is a back-office account. Admins live in their own table and are
// never mirrored.
type Admin struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	CreatedAt    time.Time `db:"created_at"`
}
