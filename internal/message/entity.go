// AngelaMos | 2026
// entity.go

package message

import (
	"time"
)

const (
	StatusNew     = "new"
	StatusReplied = "replied"
)

// Message is a contact form submission.
type Message struct {
	ID        int64      `db:"id"         bson:"pgId"`
	Name      string     `db:"name"       bson:"name"`
	Email     string     `db:"email"      bson:"email"`
	Message   string     `db:"message"    bson:"message"`
	Status    string     `db:"status"     bson:"status"`
	Reply     *string    `db:"reply"      bson:"reply"`
	RepliedAt *time.Time `db:"replied_at" bson:"repliedAt"`
	CreatedAt time.Time  `db:"created_at" bson:"createdAt"`
}
