// AngelaMos | 2026
// sender_test.go

package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
)

func TestUnconfiguredSender(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Port: 587})

	assert.False(t, s.Enabled())
	err := s.Send(context.Background(), Message{To: "a@b.c"})
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestMessages(t *testing.T) {
	otp := OTPMessage("a@b.c", "123456", "login", 10)
	assert.Contains(t, otp.Body, "123456")
	assert.Contains(t, otp.Body, "10 minutes")

	reply := ReplyMessage("a@b.c", "Asha", "Is the car available?", "Yes it is.")
	assert.Contains(t, reply.Body, "Hi Asha")
	assert.Contains(t, reply.Body, "Is the car available?")
}
