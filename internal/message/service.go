// AngelaMos | 2026
// service.go

package message

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/mail"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
)

// Service manages contact messages. Reads always go to the relational
// store.
type Service struct {
	repo   Repository
	mailer mail.Sender
	mirror mirror.Mirror
	hooks  *mirror.Hooks
}

func NewService(repo Repository, mailer mail.Sender, m mirror.Mirror, hooks *mirror.Hooks) *Service {
	return &Service{
		repo:   repo,
		mailer: mailer,
		mirror: m,
		hooks:  hooks,
	}
}

func (s *Service) Create(ctx context.Context, req CreateMessageRequest) (*Message, error) {
	m := &Message{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Message: strings.TrimSpace(req.Message),
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.mirrorMessage(ctx, "message.create", m)

	return m, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Message, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Message, int, error) {
	return s.repo.List(ctx, params)
}

// Reply emails the sender and records the reply. Nothing is recorded when
// the email cannot be sent.
func (s *Service) Reply(ctx context.Context, id int64, reply string) (*Message, error) {
	if s.mailer == nil || !s.mailer.Enabled() {
		return nil, fmt.Errorf("email is not configured: %w", core.ErrUnavailable)
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, mail.ReplyMessage(m.Email, m.Name, m.Message, reply)); err != nil {
		slog.Warn("send message reply", "message_id", id, "error", err)
		return nil, fmt.Errorf("reply email could not be sent: %w", core.ErrUnavailable)
	}

	updated, err := s.repo.SetReply(ctx, id, reply)
	if err != nil {
		return nil, err
	}

	s.mirrorMessage(ctx, "message.reply", updated)

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.hooks.RunFor(ctx, mirror.Key(mirror.KindMessages, id), "message.delete",
		mirror.DeleteHook(s.mirror, mirror.KindMessages, id),
	)

	return nil
}

func (s *Service) mirrorMessage(ctx context.Context, hook string, m *Message) {
	s.hooks.RunFor(ctx, mirror.Key(mirror.KindMessages, m.ID), hook,
		mirror.UpsertHook(s.mirror, mirror.KindMessages, m.ID, *m),
	)
}
