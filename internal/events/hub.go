// AngelaMos | 2026
// hub.go

package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	BookingCreated       = "booking_created"
	PayoutRequestCreated = "payout_request_created"
	PayoutRequestUpdated = "payout_request_updated"
)

const defaultBuffer = 16

type Event struct {
	Name string    `json:"event"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// Sink forwards events outside the process.
type Sink interface {
	Forward(ctx context.Context, ev Event) error
}

// Hub fans events out to live subscribers. Delivery is best effort and
// at most once: a subscriber that cannot keep up is dropped.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	sinks  []Sink
	buffer int
	logger *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (h *Hub) AddSink(s Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, s)
}

type Subscription struct {
	hub    *Hub
	events chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) Close() {
	s.hub.remove(s)
}

func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		hub:    h,
		events: make(chan Event, h.buffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers the event to every subscriber without blocking, then
// forwards it to the configured sinks. Sink failures are returned joined
// but never affect local delivery.
func (h *Hub) Publish(ctx context.Context, name string, data any) error {
	ev := Event{Name: name, Data: data, At: time.Now().UTC()}

	h.mu.Lock()
	for sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			h.dropLocked(sub)
			h.logger.Warn("dropping slow event subscriber", "event", name)
		}
	}
	sinks := append([]Sink(nil), h.sinks...)
	h.mu.Unlock()

	var errs []error
	for _, sink := range sinks {
		if err := sink.Forward(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("forward %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// Hook adapts Publish to a post-commit side effect.
func (h *Hub) Hook(name string, data any) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return h.Publish(ctx, name, data)
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

func (h *Hub) dropLocked(sub *Subscription) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.events)
}

// Close drops every subscriber so streaming handlers return.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.dropLocked(sub)
	}
}
