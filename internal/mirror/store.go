// AngelaMos | 2026
// store.go

package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/carterperez-dev/car-rental-backend/internal/config"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

var ErrUnreachable = errors.New("mirror store unreachable")

// Store runs operations against the document store behind a circuit
// breaker. A nil *Store behaves as an unconfigured store.
type Store struct {
	mongo   *core.Mongo
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	logger  *slog.Logger
}

func NewStore(
	m *core.Mongo,
	cfg config.MongoConfig,
	logger *slog.Logger,
) *Store {
	return &Store{
		mongo:   m,
		breaker: circuitBreaker("mongo-mirror", cfg, logger),
		tracer:  otel.Tracer("mirror"),
		logger:  logger,
	}
}

func circuitBreaker(
	name string,
	cfg config.MongoConfig,
	logger *slog.Logger,
) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, mongo.ErrNoDocuments) ||
				errors.Is(err, core.ErrNotFound)
		},
	})
}

func (s *Store) Configured() bool {
	return s != nil && s.mongo.Enabled()
}

// Reachable reports whether a caller should try the document store. The
// breaker answers without dialing while it is open.
func (s *Store) Reachable(ctx context.Context) bool {
	if !s.Configured() {
		return false
	}

	err := s.Execute(ctx, "mirror.Reachable",
		func(context.Context, *mongo.Database) error { return nil },
	)
	return err == nil
}

// Execute runs fn with the mirror database. Connection failures, an open
// breaker and driver network errors are reported wrapped in ErrUnreachable.
// Panics raised inside fn are converted into errors.
func (s *Store) Execute(
	ctx context.Context,
	op string,
	fn func(ctx context.Context, db *mongo.Database) error,
) error {
	if !s.Configured() {
		return fmt.Errorf("%s: %w", op, ErrUnreachable)
	}

	ctx, span := s.tracer.Start(ctx, op)
	defer span.End()

	_, err := s.breaker.Execute(func() (result any, runErr error) {
		defer func() {
			if p := recover(); p != nil {
				runErr = fmt.Errorf("panic: %v", p)
			}
		}()

		db, dbErr := s.mongo.Database(ctx)
		if dbErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, dbErr)
		}

		return nil, fn(ctx, db)
	})
	if err == nil {
		return nil
	}

	if isUnreachable(err) && !errors.Is(err, ErrUnreachable) {
		err = fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	if errors.Is(err, gobreaker.ErrOpenState) {
		core.AddSpanEvent(ctx, "breaker open")
	}
	if !errors.Is(err, core.ErrNotFound) {
		core.SetSpanError(ctx, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Execute(ctx, "mirror.Ping",
		func(ctx context.Context, db *mongo.Database) error {
			return s.mongo.Ping(ctx)
		},
	)
}

type Status struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	Breaker    string `json:"breaker"`
	Failures   uint32 `json:"consecutive_failures"`
}

func (s *Store) Status(ctx context.Context) Status {
	if !s.Configured() {
		return Status{Breaker: "disabled"}
	}

	reachable := s.Reachable(ctx)
	counts := s.breaker.Counts()

	return Status{
		Configured: true,
		Reachable:  reachable,
		Breaker:    s.breaker.State().String(),
		Failures:   counts.ConsecutiveFailures,
	}
}

func isUnreachable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, mongo.ErrClientDisconnected)
}
