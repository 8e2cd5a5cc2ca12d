// AngelaMos | 2026
// resolve.go

package mirror

import (
	"context"
	"errors"
	"log/slog"

	"github.com/carterperez-dev/car-rental-backend/internal/core"
)

type Source string

const (
	SourcePrimary Source = "primary"
	SourceMirror  Source = "mirror"
)

type Reachability interface {
	Reachable(ctx context.Context) bool
}

// Picker chooses which reader serves a read. One reachability check is made
// per call and the chosen reader serves the whole call.
type Picker[R any] struct {
	primary   R
	secondary R
	reach     Reachability
}

// NewPicker builds a picker. A nil reach always selects the primary reader.
func NewPicker[R any](primary, secondary R, reach Reachability) *Picker[R] {
	return &Picker[R]{primary: primary, secondary: secondary, reach: reach}
}

func (p *Picker[R]) Primary() R {
	return p.primary
}

func (p *Picker[R]) Pick(ctx context.Context) (R, Source) {
	if p.reach != nil && p.reach.Reachable(ctx) {
		return p.secondary, SourceMirror
	}
	return p.primary, SourcePrimary
}

// ReadWithFallback runs fn against the picked reader. Any error from the
// mirror reader reruns fn against the primary reader.
func ReadWithFallback[R, T any](
	ctx context.Context,
	p *Picker[R],
	op string,
	fn func(ctx context.Context, r R) (T, error),
) (T, Source, error) {
	r, src := p.Pick(ctx)

	if src == SourceMirror {
		v, err := fn(ctx, r)
		if err == nil {
			return v, SourceMirror, nil
		}

		level := slog.LevelWarn
		if errors.Is(err, core.ErrNotFound) {
			level = slog.LevelDebug
		}
		slog.Log(ctx, level, "mirror read failed, using primary",
			"op", op,
			"error", err,
		)
	}

	v, err := fn(ctx, p.primary)
	return v, SourcePrimary, err
}
