// AngelaMos | 2026
// hooks.go

package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hook is a side effect run after a relational write has committed.
type Hook func(ctx context.Context) error

// Hooks runs post-commit side effects on their own goroutines. Each hook is
// isolated: an error or panic in one is logged and never reaches the
// request or the other hooks.
type Hooks struct {
	wg      sync.WaitGroup
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	tails map[string]chan struct{}
}

func NewHooks(timeout time.Duration, logger *slog.Logger) *Hooks {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		timeout: timeout,
		logger:  logger,
		tails:   map[string]chan struct{}{},
	}
}

// Key names one mirrored entity for RunFor.
func Key(kind Kind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// RunFor detaches the hooks of one committed write to the entity named by
// key from the request context and returns immediately. Batches sharing a
// key start only after the previous batch for that key has finished, so the
// mirror sees writes in commit order. Hooks within a batch run concurrently.
func (h *Hooks) RunFor(ctx context.Context, key, name string, hooks ...Hook) {
	base := context.WithoutCancel(ctx)
	done := make(chan struct{})

	h.mu.Lock()
	prev := h.tails[key]
	h.tails[key] = done
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			if h.tails[key] == done {
				delete(h.tails, key)
			}
			h.mu.Unlock()
			close(done)
		}()

		if prev != nil {
			<-prev
		}

		var batch sync.WaitGroup
		for i, hook := range hooks {
			if hook == nil {
				continue
			}
			batch.Add(1)
			go func() {
				defer batch.Done()
				h.runOne(base, name, i, hook)
			}()
		}
		batch.Wait()
	}()
}

func (h *Hooks) runOne(ctx context.Context, name string, index int, hook Hook) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("post-commit hook panicked",
				"hook", name,
				"index", index,
				"panic", fmt.Sprint(p),
			)
		}
	}()

	if err := hook(ctx); err != nil {
		h.logger.Warn("post-commit hook failed",
			"hook", name,
			"index", index,
			"error", err,
		)
	}
}

// Wait blocks until every started hook has returned or ctx is done.
func (h *Hooks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for hooks: %w", ctx.Err())
	}
}

func UpsertHook(m Mirror, kind Kind, id int64, row any) Hook {
	return func(ctx context.Context) error {
		return report(m.Upsert(ctx, kind, id, row))
	}
}

func DeleteHook(m Mirror, kind Kind, id int64) Hook {
	return func(ctx context.Context) error {
		return report(m.Delete(ctx, kind, id))
	}
}

func LinkHook(m Mirror, kind Kind, mirrorID string, id int64, row any) Hook {
	return func(ctx context.Context) error {
		return report(m.Link(ctx, kind, mirrorID, id, row))
	}
}

func report(o Outcome) error {
	if o.Skipped {
		if o.Err != nil {
			slog.Debug("mirror write skipped", "reason", o.Err)
		}
		return nil
	}
	return o.Err
}
