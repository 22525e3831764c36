package lifecycle

import (
	"context"

	"github.com/axonkit/uowkernel/observability"
	"github.com/axonkit/uowkernel/phase"
	"github.com/axonkit/uowkernel/scheduler"
)

// AsyncUnitOfWork is the user-facing façade over a ProcessingContext. It is
// a thin wrapper: every method delegates to the underlying context, adding
// only the ExecuteWithResult convenience for capturing a single invocation's
// return value.
type AsyncUnitOfWork struct {
	ctx *ProcessingContext
}

// New creates an AsyncUnitOfWork with a random identifier, the inline
// scheduler, and a noop observer.
func New() *AsyncUnitOfWork {
	return &AsyncUnitOfWork{ctx: NewContext()}
}

// NewWithID creates an AsyncUnitOfWork with the given stable identifier.
func NewWithID(id string) *AsyncUnitOfWork {
	return &AsyncUnitOfWork{ctx: NewContextWithID(id)}
}

// NewWithScheduler creates an AsyncUnitOfWork with an explicit identifier,
// work scheduler, and observer.
func NewWithScheduler(id string, sched scheduler.Scheduler, observer observability.Observer) *AsyncUnitOfWork {
	return &AsyncUnitOfWork{ctx: NewContextWithScheduler(id, sched, observer)}
}

// NewFromConfig creates an AsyncUnitOfWork wired from cfg: Observer is
// resolved via observability.GetObserver (an unknown name falls back to the
// noop observer), and Scheduler "pool" selects a goroutine pool with
// DefaultPoolConfig while any other value selects the inline scheduler.
func NewFromConfig(id string, cfg Config) *AsyncUnitOfWork {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		observer = observability.NoOpObserver{}
	}
	var sched scheduler.Scheduler
	switch cfg.Scheduler {
	case "pool":
		sched = scheduler.NewPool(scheduler.DefaultPoolConfig())
	default:
		sched = scheduler.Inline()
	}
	return NewWithScheduler(id, sched, observer)
}

// Context returns the underlying ProcessingContext.
func (u *AsyncUnitOfWork) Context() *ProcessingContext { return u.ctx }

// On registers a handler against phase p.
func (u *AsyncUnitOfWork) On(ctx context.Context, p phase.Phase, h Handler) error {
	return u.ctx.On(ctx, p, h)
}

// OnError registers a terminal on_error hook.
func (u *AsyncUnitOfWork) OnError(ctx context.Context, h ErrorHandler) {
	u.ctx.OnError(ctx, h)
}

// WhenComplete registers a terminal when_complete hook.
func (u *AsyncUnitOfWork) WhenComplete(ctx context.Context, h CompletionHandler) {
	u.ctx.WhenComplete(ctx, h)
}

// Execute drains the lifecycle. Equivalent to Context().Commit(ctx).
func (u *AsyncUnitOfWork) Execute(ctx context.Context) error {
	return u.ctx.Commit(ctx)
}

// ExecuteWithResult registers invocation on phase.Invocation, captures its
// return value, then executes the lifecycle. It returns the value
// invocation produced if execution succeeds, or the execution failure
// otherwise — the same failure Execute would have returned.
func ExecuteWithResult[R any](ctx context.Context, u *AsyncUnitOfWork, invocation func(ctx context.Context, pc *ProcessingContext) (R, error)) (R, error) {
	var result R
	err := u.On(ctx, phase.Invocation, func(ctx context.Context, pc *ProcessingContext) error {
		r, err := invocation(ctx, pc)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}

	if err := u.Execute(ctx); err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}
