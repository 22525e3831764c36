package lifecycle

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/axonkit/uowkernel/observability"
	"github.com/axonkit/uowkernel/phase"
	"github.com/axonkit/uowkernel/scheduler"
)

// Handler is a unit of work bound to a phase. It receives the
// ProcessingContext it was registered against so it can read/write the
// resource bag or inspect status predicates.
type Handler func(ctx context.Context, pc *ProcessingContext) error

// ErrorHandler is a terminal on_error hook: it receives the phase a handler
// failed in and the recorded cause. A panic from an ErrorHandler is recovered
// and reported as a warning-level event — it never aborts fan-out to other
// hooks.
type ErrorHandler func(ctx context.Context, pc *ProcessingContext, failedPhase phase.Phase, cause error)

// CompletionHandler is a terminal when_complete hook, fired exactly once on
// successful completion.
type CompletionHandler func(ctx context.Context, pc *ProcessingContext)

type registeredHandler struct {
	phase   phase.Phase
	handler Handler
}

// hookSlot implements an append-then-try-remove protocol: a hook is always
// appended to the queue; if the terminal state is already reached by the
// time it registers, the registrant attempts to claim it via CAS. Whoever
// wins the claim — the registrant or the completer draining the queue —
// runs the hook, and only once.
type hookSlot[H any] struct {
	handler H
	claimed atomic.Bool
}

func (s *hookSlot[H]) claim() bool {
	return s.claimed.CompareAndSwap(false, true)
}

// ProcessingContext is the running instance of a Unit of Work: it holds
// per-phase handler buckets, a current-phase cursor, a status word, the
// first-failure cause, terminal hook queues, and a resource bag. It reaches
// a terminal state exactly once.
type ProcessingContext struct {
	id string

	mu       sync.Mutex
	handlers map[phase.Phase][]Handler

	currentPhase atomic.Pointer[phase.Phase]
	status       statusWord
	errorCause   atomic.Pointer[HandlerFailure]

	hooksMu           sync.Mutex
	onErrorHooks      []*hookSlot[ErrorHandler]
	whenCompleteHooks []*hookSlot[CompletionHandler]

	resources *ResourceBag
	scheduler scheduler.Scheduler
	observer  observability.Observer
}

// NewContext creates a ProcessingContext with a random identifier, the
// inline scheduler, and a noop observer.
func NewContext() *ProcessingContext {
	return NewContextWithID(uuid.New().String())
}

// NewContextWithID creates a ProcessingContext with the given identifier.
func NewContextWithID(id string) *ProcessingContext {
	return NewContextWithScheduler(id, scheduler.Inline(), nil)
}

// NewContextWithScheduler creates a ProcessingContext with an explicit
// identifier, work scheduler, and observer.
func NewContextWithScheduler(id string, sched scheduler.Scheduler, observer observability.Observer) *ProcessingContext {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &ProcessingContext{
		id:        id,
		handlers:  make(map[phase.Phase][]Handler),
		resources: NewResourceBag(),
		scheduler: sched,
		observer:  observer,
	}
}

// ID returns the context's stable identifier.
func (pc *ProcessingContext) ID() string { return pc.id }

// Resources returns the ProcessingContext's ResourceBag.
func (pc *ProcessingContext) Resources() *ResourceBag { return pc.resources }

func (pc *ProcessingContext) IsStarted() bool { return pc.status.load() != NotStarted }
func (pc *ProcessingContext) IsCommitted() bool {
	s := pc.status.load()
	return s == CompletedOK || s == CompletedError
}
func (pc *ProcessingContext) IsError() bool    { return pc.status.load() == CompletedError }
func (pc *ProcessingContext) IsCompleted() bool { return pc.IsCommitted() }

func (pc *ProcessingContext) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	pc.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "lifecycle.ProcessingContext",
		Data:      data,
	})
}

// On registers a handler against phase p. It fails synchronously with an
// error wrapping ErrTooLate if the context has already advanced to or past
// p's order.
func (pc *ProcessingContext) On(ctx context.Context, p phase.Phase, h Handler) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if cur := pc.currentPhase.Load(); cur != nil && p.Order <= cur.Order {
		pc.emit(ctx, EventRegistrationLate, observability.LevelWarning, map[string]any{
			"requested_phase": p.String(),
			"current_phase":   cur.String(),
		})
		return &RegistrationError{Requested: p, Current: *cur}
	}

	pc.handlers[p] = append(pc.handlers[p], pc.safe(p, h))
	return nil
}

// OnError registers a terminal hook invoked exactly once when the context
// reaches CompletedError. If the context is already in CompletedError when
// OnError is called, the hook races the completer for the right to run it;
// exactly one of them wins, per the append-then-try-remove protocol.
func (pc *ProcessingContext) OnError(ctx context.Context, h ErrorHandler) {
	slot := &hookSlot[ErrorHandler]{handler: h}

	pc.hooksMu.Lock()
	pc.onErrorHooks = append(pc.onErrorHooks, slot)
	alreadyTerminal := pc.status.load() == CompletedError
	pc.hooksMu.Unlock()

	if !alreadyTerminal {
		return
	}
	if !slot.claim() {
		// The completer already claimed and will run (or has run) it.
		return
	}
	cause := pc.errorCause.Load()
	pc.dispatchErrorHook(ctx, slot, cause)
}

// WhenComplete registers a terminal hook invoked exactly once when the
// context reaches CompletedOK. Symmetric to OnError.
func (pc *ProcessingContext) WhenComplete(ctx context.Context, h CompletionHandler) {
	slot := &hookSlot[CompletionHandler]{handler: h}

	pc.hooksMu.Lock()
	pc.whenCompleteHooks = append(pc.whenCompleteHooks, slot)
	alreadyTerminal := pc.status.load() == CompletedOK
	pc.hooksMu.Unlock()

	if !alreadyTerminal {
		return
	}
	if !slot.claim() {
		return
	}
	pc.dispatchCompletionHook(ctx, slot)
}

// safe wraps a registered handler so that the first failure across the
// whole context is recorded exactly once via CAS, and any panic is
// converted into a returned error instead of crashing the dispatching
// goroutine.
func (pc *ProcessingContext) safe(p phase.Phase, h Handler) Handler {
	return func(ctx context.Context, self *ProcessingContext) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &HandlerFailure{Phase: p, Cause: panicToError(r)}
			}
			if err != nil {
				failure, ok := err.(*HandlerFailure)
				if !ok {
					failure = &HandlerFailure{Phase: p, Cause: err}
				}
				if self.errorCause.CompareAndSwap(nil, failure) {
					self.emit(ctx, EventHandlerFailure, observability.LevelError, map[string]any{
						"phase": p.String(),
						"cause": failure.Cause.Error(),
					})
				}
				err = failure
			}
		}()
		return h(ctx, self)
	}
}

// Commit atomically transitions the context from NotStarted to Started and
// drains every phase bucket in ascending order. It returns ErrAlreadyCommitted
// if called more than once. The returned error, if non-nil, is the first
// HandlerFailure encountered; later phases are not run, but every handler in
// the failing bucket still runs to completion.
func (pc *ProcessingContext) Commit(ctx context.Context) error {
	if !pc.status.compareAndSwap(NotStarted, Started) {
		return ErrAlreadyCommitted
	}

	pc.emit(ctx, EventCommitStart, observability.LevelInfo, nil)

	err := pc.drainAll(ctx)
	if err != nil {
		if cause := pc.errorCause.Load(); cause != nil {
			err = cause
		}
		pc.status.compareAndSwap(Started, CompletedError)
		pc.emit(ctx, EventCommitComplete, observability.LevelError, map[string]any{"error": err.Error()})
		pc.fanOutError(ctx)
		return err
	}

	pc.status.compareAndSwap(Started, CompletedOK)
	pc.emit(ctx, EventCommitComplete, observability.LevelInfo, nil)
	pc.fanOutComplete(ctx)
	return nil
}

// drainAll repeatedly takes the lowest-ordered remaining phase bucket and
// runs it, stopping on the first bucket that fails or when no buckets
// remain.
func (pc *ProcessingContext) drainAll(ctx context.Context) error {
	for {
		rep, bucket, ok := pc.nextBucket()
		if !ok {
			return nil
		}
		if err := pc.runPhase(ctx, rep, bucket); err != nil {
			return err
		}
	}
}

// nextBucket removes and returns the lowest-ordered non-empty set of
// handlers sharing that order, and advances currentPhase to it — all while
// mu is still held. Advancing currentPhase here, rather than after mu is
// released, closes the window where a concurrent On(p) for the
// just-removed phase could observe a stale (earlier or unset) currentPhase
// and be wrongly re-admitted into a second bucket for a phase already
// drained.
func (pc *ProcessingContext) nextBucket() (phase.Phase, []registeredHandler, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if len(pc.handlers) == 0 {
		return phase.Phase{}, nil, false
	}

	phases := make([]phase.Phase, 0, len(pc.handlers))
	for p := range pc.handlers {
		phases = append(phases, p)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].Order < phases[j].Order })

	minOrder := phases[0].Order
	var bucket []registeredHandler
	rep := phases[0]
	for _, p := range phases {
		if p.Order != minOrder {
			break
		}
		for _, h := range pc.handlers[p] {
			bucket = append(bucket, registeredHandler{phase: p, handler: h})
		}
		delete(pc.handlers, p)
	}
	pc.currentPhase.Store(&rep)
	return rep, bucket, true
}

// runPhase dispatches every handler in the bucket onto the scheduler and
// waits for all of them. No short-circuit: even after one handler fails,
// the rest of the bucket still runs to completion.
func (pc *ProcessingContext) runPhase(ctx context.Context, rep phase.Phase, bucket []registeredHandler) error {
	pc.emit(ctx, EventPhaseStart, observability.LevelInfo, map[string]any{
		"phase":         rep.String(),
		"handler_count": len(bucket),
	})

	if len(bucket) == 0 {
		pc.emit(ctx, EventPhaseComplete, observability.LevelInfo, map[string]any{"phase": rep.String()})
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(bucket))
	wg.Add(len(bucket))

	for i, rh := range bucket {
		i, rh := i, rh
		submitErr := pc.scheduler.Submit(func() {
			defer wg.Done()
			pc.emit(ctx, EventHandlerDispatch, observability.LevelVerbose, map[string]any{"phase": rh.phase.String()})
			errs[i] = rh.handler(ctx, pc)
		})
		if submitErr != nil {
			errs[i] = submitErr
			wg.Done()
		}
	}
	wg.Wait()

	var first error
	for _, e := range errs {
		if e != nil {
			first = e
			break
		}
	}

	pc.emit(ctx, EventPhaseComplete, observability.LevelInfo, map[string]any{
		"phase":   rep.String(),
		"failed":  first != nil,
	})
	return first
}

func (pc *ProcessingContext) fanOutError(ctx context.Context) {
	cause := pc.errorCause.Load()
	for {
		pc.hooksMu.Lock()
		var next *hookSlot[ErrorHandler]
		for _, slot := range pc.onErrorHooks {
			if !slot.claimed.Load() {
				next = slot
				break
			}
		}
		if next == nil {
			pc.hooksMu.Unlock()
			return
		}
		pc.hooksMu.Unlock()

		if !next.claim() {
			continue
		}
		pc.dispatchErrorHook(ctx, next, cause)
	}
}

func (pc *ProcessingContext) fanOutComplete(ctx context.Context) {
	for {
		pc.hooksMu.Lock()
		var next *hookSlot[CompletionHandler]
		for _, slot := range pc.whenCompleteHooks {
			if !slot.claimed.Load() {
				next = slot
				break
			}
		}
		if next == nil {
			pc.hooksMu.Unlock()
			return
		}
		pc.hooksMu.Unlock()

		if !next.claim() {
			continue
		}
		pc.dispatchCompletionHook(ctx, next)
	}
}

func (pc *ProcessingContext) dispatchErrorHook(ctx context.Context, slot *hookSlot[ErrorHandler], cause *HandlerFailure) {
	_ = pc.scheduler.Submit(func() {
		defer pc.recoverHook(ctx)
		var p phase.Phase
		var c error
		if cause != nil {
			p, c = cause.Phase, cause.Cause
		}
		pc.emit(ctx, EventHookDispatch, observability.LevelVerbose, map[string]any{"hook": "on_error"})
		slot.handler(ctx, pc, p, c)
	})
}

func (pc *ProcessingContext) dispatchCompletionHook(ctx context.Context, slot *hookSlot[CompletionHandler]) {
	_ = pc.scheduler.Submit(func() {
		defer pc.recoverHook(ctx)
		pc.emit(ctx, EventHookDispatch, observability.LevelVerbose, map[string]any{"hook": "when_complete"})
		slot.handler(ctx, pc)
	})
}

func (pc *ProcessingContext) recoverHook(ctx context.Context) {
	if r := recover(); r != nil {
		pc.emit(ctx, EventHookPanic, observability.LevelWarning, map[string]any{
			"recovered": panicToError(r).Error(),
		})
	}
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicValue{r}
}

type panicValue struct{ v any }

func (p *panicValue) Error() string { return "panic: " + formatAny(p.v) }

func formatAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "non-error panic value"
}
