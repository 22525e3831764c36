package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/axonkit/uowkernel/deadletter"
	"github.com/axonkit/uowkernel/envelope"
	"github.com/axonkit/uowkernel/lifecycle"
	"github.com/axonkit/uowkernel/observability"
	"github.com/axonkit/uowkernel/phase"
	"github.com/axonkit/uowkernel/scheduler"
	"github.com/axonkit/uowkernel/store"
	"github.com/axonkit/uowkernel/tokenstore"
)

// Validator rejects an envelope before it reaches invocation.
type Validator func(ctx context.Context, env *envelope.Envelope) error

// Invocation performs the envelope's actual work, returning the payload to
// persist as the committed result.
type Invocation func(ctx context.Context, env *envelope.Envelope) ([]byte, error)

// Processor drives envelopes through the lifecycle contract: validate and
// invoke at phase.Invocation, advance the stream token at
// phase.PrepareCommit, persist the committed envelope at phase.Commit, and
// dead-letter anything that fails.
type Processor struct {
	tokens      *tokenstore.TokenStore
	deadletters *deadletter.Queue
	envelopes   store.Store
	scheduler   scheduler.Scheduler
	observer    observability.Observer

	validate Validator
	invoke   Invocation
}

// New creates a Processor. validate and invoke may be nil; a nil validate
// accepts everything, a nil invoke is a pass-through that commits the
// envelope's existing payload unchanged.
func New(cfg *Config, tokens *tokenstore.TokenStore, deadletters *deadletter.Queue, envelopes store.Store, validate Validator, invoke Invocation) *Processor {
	if cfg == nil {
		cfg = DefaultConfig()
	}

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

	if validate == nil {
		validate = func(context.Context, *envelope.Envelope) error { return nil }
	}
	if invoke == nil {
		invoke = func(_ context.Context, env *envelope.Envelope) ([]byte, error) { return env.Payload, nil }
	}

	return &Processor{
		tokens:      tokens,
		deadletters: deadletters,
		envelopes:   envelopes,
		scheduler:   sched,
		observer:    observer,
		validate:    validate,
		invoke:      invoke,
	}
}

func envelopeKey(id string) string {
	return store.NamespaceEnvelopes + "/" + id
}

// ProcessOne drives a single envelope through its own Unit of Work. On
// failure the envelope is dead-lettered exactly once, with the same phase
// and cause the Unit of Work's Execute reports.
func (p *Processor) ProcessOne(ctx context.Context, env *envelope.Envelope) error {
	uow := lifecycle.NewWithScheduler(env.ID, p.scheduler, p.observer)

	uow.OnError(ctx, func(ctx context.Context, _ *lifecycle.ProcessingContext, failedPhase phase.Phase, cause error) {
		if p.deadletters == nil {
			return
		}
		_ = p.deadletters.Enqueue(ctx, env.ID, failedPhase, cause, env.Payload)
	})

	err := uow.On(ctx, phase.Invocation, func(ctx context.Context, _ *lifecycle.ProcessingContext) error {
		if err := p.validate(ctx, env); err != nil {
			return fmt.Errorf("eventprocessor: validate %s: %w", env.ID, err)
		}
		committed, err := p.invoke(ctx, env)
		if err != nil {
			return fmt.Errorf("eventprocessor: invoke %s: %w", env.ID, err)
		}
		env.Payload = committed
		return nil
	})
	if err != nil {
		return err
	}

	if p.tokens != nil {
		err = uow.On(ctx, phase.PrepareCommit, func(ctx context.Context, _ *lifecycle.ProcessingContext) error {
			return p.tokens.Advance(ctx, env.StreamID, env.Token)
		})
		if err != nil {
			return err
		}
	}

	if p.envelopes != nil {
		err = uow.On(ctx, phase.Commit, func(ctx context.Context, _ *lifecycle.ProcessingContext) error {
			return p.envelopes.Save(ctx, store.Entry{Key: envelopeKey(env.ID), Value: env.Payload})
		})
		if err != nil {
			return err
		}
	}

	return uow.Execute(ctx)
}

// FailedEnvelope records one envelope's failure within a batch.
type FailedEnvelope struct {
	EnvelopeID string
	Err        error
}

// BatchResult summarizes a ProcessBatch run.
type BatchResult struct {
	Succeeded int
	Failed    []FailedEnvelope
}

type batchOutcome struct {
	index int
	id    string
	err   error
}

// ProcessBatch fans a batch of envelopes out over its own goroutines — one
// per envelope, calling ProcessOne directly rather than going through
// p.scheduler — and aggregates the outcome. A failure in one envelope never
// stops the others from processing.
//
// Batch-level fan-out is deliberately kept off p.scheduler: each ProcessOne
// builds a Unit of Work against that same scheduler, and its Commit blocks
// the calling goroutine in a wg.Wait() for its own handlers to drain. If
// p.scheduler were a bounded pool and batch fan-out submitted ProcessOne
// itself as a pool task, a batch at least as large as the pool's worker
// count would fill every worker with a blocked ProcessOne, leaving no
// worker free to run the handler tasks those ProcessOne calls submit —
// deadlock. Running batch fan-out on unbounded goroutines instead means
// pool occupancy is only ever contended by handler dispatch, never by the
// outer batch loop.
func (p *Processor) ProcessBatch(ctx context.Context, envs []*envelope.Envelope) (BatchResult, error) {
	if len(envs) == 0 {
		return BatchResult{}, nil
	}

	outcomes := make([]batchOutcome, len(envs))
	var wg sync.WaitGroup
	wg.Add(len(envs))

	for i, env := range envs {
		i, env := i, env
		go func() {
			defer wg.Done()
			err := p.ProcessOne(ctx, env)
			outcomes[i] = batchOutcome{index: i, id: env.ID, err: err}
		}()
	}
	wg.Wait()

	result := BatchResult{}
	for _, o := range outcomes {
		if o.err != nil {
			result.Failed = append(result.Failed, FailedEnvelope{EnvelopeID: o.id, Err: o.err})
		} else {
			result.Succeeded++
		}
	}
	sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i].EnvelopeID < result.Failed[j].EnvelopeID })

	if len(result.Failed) == len(envs) {
		return result, errors.New("eventprocessor: all envelopes in batch failed")
	}
	return result, nil
}
