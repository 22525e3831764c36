package eventprocessor_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/axonkit/uowkernel/deadletter"
	"github.com/axonkit/uowkernel/envelope"
	"github.com/axonkit/uowkernel/eventprocessor"
	"github.com/axonkit/uowkernel/store"
	"github.com/axonkit/uowkernel/tokenstore"
)

func TestProcessOne_HappyPath_CommitsEnvelopeAndAdvancesToken(t *testing.T) {
	ctx := context.Background()
	envelopes := store.NewMemStore()
	tokens := tokenstore.New(store.NewMemStore())
	dead := deadletter.New(store.NewMemStore())

	invoke := func(_ context.Context, env *envelope.Envelope) ([]byte, error) {
		return []byte("processed:" + string(env.Payload)), nil
	}

	p := eventprocessor.New(eventprocessor.DefaultConfig(), tokens, dead, envelopes, nil, invoke)

	env := envelope.NewCommand("orders", "PlaceOrder", []byte("order-1")).Token(1).Build()
	if err := p.ProcessOne(ctx, env); err != nil {
		t.Fatalf("ProcessOne() error = %v", err)
	}

	entries, err := envelopes.Load(ctx, store.NamespaceEnvelopes+"/"+env.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(entries[0].Value, []byte("processed:order-1")) {
		t.Errorf("committed payload = %s, want processed:order-1", entries[0].Value)
	}

	cur, err := tokens.Current(ctx, "orders")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cur != 1 {
		t.Errorf("token = %d, want 1", cur)
	}

	records, err := dead.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("dead-letter records = %+v, want none", records)
	}
}

func TestProcessOne_HappyPath_OverFileBackedStore(t *testing.T) {
	ctx := context.Background()

	envelopesPath := t.TempDir() + "/envelopes"
	envelopes, err := store.NewStore(&store.Config{Path: envelopesPath})
	if err != nil {
		t.Fatalf("store.NewStore(envelopes) error = %v", err)
	}
	tokenBacking, err := store.NewStore(&store.Config{Path: t.TempDir() + "/tokens"})
	if err != nil {
		t.Fatalf("store.NewStore(tokens) error = %v", err)
	}
	deadBacking, err := store.NewStore(&store.Config{Path: t.TempDir() + "/deadletters"})
	if err != nil {
		t.Fatalf("store.NewStore(deadletters) error = %v", err)
	}

	tokens := tokenstore.New(tokenBacking)
	dead := deadletter.New(deadBacking)

	invoke := func(_ context.Context, env *envelope.Envelope) ([]byte, error) {
		return []byte("processed:" + string(env.Payload)), nil
	}

	p := eventprocessor.New(eventprocessor.DefaultConfig(), tokens, dead, envelopes, nil, invoke)

	env := envelope.NewCommand("orders", "PlaceOrder", []byte("order-1")).Token(1).Build()
	if err := p.ProcessOne(ctx, env); err != nil {
		t.Fatalf("ProcessOne() error = %v", err)
	}

	entries, err := envelopes.Load(ctx, store.NamespaceEnvelopes+"/"+env.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(entries[0].Value, []byte("processed:order-1")) {
		t.Errorf("committed payload = %s, want processed:order-1", entries[0].Value)
	}

	cur, err := tokens.Current(ctx, "orders")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cur != 1 {
		t.Errorf("token = %d, want 1", cur)
	}

	// A second store instance rooted at the same path must see the
	// committed envelope, proving the commit reached disk rather than only
	// an in-memory fixture.
	reopenedEnvelopes, err := store.NewStore(&store.Config{Path: envelopesPath})
	if err != nil {
		t.Fatalf("reopening envelope store: %v", err)
	}
	if _, err := reopenedEnvelopes.Load(ctx, store.NamespaceEnvelopes+"/"+env.ID); err != nil {
		t.Fatalf("Load() from reopened store error = %v", err)
	}
}

func TestProcessOne_ValidationFailure_DeadLettersAndSkipsCommit(t *testing.T) {
	ctx := context.Background()
	envelopes := store.NewMemStore()
	dead := deadletter.New(store.NewMemStore())

	wantErr := errors.New("missing order id")
	validate := func(_ context.Context, env *envelope.Envelope) error { return wantErr }

	p := eventprocessor.New(eventprocessor.DefaultConfig(), nil, dead, envelopes, validate, nil)
	env := envelope.NewCommand("orders", "PlaceOrder", []byte("bad")).Build()

	err := p.ProcessOne(ctx, env)
	if err == nil {
		t.Fatal("ProcessOne() error = nil, want non-nil")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("ProcessOne() error = %v, want wrapping %v", err, wantErr)
	}

	if _, loadErr := envelopes.Load(ctx, store.NamespaceEnvelopes+"/"+env.ID); loadErr == nil {
		t.Error("envelope was committed despite validation failure")
	}

	records, listErr := dead.List(ctx)
	if listErr != nil {
		t.Fatalf("List() error = %v", listErr)
	}
	if len(records) != 1 {
		t.Fatalf("dead-letter records = %+v, want exactly 1", records)
	}
	if records[0].EnvelopeID != env.ID {
		t.Errorf("EnvelopeID = %v, want %v", records[0].EnvelopeID, env.ID)
	}
}

func TestProcessBatch_PartialFailure(t *testing.T) {
	ctx := context.Background()
	envelopes := store.NewMemStore()
	dead := deadletter.New(store.NewMemStore())

	invoke := func(_ context.Context, env *envelope.Envelope) ([]byte, error) {
		if string(env.Payload) == "poison" {
			return nil, errors.New("cannot process poison payload")
		}
		return env.Payload, nil
	}

	p := eventprocessor.New(eventprocessor.DefaultConfig(), nil, dead, envelopes, nil, invoke)

	envs := []*envelope.Envelope{
		envelope.NewCommand("orders", "PlaceOrder", []byte("good-1")).Build(),
		envelope.NewCommand("orders", "PlaceOrder", []byte("poison")).Build(),
		envelope.NewCommand("orders", "PlaceOrder", []byte("good-2")).Build(),
	}

	result, err := p.ProcessBatch(ctx, envs)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("Failed = %+v, want exactly 1 entry", result.Failed)
	}
	if result.Failed[0].EnvelopeID != envs[1].ID {
		t.Errorf("Failed[0].EnvelopeID = %v, want %v", result.Failed[0].EnvelopeID, envs[1].ID)
	}
}

func TestProcessBatch_AllFail(t *testing.T) {
	ctx := context.Background()
	dead := deadletter.New(store.NewMemStore())

	invoke := func(_ context.Context, _ *envelope.Envelope) ([]byte, error) {
		return nil, errors.New("always fails")
	}
	p := eventprocessor.New(eventprocessor.DefaultConfig(), nil, dead, store.NewMemStore(), nil, invoke)

	envs := []*envelope.Envelope{
		envelope.NewCommand("orders", "PlaceOrder", []byte("a")).Build(),
		envelope.NewCommand("orders", "PlaceOrder", []byte("b")).Build(),
	}

	result, err := p.ProcessBatch(ctx, envs)
	if err == nil {
		t.Fatal("ProcessBatch() error = nil, want non-nil when all envelopes fail")
	}
	if len(result.Failed) != 2 {
		t.Errorf("Failed = %+v, want 2 entries", result.Failed)
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	p := eventprocessor.New(eventprocessor.DefaultConfig(), nil, nil, nil, nil, nil)
	result, err := p.ProcessBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.Succeeded != 0 || len(result.Failed) != 0 {
		t.Errorf("result = %+v, want zero value", result)
	}
}

// TestProcessBatch_WithPoolScheduler_DoesNotDeadlock exercises a batch
// larger than the pool's worker cap with Config.Scheduler == "pool": each
// ProcessOne's own Unit of Work dispatches its handlers onto the same pool
// that drives the batch. If batch fan-out itself went through that pool,
// a batch at least as large as the worker count would deadlock (every
// worker parked in ProcessOne's wg.Wait, none left to run the handler
// tasks it submits). Batch fan-out runs on its own goroutines instead, so
// this completes regardless of pool size.
func TestProcessBatch_WithPoolScheduler_DoesNotDeadlock(t *testing.T) {
	cfg := &eventprocessor.Config{Observer: "noop", Scheduler: "pool"}
	envelopes := store.NewMemStore()
	dead := deadletter.New(store.NewMemStore())

	invoke := func(_ context.Context, env *envelope.Envelope) ([]byte, error) {
		return env.Payload, nil
	}
	p := eventprocessor.New(cfg, nil, dead, envelopes, nil, invoke)

	// DefaultPoolConfig caps workers at 16 regardless of host CPU count, so
	// a batch of 20 is guaranteed to exceed the pool's worker count.
	const batchSize = 20
	envs := make([]*envelope.Envelope, batchSize)
	for i := range envs {
		envs[i] = envelope.NewCommand("orders", "PlaceOrder", []byte("payload")).Build()
	}

	result, err := p.ProcessBatch(context.Background(), envs)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.Succeeded != batchSize {
		t.Errorf("Succeeded = %d, want %d", result.Succeeded, batchSize)
	}
}
