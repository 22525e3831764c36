package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/axonkit/uowkernel/deadletter"
	"github.com/axonkit/uowkernel/envelope"
	"github.com/axonkit/uowkernel/eventprocessor"
	"github.com/axonkit/uowkernel/observability"
	"github.com/axonkit/uowkernel/store"
	"github.com/axonkit/uowkernel/tokenstore"
)

func main() {
	var (
		stream  = flag.String("stream", "orders", "Stream ID to replay envelopes into")
		count   = flag.Int("count", 5, "Number of envelopes to generate")
		poison  = flag.Int("poison-at", -1, "Index (0-based) of an envelope to fail invocation, or -1 for none")
		verbose = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	observability.RegisterObserver("slog-demo", observability.NewSlogObserver(logger))

	envelopes := store.NewMemStore()
	tokens := tokenstore.New(store.NewMemStore())
	dead := deadletter.New(store.NewMemStore())

	invoke := func(_ context.Context, env *envelope.Envelope) ([]byte, error) {
		if int(env.Token)-1 == *poison {
			return nil, fmt.Errorf("simulated failure processing envelope at token %d", env.Token)
		}
		return []byte(fmt.Sprintf("handled:%s", env.Payload)), nil
	}

	cfg := eventprocessor.DefaultConfig()
	cfg.Observer = "slog-demo"
	processor := eventprocessor.New(cfg, tokens, dead, envelopes, nil, invoke)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	envs := make([]*envelope.Envelope, *count)
	for i := range envs {
		token := uint64(i + 1)
		envs[i] = envelope.NewCommand(*stream, "DemoCommand", []byte(fmt.Sprintf("payload-%d", i))).
			Token(token).
			Build()
	}

	result, err := processor.ProcessBatch(ctx, envs)
	if err != nil {
		log.Printf("batch completed with error: %v", err)
	}

	fmt.Printf("succeeded: %d\n", result.Succeeded)
	fmt.Printf("failed: %d\n", len(result.Failed))
	for _, f := range result.Failed {
		fmt.Printf("  envelope %s: %v\n", f.EnvelopeID, f.Err)
	}

	cur, err := tokens.Current(ctx, *stream)
	if err != nil {
		log.Fatalf("reading final token: %v", err)
	}
	fmt.Printf("stream %q token: %d\n", *stream, cur)

	records, err := dead.List(ctx)
	if err != nil {
		log.Fatalf("listing dead letters: %v", err)
	}
	fmt.Printf("dead-lettered: %d\n", len(records))
	for _, rec := range records {
		fmt.Printf("  %s failed in %s: %s\n", rec.EnvelopeID, rec.Phase.Name, rec.Cause)
	}
}
