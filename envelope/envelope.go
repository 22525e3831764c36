// Package envelope provides the structured message wrapper that the
// lifecycle engine's collaborators (event processor, dead-letter queue,
// token store) exchange: a CQRS command or event carried alongside the
// routing and causation metadata needed to process it exactly once and
// trace it back to whatever produced it.
package envelope

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes a command (an imperative request to change state) from
// an event (a fact that something already happened).
type Kind string

const (
	KindCommand Kind = "command"
	KindEvent   Kind = "event"
)

// Envelope wraps a payload with the metadata an event processor needs to
// route it, detect duplicates, and trace causation.
type Envelope struct {
	ID            string            `json:"id"`
	Kind          Kind              `json:"kind"`
	Type          string            `json:"type"`
	AggregateID   string            `json:"aggregate_id"`
	StreamID      string            `json:"stream_id"`
	Token         uint64            `json:"token"`
	Payload       []byte            `json:"payload"`
	Headers       map[string]string `json:"headers,omitempty"`
	CausationID   string            `json:"causation_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// IsCommand reports whether the envelope carries a command.
func (e *Envelope) IsCommand() bool {
	return e.Kind == KindCommand
}

// IsEvent reports whether the envelope carries an event.
func (e *Envelope) IsEvent() bool {
	return e.Kind == KindEvent
}

// Clone returns a deep-enough copy safe for a handler to mutate without
// affecting other handlers in the same bucket.
func (e *Envelope) Clone() *Envelope {
	clone := *e
	clone.Headers = maps.Clone(e.Headers)
	payload := make([]byte, len(e.Payload))
	copy(payload, e.Payload)
	clone.Payload = payload
	return &clone
}

func (e *Envelope) String() string {
	return fmt.Sprintf(
		"Envelope{ID: %s, Kind: %s, Type: %s, Stream: %s, Token: %d}",
		e.ID, e.Kind, e.Type, e.StreamID, e.Token,
	)
}

func generateID() string {
	return uuid.Must(uuid.NewV7()).String()
}
