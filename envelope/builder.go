package envelope

import "time"

// Builder constructs an Envelope fluently: every setter returns the
// builder itself.
type Builder struct {
	env *Envelope
}

func newBuilder(kind Kind, streamID, typ string, payload []byte) *Builder {
	return &Builder{
		env: &Envelope{
			ID:        generateID(),
			Kind:      kind,
			Type:      typ,
			StreamID:  streamID,
			Payload:   payload,
			Timestamp: time.Now(),
		},
	}
}

// NewCommand starts building a command envelope for the given stream.
func NewCommand(streamID, typ string, payload []byte) *Builder {
	return newBuilder(KindCommand, streamID, typ, payload)
}

// NewEvent starts building an event envelope for the given stream.
func NewEvent(streamID, typ string, payload []byte) *Builder {
	return newBuilder(KindEvent, streamID, typ, payload)
}

// AggregateID sets the ID of the aggregate this envelope targets or
// describes.
func (b *Builder) AggregateID(id string) *Builder {
	b.env.AggregateID = id
	return b
}

// Token sets the envelope's position within its stream.
func (b *Builder) Token(token uint64) *Builder {
	b.env.Token = token
	return b
}

// Headers attaches routing or tracing metadata to the envelope.
func (b *Builder) Headers(headers map[string]string) *Builder {
	b.env.Headers = headers
	return b
}

// CausationID records the ID of the message that caused this one.
func (b *Builder) CausationID(id string) *Builder {
	b.env.CausationID = id
	return b
}

// CorrelationID groups this envelope with others from the same originating
// request or workflow.
func (b *Builder) CorrelationID(id string) *Builder {
	b.env.CorrelationID = id
	return b
}

// Build returns the constructed Envelope.
func (b *Builder) Build() *Envelope {
	return b.env
}
