// Package phase defines the named, ordered stages a ProcessingContext drains
// a Unit of Work through. A Phase is nothing more than a name and an integer
// ordering key — the engine never interprets the name, only the order.
package phase

import "fmt"

// Phase is a named stage with an integer ordering key. Handlers registered
// against phases with a lower Order run, and fully complete, before any
// handler registered against a phase with a higher Order begins. Phases
// sharing an Order form a single bucket and run concurrently.
type Phase struct {
	Name  string
	Order int32
}

// New returns a Phase with the given name and order. Applications may define
// phases at any integer order; nothing about the order values below is
// special beyond their relative position.
func New(name string, order int32) Phase {
	return Phase{Name: name, Order: order}
}

// Equal reports whether two phases are the same registration target —
// by (Name, Order), not just Order, so two differently-named phases that
// happen to share an order are still distinct for bookkeeping purposes.
func (p Phase) Equal(other Phase) bool {
	return p.Name == other.Name && p.Order == other.Order
}

func (p Phase) String() string {
	return fmt.Sprintf("%s(%d)", p.Name, p.Order)
}

// Default phases, stable across implementations of this contract. The
// numeric gaps leave room for applications to insert phases between them
// without renumbering.
var (
	PreInvocation  = New("PRE_INVOCATION", -1000)
	Invocation     = New("INVOCATION", 0)
	PostInvocation = New("POST_INVOCATION", 1000)
	PrepareCommit  = New("PREPARE_COMMIT", 10000)
	Commit         = New("COMMIT", 20000)
	AfterCommit    = New("AFTER_COMMIT", 30000)
)
