package lifecycle

import "github.com/axonkit/uowkernel/observability"

// Event types emitted by ProcessingContext: phase-bucket boundaries,
// individual handler dispatch, first-failure recording, and terminal-hook
// fan-out.
const (
	EventPhaseStart       observability.EventType = "lifecycle.phase.start"
	EventPhaseComplete    observability.EventType = "lifecycle.phase.complete"
	EventHandlerDispatch  observability.EventType = "lifecycle.handler.dispatch"
	EventHandlerFailure   observability.EventType = "lifecycle.handler.failure"
	EventRegistrationLate observability.EventType = "lifecycle.registration.rejected"
	EventCommitStart      observability.EventType = "lifecycle.commit.start"
	EventCommitComplete   observability.EventType = "lifecycle.commit.complete"
	EventHookDispatch     observability.EventType = "lifecycle.hook.dispatch"
	EventHookPanic        observability.EventType = "lifecycle.hook.panic"
)
