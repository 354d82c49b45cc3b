package events

import "time"

// Domain events for the simulation kernel.
//
// All event type definitions are centralized here to avoid circular
// dependencies. The simulation driver publishes only the episode lifecycle
// events of types.go; nothing in this module publishes the event types
// below, which describe kernel occurrences for external observers.

// =============================================================================
// AGENT EVENTS
// =============================================================================

// AgentActionFailedEvent describes an agent's action precondition failure. The simulation kernel itself only records this as a stat and a
// last_action_success flag (spec.md §7); this event exists purely for
// external observability.
type AgentActionFailedEvent struct {
	EpisodeID string
	AgentID   int
	ActionID  int
	Reason    string // "insufficient_resources" | "cell_occupied" | "out_of_bounds"
	Timestamp time.Time
}

// AgentTerminatedEvent describes an agent object that stops being alive
// (spec.md §3 lifecycle: withdraw-to-empty, freeze/HP rules, episode end).
type AgentTerminatedEvent struct {
	EpisodeID string
	AgentID   int
	Step      int
	Timestamp time.Time
}

// AgentVibeChangedEvent describes a committed change_vibe_* action.
type AgentVibeChangedEvent struct {
	EpisodeID string
	AgentID   int
	OldVibe   int
	NewVibe   int
	Timestamp time.Time
}

// =============================================================================
// OBJECT EVENTS
// =============================================================================

// ObjectRemovedEvent describes the removal of a grid object, e.g. a
// chest depleted by a remove_when_empty withdraw mutation (spec.md §3/§4.6).
type ObjectRemovedEvent struct {
	EpisodeID string
	ObjectID  int
	TypeName  string
	Row, Col  int
	Timestamp time.Time
}

// CollectiveAlignmentChangedEvent describes an AlignmentMutation that
// changes an object's collective_id (spec.md §4.6).
type CollectiveAlignmentChangedEvent struct {
	EpisodeID     string
	ObjectID      int
	OldCollective string
	NewCollective string
	Timestamp     time.Time
}

// =============================================================================
// SCHEDULER EVENTS
// =============================================================================

// EventFiredEvent describes a scheduled EventConfig that matched the
// current timestep and ran (spec.md §4.9), for external observability of
// event-scheduler activity.
type EventFiredEvent struct {
	EpisodeID    string
	EventName    string
	Step         int
	TargetCount  int
	UsedFallback bool
	Timestamp    time.Time
}

// =============================================================================
// EPISODE LIFECYCLE EVENTS
// =============================================================================

// StepCompletedEvent describes one completed simulation.Step call, at
// per-tick granularity rather than the coarser BaseEvent-carried
// EpisodeEndedEvent in types.go; simulation.Step does not publish it.
type StepCompletedEvent struct {
	EpisodeID   string
	Step        int
	AnyTerminal bool
	AnyTruncate bool
	Timestamp   time.Time
}
