package callbacks

import "strings"

// Event names a lifecycle phase. The prefix carries failure semantics, see Classify.
type Event string

// Prefixes with binding semantics.
const (
	PrefixBefore    = "before_"
	PrefixPrecommit = "precommit_"
	PrefixAfter     = "after_"
	PrefixAbort     = "abort_"
)

const (
	BeforeCreate Event = "before_create"
	BeforeRead   Event = "before_read"
	BeforeUpdate Event = "before_update"
	BeforeDelete Event = "before_delete"

	PrecommitCreate             Event = "precommit_create"
	PrecommitUpdate             Event = "precommit_update"
	PrecommitDelete             Event = "precommit_delete"
	PrecommitAddAssociations    Event = "precommit_add_associations"
	PrecommitDeleteAssociations Event = "precommit_delete_associations"

	AfterCreate Event = "after_create"
	AfterRead   Event = "after_read"
	AfterUpdate Event = "after_update"
	AfterDelete Event = "after_delete"

	AbortCreate Event = "abort_create"
	AbortRead   Event = "abort_read"
	AbortUpdate Event = "abort_update"
	AbortDelete Event = "abort_delete"

	// Process and agent lifecycle.
	OVSRestarted Event = "ovs_restarted"
	BeforeSpawn  Event = "before_spawn"
	AfterSpawn   Event = "after_spawn"
	BeforeInit   Event = "before_init"
	AfterInit    Event = "after_init"

	// API request lifecycle.
	BeforeResponse Event = "before_response"
	AfterRequest   Event = "after_request"
)

// Phase is the failure handling class of an event.
type Phase int

const (
	// PhaseOther events are observational; subscriber failures are only logged.
	PhaseOther Phase = iota
	// PhaseBefore events abort the pending mutation on failure.
	PhaseBefore
	// PhasePrecommit events run inside an open transaction; failure rolls it back.
	PhasePrecommit
)

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhasePrecommit:
		return "precommit"
	default:
		return "other"
	}
}

// Classify maps an event name to its failure handling class.
func Classify(event Event) Phase {
	switch name := string(event); {
	case strings.HasPrefix(name, PrefixBefore):
		return PhaseBefore
	case strings.HasPrefix(name, PrefixPrecommit):
		return PhasePrecommit
	default:
		return PhaseOther
	}
}

// IsCancellable reports whether subscriber failures for the event are
// surfaced to the publisher.
func (e Event) IsCancellable() bool {
	return Classify(e) != PhaseOther
}

// AbortEvent returns abort_<x> for before_<x>, and "" for any other event.
func (e Event) AbortEvent() Event {
	if Classify(e) != PhaseBefore {
		return ""
	}
	return Event(PrefixAbort + strings.TrimPrefix(string(e), PrefixBefore))
}
