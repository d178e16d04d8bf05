package callbacks

import "context"

// Payload is the data handed to subscribers. It is implemented by
// *EventPayload, *DBEventPayload, *APIEventPayload and, for the legacy Notify
// entry point only, Kwargs.
//
// One payload value is shared by every subscriber of a dispatch. Subscribers
// must treat it as read-mostly; nothing stops them from mutating Metadata or
// States, but later subscribers will observe the change.
type Payload interface {
	isPayload()
}

// Kwargs is the unstructured payload of the legacy Notify convention.
type Kwargs map[string]interface{}

func (Kwargs) isPayload() {}

// EventPayload is built by a publisher right before Publish.
type EventPayload struct {
	// Context is the ambient request or transaction context.
	Context context.Context
	// Metadata holds free-form publisher data.
	Metadata map[string]interface{}
	// RequestBody is the raw API request body, if any.
	RequestBody interface{}
	// States are object snapshots in the order supplied by the publisher,
	// conventionally (original, updated). The last element is the latest.
	States []interface{}
	// ResourceID is empty when the resource does not exist yet.
	ResourceID string
}

func (*EventPayload) isPayload() {}

// PayloadOption customises a payload at construction time.
type PayloadOption func(*EventPayload)

// WithMetadata sets the payload metadata.
func WithMetadata(metadata map[string]interface{}) PayloadOption {
	return func(p *EventPayload) {
		p.Metadata = metadata
	}
}

// WithRequestBody sets the raw request body.
func WithRequestBody(body interface{}) PayloadOption {
	return func(p *EventPayload) {
		p.RequestBody = body
	}
}

// WithStates sets the state snapshots.
func WithStates(states ...interface{}) PayloadOption {
	return func(p *EventPayload) {
		p.States = states
	}
}

// WithResourceID sets the identifier of the resource the event concerns.
func WithResourceID(id string) PayloadOption {
	return func(p *EventPayload) {
		p.ResourceID = id
	}
}

// NewEventPayload builds an EventPayload. Metadata defaults to an empty map.
func NewEventPayload(ctx context.Context, opts ...PayloadOption) *EventPayload {
	p := &EventPayload{Context: ctx}
	for _, opt := range opts {
		opt(p)
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]interface{})
	}
	return p
}

// HasStates reports whether the payload carries any state snapshot.
func (p *EventPayload) HasStates() bool {
	return p != nil && len(p.States) > 0
}

// LatestState returns the last state snapshot, or nil.
func (p *EventPayload) LatestState() interface{} {
	if !p.HasStates() {
		return nil
	}
	return p.States[len(p.States)-1]
}

// HasResourceID reports whether the resource already exists.
func (p *EventPayload) HasResourceID() bool {
	return p != nil && p.ResourceID != ""
}

// DBEventPayload accompanies database lifecycle events.
type DBEventPayload struct {
	EventPayload
	// DesiredState is the not yet persisted object, set for create and update
	// events published before the write happens.
	DesiredState interface{}
}

// NewDBEventPayload builds a DBEventPayload.
func NewDBEventPayload(ctx context.Context, desiredState interface{}, opts ...PayloadOption) *DBEventPayload {
	return &DBEventPayload{
		EventPayload: *NewEventPayload(ctx, opts...),
		DesiredState: desiredState,
	}
}

// LatestState prefers the desired state over the recorded snapshots.
func (p *DBEventPayload) LatestState() interface{} {
	if p == nil {
		return nil
	}
	if p.DesiredState != nil {
		return p.DesiredState
	}
	return p.EventPayload.LatestState()
}

// IsPersisted reports whether the resource exists and no write is pending.
func (p *DBEventPayload) IsPersisted() bool {
	return p != nil && p.HasResourceID() && p.DesiredState == nil
}

// IsToBeCommitted reports whether the payload describes a pending create.
func (p *DBEventPayload) IsToBeCommitted() bool {
	return p != nil && !p.HasResourceID() && p.DesiredState != nil
}

// APIEventPayload accompanies API request lifecycle events.
type APIEventPayload struct {
	EventPayload
	Action         string
	MethodName     string
	CollectionName string
}

// NewAPIEventPayload builds an APIEventPayload.
func NewAPIEventPayload(ctx context.Context, action, methodName, collectionName string, opts ...PayloadOption) *APIEventPayload {
	return &APIEventPayload{
		EventPayload:   *NewEventPayload(ctx, opts...),
		Action:         action,
		MethodName:     methodName,
		CollectionName: collectionName,
	}
}

// checkPayload accepts nil and non-nil members of the EventPayload family.
func checkPayload(payload Payload) error {
	switch p := payload.(type) {
	case nil:
		return nil
	case *EventPayload:
		if p != nil {
			return nil
		}
	case *DBEventPayload:
		if p != nil {
			return nil
		}
	case *APIEventPayload:
		if p != nil {
			return nil
		}
	}
	return &InvalidError{Element: "event payload", Value: payload}
}
