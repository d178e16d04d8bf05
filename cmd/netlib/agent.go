package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexisbeaulieu97/netlib/pkg/callbacks"
	"github.com/alexisbeaulieu97/netlib/pkg/db"
	"github.com/alexisbeaulieu97/netlib/pkg/directory"
	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
	"github.com/alexisbeaulieu97/netlib/pkg/logging"
	"github.com/alexisbeaulieu97/netlib/pkg/validators"
)

const maxPortNameLen = 255

type port struct {
	ID         string
	Name       string
	MACAddress string
}

// portAgent checks, audits, and tracks ports on one host.
type portAgent struct {
	host   string
	logger logging.Logger

	mu       sync.Mutex
	created  []string
	rejected []string
}

var portAgentReceivers = callbacks.NewReceivers[*portAgent]().
	Receives(callbacks.Port, []callbacks.Event{callbacks.BeforeCreate}, callbacks.PriorityEarly, (*portAgent).validatePort).
	Receives(callbacks.Port, []callbacks.Event{callbacks.PrecommitCreate}, callbacks.PriorityDefault, (*portAgent).auditPort).
	Receives(callbacks.Port, []callbacks.Event{callbacks.AbortCreate}, callbacks.PriorityDefault, (*portAgent).portRejected).
	Receives(callbacks.Port, []callbacks.Event{callbacks.AfterCreate}, callbacks.PriorityLate, (*portAgent).portCreated)

func newPortAgent(app *AppContext, host string) (*portAgent, error) {
	agent := &portAgent{host: host, logger: app.Logger.With("host", host)}
	if err := portAgentReceivers.Wire(app.Callbacks, agent); err != nil {
		return nil, err
	}
	if err := app.Plugins.AddPlugin(directory.Core, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (a *portAgent) PluginType() string { return directory.Core }

func (a *portAgent) PluginDescription() string { return "port agent on " + a.host }

func portFrom(payload callbacks.Payload) (port, error) {
	dbPayload, ok := payload.(*callbacks.DBEventPayload)
	if !ok {
		return port{}, neterrors.Invalid(fmt.Sprintf("unexpected payload %T", payload))
	}
	p, ok := dbPayload.LatestState().(port)
	if !ok {
		return port{}, neterrors.Invalid(fmt.Sprintf("unexpected port state %T", dbPayload.LatestState()))
	}
	return p, nil
}

func (a *portAgent) validatePort(_ context.Context, _ callbacks.Resource, _ callbacks.Event, _ interface{}, payload callbacks.Payload) error {
	p, err := portFrom(payload)
	if err != nil {
		return err
	}
	if err := validators.ValidateNotEmptyString(p.Name, maxPortNameLen); err != nil {
		return err
	}
	return validators.ValidateMACAddress(p.MACAddress, nil)
}

func (a *portAgent) auditPort(ctx context.Context, _ callbacks.Resource, event callbacks.Event, _ interface{}, payload callbacks.Payload) error {
	tx, ok := db.TxFromContext(ctx)
	if !ok {
		return neterrors.Internal("precommit subscriber called outside a transaction", nil)
	}
	p, err := portFrom(payload)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO port_audit (port_id, event, host) VALUES (?, ?, ?)", p.ID, string(event), a.host)
	return err
}

func (a *portAgent) portRejected(ctx context.Context, _ callbacks.Resource, _ callbacks.Event, _ interface{}, payload callbacks.Payload) error {
	p, _ := portFrom(payload)
	a.mu.Lock()
	a.rejected = append(a.rejected, p.Name)
	a.mu.Unlock()
	a.logger.Warn(ctx, "port creation aborted", "port", p.Name)
	return nil
}

func (a *portAgent) portCreated(ctx context.Context, _ callbacks.Resource, _ callbacks.Event, _ interface{}, payload callbacks.Payload) error {
	states, ok := payload.(*callbacks.EventPayload)
	if !ok || !states.HasStates() {
		return nil
	}
	p, _ := states.LatestState().(port)
	a.mu.Lock()
	a.created = append(a.created, p.ID)
	a.mu.Unlock()
	a.logger.Info(ctx, "port created", "port", p.Name, "port_id", p.ID)
	return nil
}

func (a *portAgent) createdCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.created)
}

func (a *portAgent) rejectedPorts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.rejected...)
}
