package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/alexisbeaulieu97/netlib/pkg/callbacks"
	"github.com/alexisbeaulieu97/netlib/pkg/config"
	"github.com/alexisbeaulieu97/netlib/pkg/db"
	"github.com/alexisbeaulieu97/netlib/pkg/directory"
	"github.com/alexisbeaulieu97/netlib/pkg/logging"
	"github.com/alexisbeaulieu97/netlib/pkg/metrics"
	"github.com/alexisbeaulieu97/netlib/pkg/placement"
	"github.com/alexisbeaulieu97/netlib/pkg/rpc"
)

// AppContext bundles the long-lived services created at startup.
type AppContext struct {
	Config    *config.Config
	Logger    logging.Logger
	Metrics   *metrics.Metrics
	Callbacks *callbacks.Manager
	Plugins   *directory.Directory
	Store     *db.Store
	Retrier   *db.Retrier
	RPC       *rpc.BackingOffClient
	// Placement is nil when no endpoint is configured.
	Placement *placement.Client
}

type appOptions struct {
	Config     *config.Config
	ConfigPath string
	LogFormat  string
	Verbose    bool
	LogTo      io.Writer
	DBPath     string
	// Caller defaults to an in-process state server.
	Caller rpc.Caller
}

func newAppContext(opts appOptions) (*AppContext, error) {
	cfg := opts.Config
	logOpts := cfg.LoggingOptions()
	logOpts.Writer = opts.LogTo
	logOpts.Format = logFormat(opts.LogFormat, opts.ConfigPath, logOpts.Format, opts.LogTo)
	if opts.Verbose {
		logOpts.Level = "debug"
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	m := metrics.New(cfg.Metrics.Namespace)

	path := opts.DBPath
	if path == "" {
		path = cfg.Database.Path
	}
	var store *db.Store
	if path == "" {
		store, err = db.OpenMemory()
	} else {
		store, err = db.Open(path)
	}
	if err != nil {
		return nil, err
	}
	store.Logger = logger

	retryOpts := cfg.RetryOptions()
	retryOpts.Logger = logger
	retryOpts.Observer = m

	caller := opts.Caller
	if caller == nil {
		caller = newStateServer()
	}

	app := &AppContext{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Callbacks: callbacks.NewManager(callbacks.Options{Logger: logger, Metrics: m}),
		Plugins:   directory.New(),
		Store:     store,
		Retrier:   db.NewRetrier(retryOpts),
		RPC: rpc.NewBackingOffClient(caller, rpc.Options{
			Namespace: "agent",
			Timeouts:  cfg.Timeouts(),
			Logger:    logger,
			Observer:  m,
		}),
	}

	if cfg.Placement.Endpoint != "" {
		placementOpts := cfg.PlacementOptions()
		placementOpts.Logger = logger
		placementOpts.Observer = m
		app.Placement, err = placement.New(placementOpts)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return app, nil
}

// Close releases the database handle.
func (a *AppContext) Close() error {
	if a == nil {
		return nil
	}
	return a.Store.Close()
}

type agentState struct {
	Host  string `json:"host"`
	Ports int    `json:"ports"`
}

type stateAck struct {
	Accepted bool `json:"accepted"`
}

// stateServer answers agent RPCs in process.
type stateServer struct {
	mu     sync.Mutex
	states map[string]agentState
}

func newStateServer() *stateServer {
	return &stateServer{states: map[string]agentState{}}
}

func (s *stateServer) Call(ctx context.Context, method string, args, reply interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch method {
	case "report_state":
		state, ok := args.(agentState)
		if !ok {
			return fmt.Errorf("report_state: unexpected arguments %T", args)
		}
		s.mu.Lock()
		s.states[state.Host] = state
		s.mu.Unlock()
		if ack, ok := reply.(*stateAck); ok {
			ack.Accepted = true
		}
		return nil
	default:
		return fmt.Errorf("unknown RPC method %q", method)
	}
}

var _ rpc.Caller = (*stateServer)(nil)
