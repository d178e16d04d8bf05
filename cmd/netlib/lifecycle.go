package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/netlib/pkg/callbacks"
	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
	"github.com/alexisbeaulieu97/netlib/pkg/logging"
	"github.com/alexisbeaulieu97/netlib/pkg/placement"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ports (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		mac_address TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS port_audit (
		port_id TEXT NOT NULL REFERENCES ports(id),
		event   TEXT NOT NULL,
		host    TEXT NOT NULL
	)`,
}

type lifecycleOptions struct {
	DBPath      string
	Host        string
	ShowMetrics bool
}

func newLifecycleCmd(root *rootFlags) *cobra.Command {
	opts := lifecycleOptions{}

	cmd := &cobra.Command{
		Use:   "lifecycle <name[=mac]>...",
		Short: "Create ports through the before, precommit and after callback phases",
		Long: `Lifecycle creates one port per argument. Each creation publishes
before_create, runs the insert and precommit_create in a retried database
transaction, and publishes after_create once committed. Rejected ports
trigger abort_create. The agent then reports its state over RPC and, when a
placement endpoint is configured, ensures its resource provider.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configPath)
			if err != nil {
				return err
			}
			app, err := newAppContext(appOptions{
				Config:     cfg,
				ConfigPath: root.configPath,
				LogFormat:  root.logFormat,
				Verbose:    root.verbose,
				LogTo:      cmd.ErrOrStderr(),
				DBPath:     opts.DBPath,
			})
			if err != nil {
				return err
			}
			defer app.Close()

			return runLifecycle(cmd.Context(), app, cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite file; defaults to database.path, in memory when empty")
	cmd.Flags().StringVar(&opts.Host, "host", defaultHost(), "Host the agent reports for")
	cmd.Flags().BoolVar(&opts.ShowMetrics, "metrics", false, "Print the collected metrics")

	return cmd
}

func defaultHost() string {
	host, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return host
}

func runLifecycle(ctx context.Context, app *AppContext, out io.Writer, opts lifecycleOptions, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.WithCorrelationID(ctx, logging.NewCorrelationID())

	if err := app.Store.Transaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	agent, err := newPortAgent(app, opts.Host)
	if err != nil {
		return err
	}

	var failed int
	for _, arg := range args {
		p := parsePort(arg)
		if err := createPort(ctx, app, p); err != nil {
			failed++
			fmt.Fprintf(out, "rejected port %s: %v\n", p.Name, err)
			continue
		}
		fmt.Fprintf(out, "created port %s (%s) mac %s\n", p.Name, p.ID, p.MACAddress)
	}

	var ack stateAck
	state := agentState{Host: opts.Host, Ports: agent.createdCount()}
	if err := app.RPC.Call(ctx, "report_state", state, &ack); err != nil {
		return fmt.Errorf("report state: %w", err)
	}
	fmt.Fprintf(out, "agent %s reported %d ports (accepted=%t)\n", state.Host, state.Ports, ack.Accepted)
	if aborted := agent.rejectedPorts(); len(aborted) > 0 {
		fmt.Fprintf(out, "agent %s aborted %d ports: %s\n", state.Host, len(aborted), strings.Join(aborted, ", "))
	}

	if app.Placement != nil {
		rp, err := app.Placement.EnsureResourceProvider(ctx, placement.ResourceProvider{
			UUID: uuid.NewSHA1(uuid.NameSpaceDNS, []byte(opts.Host)).String(),
			Name: opts.Host,
		})
		if err != nil {
			return fmt.Errorf("ensure resource provider: %w", err)
		}
		fmt.Fprintf(out, "resource provider %s (%s) generation %d\n", rp.Name, rp.UUID, rp.Generation)
	}

	if opts.ShowMetrics {
		if err := printMetrics(out, app); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ports rejected", failed, len(args))
	}
	return nil
}

// parsePort reads "name" or "name=mac". A missing MAC is derived from a
// fresh port UUID under the fa:16:3e prefix.
func parsePort(arg string) port {
	id := uuid.New()
	name, mac, ok := strings.Cut(arg, "=")
	if !ok {
		mac = fmt.Sprintf("fa:16:3e:%02x:%02x:%02x", id[0], id[1], id[2])
	}
	return port{ID: id.String(), Name: name, MACAddress: mac}
}

func createPort(ctx context.Context, app *AppContext, p port) error {
	if err := app.Callbacks.Publish(ctx, callbacks.Port, callbacks.BeforeCreate, app, callbacks.NewDBEventPayload(ctx, p)); err != nil {
		return err
	}

	err := app.Store.RetryTransaction(ctx, app.Retrier, func(ctx context.Context, tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM ports WHERE name = ?", p.Name).Scan(&existing); err != nil {
			return err
		}
		if existing > 0 {
			return neterrors.Conflict(fmt.Sprintf("port %s already exists", p.Name))
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO ports (id, name, mac_address) VALUES (?, ?, ?)", p.ID, p.Name, p.MACAddress); err != nil {
			return err
		}
		payload := callbacks.NewDBEventPayload(ctx, p, callbacks.WithResourceID(p.ID))
		return app.Callbacks.Publish(ctx, callbacks.Port, callbacks.PrecommitCreate, app, payload)
	})
	if err != nil {
		return err
	}

	payload := callbacks.NewEventPayload(ctx, callbacks.WithResourceID(p.ID), callbacks.WithStates(p))
	return app.Callbacks.Publish(ctx, callbacks.Port, callbacks.AfterCreate, app, payload)
}

func printMetrics(out io.Writer, app *AppContext) error {
	families, err := app.Metrics.Registry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, label.GetName()+"="+label.GetValue())
			}
			sort.Strings(labels)

			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			}
			fmt.Fprintf(out, "%s{%s} %g\n", family.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
