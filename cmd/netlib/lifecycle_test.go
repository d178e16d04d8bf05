package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/netlib/pkg/config"
	"github.com/alexisbeaulieu97/netlib/pkg/db"
	"github.com/alexisbeaulieu97/netlib/pkg/directory"
	"github.com/alexisbeaulieu97/netlib/pkg/placement"
)

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	store, err := db.Open(path)
	require.NoError(t, err)
	defer store.Close()

	var count int
	require.NoError(t, store.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

func TestLifecycleCommandCreatesAndRejectsPorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "netlib.db")

	output, err := execute(t, "lifecycle", "--db", path, "--host", "compute-1", "--metrics",
		"tap0=fa:16:3e:00:00:01", "tap1=ff:ff:ff:ff:ff:ff", "tap0")
	require.EqualError(t, err, "2 of 3 ports rejected")

	require.Contains(t, output, "created port tap0")
	require.Contains(t, output, "rejected port tap1")
	require.Contains(t, output, "port tap0 already exists")
	require.Contains(t, output, "agent compute-1 reported 1 ports (accepted=true)")
	require.Contains(t, output, "agent compute-1 aborted 1 ports: tap1\n", "only the before_create failure is aborted")
	require.Contains(t, output, "netlib_callbacks_dispatch_total{")
	require.NotContains(t, output, "resource provider")

	require.Equal(t, 1, countRows(t, path, "ports"))
	require.Equal(t, 1, countRows(t, path, "port_audit"))
}

func TestLifecycleWiresAgentIntoComponents(t *testing.T) {
	cfg := config.Default()
	app, err := newAppContext(appOptions{Config: &cfg, LogTo: &syncBuffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	out := &syncBuffer{}
	require.NoError(t, runLifecycle(context.Background(), app, out, lifecycleOptions{Host: "net-1"}, []string{"tap0", "tap1"}))

	plugin := app.Plugins.GetPlugin(directory.Core)
	require.NotNil(t, plugin)
	require.Equal(t, "port agent on net-1", plugin.PluginDescription())

	agent := plugin.(*portAgent)
	require.Equal(t, 2, agent.createdCount())
	require.Empty(t, agent.rejectedPorts())

	var audits int
	require.NoError(t, app.Store.DB.QueryRow("SELECT COUNT(*) FROM port_audit WHERE event = 'precommit_create' AND host = 'net-1'").Scan(&audits))
	require.Equal(t, 2, audits)
}

func TestLifecycleEnsuresResourceProvider(t *testing.T) {
	var (
		mu      sync.Mutex
		created []placement.ResourceProvider
	)
	r := chi.NewRouter()
	r.Get("/resource_providers/{uuid}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors": [{"status": 404, "detail": "no such provider"}]}`))
	})
	r.Post("/resource_providers", func(w http.ResponseWriter, req *http.Request) {
		var rp placement.ResourceProvider
		if err := json.NewDecoder(req.Body).Decode(&rp); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		created = append(created, rp)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rp)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	path := writeConfigFile(t, "netlib.yaml", "placement:\n  endpoint: "+srv.URL+"\n")
	output, err := execute(t, "--config", path, "lifecycle", "--host", "compute-2", "tap0")
	require.NoError(t, err)
	require.Contains(t, output, "resource provider compute-2")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, created, 1)
	require.Equal(t, "compute-2", created[0].Name)
}

func TestParsePort(t *testing.T) {
	t.Parallel()

	explicit := parsePort("tap0=fa:16:3e:aa:bb:cc")
	require.Equal(t, "tap0", explicit.Name)
	require.Equal(t, "fa:16:3e:aa:bb:cc", explicit.MACAddress)

	generated := parsePort("tap1")
	require.Equal(t, "tap1", generated.Name)
	require.Regexp(t, `^fa:16:3e:[0-9a-f]{2}:[0-9a-f]{2}:[0-9a-f]{2}$`, generated.MACAddress)
	require.NotEqual(t, explicit.ID, generated.ID)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}
