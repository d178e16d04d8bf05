package directory

import (
	"testing"

	"github.com/stretchr/testify/require"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

type stubPlugin struct {
	kind string
}

func (s *stubPlugin) PluginType() string        { return s.kind }
func (s *stubPlugin) PluginDescription() string { return "stub " + s.kind }

func TestDirectoryAddAndGet(t *testing.T) {
	t.Parallel()

	d := New()
	require.False(t, d.IsLoaded())

	core := &stubPlugin{kind: Core}
	require.NoError(t, d.AddPlugin(Core, core))
	require.True(t, d.IsLoaded())
	require.Same(t, core, d.GetPlugin(Core))
	require.Nil(t, d.GetPlugin(L3))

	_, err := d.MustGetPlugin(L3)
	require.ErrorIs(t, err, neterrors.ErrNotFound)

	replacement := &stubPlugin{kind: Core}
	require.NoError(t, d.AddPlugin(Core, replacement))
	require.Same(t, replacement, d.GetPlugin(Core))

	require.ErrorIs(t, d.AddPlugin("", core), neterrors.ErrInvalid)
	require.Error(t, d.AddPlugin(QoS, nil))
}

func TestDirectoryUniquePlugins(t *testing.T) {
	t.Parallel()

	d := New()
	core := &stubPlugin{kind: Core}
	l3 := &stubPlugin{kind: L3}
	require.NoError(t, d.AddPlugin(Core, core))
	require.NoError(t, d.AddPlugin(Trunk, core))
	require.NoError(t, d.AddPlugin(L3, l3))

	require.Len(t, d.Plugins(), 3)
	require.Equal(t, []string{Core, L3, Trunk}, d.Aliases())
	require.Equal(t, []Plugin{core, l3}, d.UniquePlugins())
	require.Equal(t, 2, d.UniquePluginCount())

	d.RemovePlugin(Trunk)
	d.RemovePlugin("missing")
	require.Len(t, d.Plugins(), 2)

	plugins := d.Plugins()
	delete(plugins, Core)
	require.NotNil(t, d.GetPlugin(Core), "Plugins returns a copy")

	d.Reset()
	require.False(t, d.IsLoaded())
	require.Empty(t, d.UniquePlugins())
}

type tablePlugin map[string]string

func (p tablePlugin) PluginType() string        { return p["type"] }
func (p tablePlugin) PluginDescription() string { return "table " + p["type"] }

func TestDirectoryRejectsIncomparablePlugins(t *testing.T) {
	t.Parallel()

	d := New()
	err := d.AddPlugin(Core, tablePlugin{"type": Core})
	require.ErrorIs(t, err, neterrors.ErrInvalid)
	require.Nil(t, d.GetPlugin(Core))
	require.Empty(t, d.UniquePlugins())
}

func TestDefaultDirectory(t *testing.T) {
	prev := SetDefault(nil)
	t.Cleanup(func() { SetDefault(prev) })

	require.False(t, IsLoaded())

	core := &stubPlugin{kind: Core}
	require.NoError(t, AddPlugin(Core, core))
	require.True(t, IsLoaded())
	require.Same(t, core, GetPlugin(Core))
	require.Len(t, GetPlugins(), 1)
	require.Equal(t, []Plugin{core}, GetUniquePlugins())

	fresh := New()
	require.Same(t, Default(), SetDefault(fresh))
	require.Same(t, fresh, Default())
	require.False(t, IsLoaded())
}
