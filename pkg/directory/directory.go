// Package directory keeps track of the loaded core and service plugins by
// alias.
package directory

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	neterrors "github.com/alexisbeaulieu97/netlib/pkg/errors"
)

// Well known plugin aliases.
const (
	Core                = "CORE"
	L3                  = "L3_ROUTER_NAT"
	Firewall            = "FIREWALL"
	VPN                 = "VPN"
	Metering            = "METERING"
	QoS                 = "QOS"
	Trunk               = "trunk"
	Log                 = "LOGGING"
	Flavors             = "FLAVORS"
	NetworkSegmentRange = "NETWORK_SEGMENT_RANGE"
	PortForwarding      = "port_forwarding"
	Placement           = "placement"
)

// Plugin is a core or service plugin. Implementations are compared by
// identity, so they should be pointers; AddPlugin rejects values that cannot
// be compared.
type Plugin interface {
	PluginType() string
	PluginDescription() string
}

// Directory maps aliases to plugins. One plugin may serve several aliases.
type Directory struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// New creates an empty Directory.
func New() *Directory {
	return &Directory{plugins: make(map[string]Plugin)}
}

// AddPlugin registers plugin under alias, replacing any previous plugin.
func (d *Directory) AddPlugin(alias string, plugin Plugin) error {
	if alias == "" {
		return neterrors.Invalid("plugin alias is required")
	}
	if plugin == nil {
		return neterrors.Invalid("plugin for alias " + alias + " is nil")
	}
	if !reflect.ValueOf(plugin).Comparable() {
		return neterrors.Invalid(fmt.Sprintf("plugin %T for alias %s is not comparable", plugin, alias))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.plugins[alias] = plugin
	return nil
}

// GetPlugin returns the plugin registered under alias, or nil.
func (d *Directory) GetPlugin(alias string) Plugin {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.plugins[alias]
}

// MustGetPlugin returns the plugin registered under alias or a NotFound error.
func (d *Directory) MustGetPlugin(alias string) (Plugin, error) {
	if plugin := d.GetPlugin(alias); plugin != nil {
		return plugin, nil
	}
	return nil, neterrors.NotFound("plugin", alias)
}

// RemovePlugin drops alias. Unknown aliases are ignored.
func (d *Directory) RemovePlugin(alias string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.plugins, alias)
}

// Plugins returns a copy of the alias to plugin map.
func (d *Directory) Plugins() map[string]Plugin {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]Plugin, len(d.plugins))
	for alias, plugin := range d.plugins {
		out[alias] = plugin
	}
	return out
}

// Aliases returns the registered aliases in sorted order.
func (d *Directory) Aliases() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	aliases := make([]string, 0, len(d.plugins))
	for alias := range d.plugins {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// UniquePlugins returns each distinct plugin once, ordered by the first alias
// it is registered under.
func (d *Directory) UniquePlugins() []Plugin {
	aliases := d.Aliases()

	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[Plugin]struct{}, len(aliases))
	unique := make([]Plugin, 0, len(aliases))
	for _, alias := range aliases {
		plugin, ok := d.plugins[alias]
		if !ok {
			continue
		}
		if _, dup := seen[plugin]; dup {
			continue
		}
		seen[plugin] = struct{}{}
		unique = append(unique, plugin)
	}
	return unique
}

// UniquePluginCount returns len(UniquePlugins()).
func (d *Directory) UniquePluginCount() int {
	return len(d.UniquePlugins())
}

// IsLoaded reports whether any plugin has been registered.
func (d *Directory) IsLoaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.plugins) > 0
}

// Reset drops every plugin.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plugins = make(map[string]Plugin)
}
