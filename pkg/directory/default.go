package directory

import "sync"

var (
	defaultMu  sync.Mutex
	defaultDir *Directory
)

// Default returns the process-wide Directory, creating it on first use.
func Default() *Directory {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultDir == nil {
		defaultDir = New()
	}
	return defaultDir
}

// SetDefault replaces the process-wide Directory and returns the previous one.
func SetDefault(d *Directory) *Directory {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultDir
	defaultDir = d
	return prev
}

// AddPlugin registers plugin under alias in the default Directory.
func AddPlugin(alias string, plugin Plugin) error {
	return Default().AddPlugin(alias, plugin)
}

// GetPlugin looks alias up in the default Directory.
func GetPlugin(alias string) Plugin {
	return Default().GetPlugin(alias)
}

// GetPlugins returns the alias map of the default Directory.
func GetPlugins() map[string]Plugin {
	return Default().Plugins()
}

// GetUniquePlugins returns the distinct plugins of the default Directory.
func GetUniquePlugins() []Plugin {
	return Default().UniquePlugins()
}

// IsLoaded reports whether the default Directory holds any plugin.
func IsLoaded() bool {
	defaultMu.Lock()
	d := defaultDir
	defaultMu.Unlock()
	return d != nil && d.IsLoaded()
}
