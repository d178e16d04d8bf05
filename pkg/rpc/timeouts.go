package rpc

import (
	"sync"
	"time"
)

const (
	// DefaultResponseTimeout is the starting timeout of every method.
	DefaultResponseTimeout = 60 * time.Second
	// MaxTimeoutFactor bounds timeouts at this multiple of the default.
	MaxTimeoutFactor = 10
)

// Timeouts is a table of per-method timeouts. It is safe for concurrent use
// and is usually shared by every client of a process.
type Timeouts struct {
	mu      sync.RWMutex
	base    time.Duration
	max     time.Duration
	methods map[string]time.Duration
}

// NewTimeouts creates a table starting at base. A non-positive base selects
// DefaultResponseTimeout; a ceiling below base selects MaxTimeoutFactor times base.
func NewTimeouts(base, ceiling time.Duration) *Timeouts {
	if base <= 0 {
		base = DefaultResponseTimeout
	}
	if ceiling < base {
		ceiling = base * MaxTimeoutFactor
	}
	return &Timeouts{base: base, max: ceiling, methods: make(map[string]time.Duration)}
}

var (
	defaultTimeoutsMu sync.Mutex
	defaultTimeouts   *Timeouts
)

// DefaultTimeouts returns the process-wide table.
func DefaultTimeouts() *Timeouts {
	defaultTimeoutsMu.Lock()
	defer defaultTimeoutsMu.Unlock()
	if defaultTimeouts == nil {
		defaultTimeouts = NewTimeouts(DefaultResponseTimeout, 0)
	}
	return defaultTimeouts
}

// SetDefaultTimeouts replaces the process-wide table and returns the previous one.
func SetDefaultTimeouts(t *Timeouts) *Timeouts {
	defaultTimeoutsMu.Lock()
	defer defaultTimeoutsMu.Unlock()
	prev := defaultTimeouts
	defaultTimeouts = t
	return prev
}

// Default returns the starting timeout.
func (t *Timeouts) Default() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.base
}

// Max returns the ceiling.
func (t *Timeouts) Max() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.max
}

// Get returns the timeout of method.
func (t *Timeouts) Get(method string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if timeout, ok := t.methods[method]; ok {
		return timeout
	}
	return t.base
}

// Set overrides the timeout of method, bounded by the ceiling.
func (t *Timeouts) Set(method string, timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.methods[method] = min(timeout, t.max)
}

// Increase doubles the timeout of a method that timed out after observed,
// bounded by the ceiling. It reports whether the stored timeout grew.
func (t *Timeouts) Increase(method string, observed time.Duration) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	current, ok := t.methods[method]
	if !ok {
		current = t.base
	}
	next := min(observed*2, t.max)
	if next <= current {
		return false, current
	}
	t.methods[method] = next
	return true, next
}

// SetMaxTimeout changes the ceiling and lowers any timeout above it.
func (t *Timeouts) SetMaxTimeout(ceiling time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ceiling < t.base {
		ceiling = t.base
	}
	t.max = ceiling
	for method, timeout := range t.methods {
		if timeout > ceiling {
			t.methods[method] = ceiling
		}
	}
}

// Reset forgets every per-method timeout.
func (t *Timeouts) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.methods = make(map[string]time.Duration)
}
