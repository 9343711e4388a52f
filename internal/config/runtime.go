package config

import (
	"sync"
)

// RuntimeConfig stores configuration set at runtime via CLI flags.
// These values are not persisted to config files.
type RuntimeConfig struct {
	mu       sync.RWMutex
	allowRun bool
	debug    bool
}

var globalRuntime = &RuntimeConfig{}

// SetAllowRun enables or disables running blocks from the browser.
// Running is disabled by default: executed code has the server's privileges.
func SetAllowRun(allow bool) {
	globalRuntime.mu.Lock()
	defer globalRuntime.mu.Unlock()
	globalRuntime.allowRun = allow
}

// IsRunAllowed returns whether browsers may run blocks.
func IsRunAllowed() bool {
	globalRuntime.mu.RLock()
	defer globalRuntime.mu.RUnlock()
	return globalRuntime.allowRun
}

// SetDebug toggles verbose logging.
func SetDebug(debug bool) {
	globalRuntime.mu.Lock()
	defer globalRuntime.mu.Unlock()
	globalRuntime.debug = debug
}

// IsDebug returns whether verbose logging is on.
func IsDebug() bool {
	globalRuntime.mu.RLock()
	defer globalRuntime.mu.RUnlock()
	return globalRuntime.debug
}
