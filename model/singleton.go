package model

import "sync"

// The service keeps one registry per process: every capability lookup in the
// coaching pipeline must see the same endpoint table and the same circuit
// breaker state, or a tripped endpoint would keep receiving traffic from
// whichever components hold a stale copy.
var (
	sharedRegistry *Registry
	sharedInit     sync.Once
)

// Global returns the process-wide registry, building the default chat and
// generation routing on first use when nothing was installed.
func Global() *Registry {
	sharedInit.Do(func() {
		sharedRegistry = NewDefaultRegistry()
	})
	return sharedRegistry
}

// InitGlobal installs a configured registry as the process-wide instance.
// It wins only if it runs before the first Global() call; later calls are
// no-ops.
func InitGlobal(r *Registry) {
	sharedInit.Do(func() {
		sharedRegistry = r
	})
}

// ResetGlobal discards the process-wide registry. Not safe for concurrent
// use; tests only.
func ResetGlobal() {
	sharedInit = sync.Once{}
	sharedRegistry = nil
}
