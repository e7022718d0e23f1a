package zipscript

import "sync"

// rescanGuard serializes concurrent rescans of the same release path
// while letting rescans of distinct paths proceed in parallel. Entries
// are reference-counted and removed once no goroutine still holds or
// is waiting on them.
type rescanGuard struct {
	tableMu sync.Mutex
	entries map[string]*guardEntry
}

type guardEntry struct {
	mu       sync.Mutex
	refCount int32
}

func newRescanGuard() *rescanGuard {
	return &rescanGuard{entries: make(map[string]*guardEntry)}
}

// lock acquires the per-path mutex, creating the entry if needed and
// incrementing its reference count.
func (g *rescanGuard) lock(key string) *guardEntry {
	g.tableMu.Lock()
	entry, ok := g.entries[key]
	if !ok {
		entry = &guardEntry{}
		g.entries[key] = entry
	}
	entry.refCount++
	g.tableMu.Unlock()

	entry.mu.Lock()
	return entry
}

// unlock releases the per-path mutex and, if this was the last
// reference, removes the entry from the table.
func (g *rescanGuard) unlock(key string, entry *guardEntry) {
	entry.mu.Unlock()

	g.tableMu.Lock()
	entry.refCount--
	if entry.refCount == 0 {
		delete(g.entries, key)
	}
	g.tableMu.Unlock()
}
