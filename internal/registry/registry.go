// Package registry holds the in-memory set of live timers guarded by a
// single mutex, shared by the dispatch engine and the control-plane server;
// every operation holds the lock for its whole duration.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/onlyati/chronos/internal/timer"
)

// ErrNotFound is returned when an operation references an unknown timer id.
var ErrNotFound = errors.New("timer not found")

// ErrExists is returned by Add when the id is already registered.
var ErrExists = errors.New("timer already exists")

// Registry is the daemon's authoritative in-memory timer table.
type Registry struct {
	mu     sync.RWMutex
	timers map[string]timer.Timer
	static map[string]struct{} // ids loaded from all_dir, never dynamic
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		timers: make(map[string]timer.Timer),
		static: make(map[string]struct{}),
	}
}

// Add inserts t, or returns ErrExists if t.ID is already present.
func (r *Registry) Add(t timer.Timer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.timers[t.ID]; exists {
		return ErrExists
	}
	r.timers[t.ID] = t
	if !t.Dynamic {
		r.static[t.ID] = struct{}{}
	}
	return nil
}

// Put inserts or overwrites t unconditionally, used by the file loader on
// startup and by Refresh.
func (r *Registry) Put(t timer.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timers[t.ID] = t
	if !t.Dynamic {
		r.static[t.ID] = struct{}{}
	}
}

// Get returns a copy of the timer with the given id.
func (r *Registry) Get(id string) (timer.Timer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.timers[id]
	if !ok {
		return timer.Timer{}, ErrNotFound
	}
	return t, nil
}

// Remove deletes the timer with the given id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timers[id]; !ok {
		return ErrNotFound
	}
	delete(r.timers, id)
	delete(r.static, id)
	return nil
}

// Update replaces the stored copy of t, used after a firing's reschedule.
func (r *Registry) Update(t timer.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timers[t.ID]; !ok {
		return
	}
	r.timers[t.ID] = t
}

// Tick scans the registry under a single held lock: for every timer due at
// now on the enabled weekday todayIdx, it snapshots the timer, then
// reschedules it in place or removes it (OneShot). The caller
// dispatches command execution for the returned snapshots after releasing
// this call, so the lock is never held across a child process's lifetime.
func (r *Registry) Tick(now uint64, todayIdx int) []timer.Timer {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.timers))
	for id := range r.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var fired []timer.Timer
	for _, id := range ids {
		t := r.timers[id]
		if !t.ShouldRun(now) {
			continue
		}
		if !t.Days[todayIdx] {
			continue
		}

		fired = append(fired, t)

		updated, remove := timer.Reschedule(t, now)
		if remove {
			delete(r.timers, id)
			delete(r.static, id)
		} else {
			r.timers[id] = updated
		}
	}
	return fired
}

// Due returns a snapshot of every timer whose NextHit is <= now, sorted by
// id for deterministic firing order within a tick.
func (r *Registry) Due(now uint64) []timer.Timer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []timer.Timer
	for _, t := range r.timers {
		if t.ShouldRun(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due
}

// ListActive returns every registered timer, sorted by id.
func (r *Registry) ListActive() []timer.Timer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]timer.Timer, 0, len(r.timers))
	for _, t := range r.timers {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// ListStatic returns only the timers loaded from all_dir (non-dynamic),
// sorted by id.
func (r *Registry) ListStatic() []timer.Timer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	static := make([]timer.Timer, 0, len(r.static))
	for id := range r.static {
		if t, ok := r.timers[id]; ok {
			static = append(static, t)
		}
	}
	sort.Slice(static, func(i, j int) bool { return static[i].ID < static[j].ID })
	return static
}

// Len returns the number of registered timers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.timers)
}
