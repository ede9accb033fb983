// Package dispatch implements the main scheduler loop: for each tick, scan
// the registry, fire matching timers, and hand their outcomes to the
// status client, history store, and alert sink.
package dispatch

import (
	"log"
	"sync"
	"time"

	"github.com/onlyati/chronos/internal/registry"
	"github.com/onlyati/chronos/internal/runner"
	"github.com/onlyati/chronos/internal/status"
	"github.com/onlyati/chronos/internal/timer"
)

// OutcomeSink receives a firing's outcome for durable bookkeeping, e.g.
// the execution-history store. Implementations must not block the caller
// for long; the engine calls this from the firing's own goroutine, never
// under the registry lock.
type OutcomeSink interface {
	Record(id string, success bool, exitCode int, firstLine string)
}

// AlertSink is notified of NOK outcomes only, for best-effort operator
// paging.
type AlertSink interface {
	NotifyFailure(id string, exitCode int)
}

// Verbose is a process-wide flag read liberally and written rarely, so it
// is guarded by a reader-writer lock rather than the registry's mutex.
type Verbose struct {
	mu      sync.RWMutex
	enabled bool
}

func (v *Verbose) Set(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = enabled
}

func (v *Verbose) Get() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.enabled
}

// Engine is the dispatch loop. It owns no state of its own beyond the
// collaborators it was constructed with; the registry remains the single
// source of truth.
type Engine struct {
	reg     *registry.Registry
	status  *status.Client
	logDir  string
	verbose *Verbose

	history OutcomeSink
	alert   AlertSink
}

// New constructs an Engine. history and alert may be nil: a nil
// OutcomeSink/AlertSink simply means that bookkeeping is skipped.
func New(reg *registry.Registry, statusClient *status.Client, logDir string, verbose *Verbose, history OutcomeSink, alert AlertSink) *Engine {
	return &Engine{
		reg:     reg,
		status:  statusClient,
		logDir:  logDir,
		verbose: verbose,
		history: history,
		alert:   alert,
	}
}

// Run drives the loop off of ticks until the channel is closed, which only
// happens at process shutdown.
func (e *Engine) Run(ticks <-chan uint64) {
	for now := range ticks {
		e.onTick(now)
	}
}

func (e *Engine) onTick(now uint64) {
	todayIdx := weekdayIndex(now)

	fired := e.reg.Tick(now, todayIdx)
	if len(fired) == 0 {
		return
	}

	if e.verbose != nil && e.verbose.Get() {
		log.Printf("dispatch: tick %d fired %d timer(s)", now, len(fired))
	}

	for _, t := range fired {
		go e.fire(t)
	}
}

// fire runs off of the registry lock entirely: it is handed a snapshot, so
// subsequent mutation or removal of the live timer by the engine or an RPC
// handler cannot race with it.
func (e *Engine) fire(t timer.Timer) {
	outcome := runner.Run(t.ID, t.Command, e.logDir)

	if e.status != nil {
		e.status.Publish(status.Event{ID: t.ID, Success: outcome.Success})
	}

	firstLine := ""
	if len(outcome.Lines) > 0 {
		firstLine = outcome.Lines[0].Text
	}

	if e.history != nil {
		e.history.Record(t.ID, outcome.Success, outcome.ExitCode, firstLine)
	}

	if !outcome.Success && e.alert != nil {
		e.alert.NotifyFailure(t.ID, outcome.ExitCode)
	}
}

// weekdayIndex returns the Monday=0..Sunday=6 index of the local weekday
// containing the instant `now` (unix seconds).
func weekdayIndex(now uint64) int {
	t := time.Unix(int64(now), 0).Local()
	return (int(t.Weekday()) + 6) % 7
}
