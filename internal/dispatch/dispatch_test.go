package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/onlyati/chronos/internal/registry"
	"github.com/onlyati/chronos/internal/status"
	"github.com/onlyati/chronos/internal/timer"
)

type fakeHistory struct {
	mu      sync.Mutex
	records []string
}

func (f *fakeHistory) Record(id string, success bool, exitCode int, firstLine string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, id)
}

type fakeAlert struct {
	mu     sync.Mutex
	failed []string
}

func (f *fakeAlert) NotifyFailure(id string, exitCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestOnTick_FiresDueTimerAndRecordsHistory(t *testing.T) {
	reg := registry.New()
	_ = reg.Add(timer.Timer{ID: "job1", Kind: timer.Every, Interval: 10 * time.Second, NextHit: 100, Days: timer.AllDays, Command: []string{"echo", "hi"}})

	hist := &fakeHistory{}
	alert := &fakeAlert{}
	verbose := &Verbose{}
	engine := New(reg, nil, t.TempDir(), verbose, hist, alert)

	engine.onTick(100)

	waitFor(t, func() bool {
		hist.mu.Lock()
		defer hist.mu.Unlock()
		return len(hist.records) == 1
	})

	if len(alert.failed) != 0 {
		t.Errorf("expected no failure alerts for a successful command, got %v", alert.failed)
	}

	got, err := reg.Get("job1")
	if err != nil {
		t.Fatalf("Get(job1): %v", err)
	}
	if got.NextHit != 110 {
		t.Errorf("NextHit = %d, want 110", got.NextHit)
	}
}

func TestOnTick_FailureNotifiesAlert(t *testing.T) {
	reg := registry.New()
	_ = reg.Add(timer.Timer{ID: "job2", Kind: timer.OneShot, NextHit: 100, Days: timer.AllDays, Command: []string{"exit", "1"}})

	alert := &fakeAlert{}
	engine := New(reg, nil, t.TempDir(), &Verbose{}, nil, alert)

	engine.onTick(100)

	waitFor(t, func() bool {
		alert.mu.Lock()
		defer alert.mu.Unlock()
		return len(alert.failed) == 1
	})

	if _, err := reg.Get("job2"); err == nil {
		t.Error("OneShot timer should have been retired after firing")
	}
}

func TestOnTick_NoDueTimersIsNoop(t *testing.T) {
	reg := registry.New()
	_ = reg.Add(timer.Timer{ID: "future", NextHit: 500, Days: timer.AllDays})

	engine := New(reg, nil, t.TempDir(), &Verbose{}, nil, nil)
	engine.onTick(100)

	got, _ := reg.Get("future")
	if got.NextHit != 500 {
		t.Errorf("untouched timer's NextHit changed to %d", got.NextHit)
	}
}

func TestVerbose_SetAndGet(t *testing.T) {
	var v Verbose
	if v.Get() {
		t.Error("Verbose should default to false")
	}
	v.Set(true)
	if !v.Get() {
		t.Error("Verbose should be true after Set(true)")
	}
}

func TestEngine_FiresWithDisabledStatusClient(t *testing.T) {
	reg := registry.New()
	_ = reg.Add(timer.Timer{ID: "job3", Kind: timer.OneShot, NextHit: 100, Days: timer.AllDays, Command: []string{"echo", "ok"}})

	sc := status.New("127.0.0.1:0", "timer", false)
	engine := New(reg, sc, t.TempDir(), &Verbose{}, nil, nil)

	// Should not panic even though nothing is listening on the address;
	// the client is disabled and its Run loop is not started, so Publish
	// only queues the event without blocking.
	engine.onTick(100)
	time.Sleep(20 * time.Millisecond)
}
