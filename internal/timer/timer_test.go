package timer

import (
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"every", Every, false},
		{"oneshot", OneShot, false},
		{"at", At, false},
		{"bogus", 0, true},
	}

	for _, c := range cases {
		got, err := ParseKind(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error, got nil", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseKind(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseDays(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"XXXXXXX", false},
		{"X______", false},
		{"_______", true},
		{"XXXXXX", true},
		{"XXXXXXY", true},
	}

	for _, c := range cases {
		_, err := ParseDays(c.in)
		if c.wantErr != (err != nil) {
			t.Errorf("ParseDays(%q): error = %v, wantErr %v", c.in, err, c.wantErr)
		}
	}
}

func TestParseInterval(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"00:00:01", time.Second, false},
		{"01:30:00", 90 * time.Minute, false},
		{"23:59:59", 23*time.Hour + 59*time.Minute + 59*time.Second, false},
		{"24:00:00", 0, true},
		{"1:2", 0, true},
		{"ab:00:00", 0, true},
	}

	for _, c := range cases {
		got, err := ParseInterval(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseInterval(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseInterval(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseInterval(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseConfig(t *testing.T) {
	values := map[string]string{
		"type":     "every",
		"interval": "00:00:05",
		"command":  "echo hello world",
	}

	cfg, err := ParseConfig("backup", values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Kind != Every {
		t.Errorf("Kind = %v, want Every", cfg.Kind)
	}
	if cfg.Interval != 5*time.Second {
		t.Errorf("Interval = %v, want 5s", cfg.Interval)
	}
	if len(cfg.Command) != 3 || cfg.Command[0] != "echo" {
		t.Errorf("Command = %v", cfg.Command)
	}
	if cfg.Days != AllDays {
		t.Errorf("Days = %v, want AllDays", cfg.Days)
	}
}

func TestParseConfig_MissingFields(t *testing.T) {
	cases := []map[string]string{
		{"interval": "00:00:05", "command": "echo hi"},
		{"type": "every", "command": "echo hi"},
		{"type": "every", "interval": "00:00:05"},
	}

	for _, values := range cases {
		if _, err := ParseConfig("id", values); err == nil {
			t.Errorf("ParseConfig(%v): expected error", values)
		}
	}
}

func TestCalculateNextHit_Every(t *testing.T) {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	tm := Timer{Kind: Every, Interval: 10 * time.Second, Days: AllDays}

	got := CalculateNextHit(tm, now)
	want := uint64(now.Unix()) + 10
	if got != want {
		t.Errorf("CalculateNextHit = %d, want %d", got, want)
	}
}

func TestCalculateNextHit_AtToday(t *testing.T) {
	// 'at' timer set for 10s past local midnight; now is 09:00 local, so
	// today's slot (00:00:10) has already passed; expect next enabled day.
	now := time.Date(2026, 7, 29, 9, 0, 0, 0, time.Local)
	tm := Timer{Kind: At, Interval: 10 * time.Second, Days: AllDays}

	got := CalculateNextHit(tm, now)
	midnight := localMidnight(now)
	want := midnight + 86400 + 10
	if got != want {
		t.Errorf("CalculateNextHit = %d, want %d", got, want)
	}
}

func TestCalculateNextHit_AtLaterToday(t *testing.T) {
	// 'at' slot of 23:00:00 has not yet passed at 01:00 local.
	now := time.Date(2026, 7, 29, 1, 0, 0, 0, time.Local)
	tm := Timer{Kind: At, Interval: 23 * time.Hour, Days: AllDays}

	got := CalculateNextHit(tm, now)
	midnight := localMidnight(now)
	want := midnight + uint64(23*time.Hour/time.Second)
	if got != want {
		t.Errorf("CalculateNextHit = %d, want %d", got, want)
	}
}

func TestCalculateNextHit_DaySkip(t *testing.T) {
	// Timer only runs on a day two days from now; must skip ahead to it.
	now := time.Now()
	var days Days
	days[(weekdayIndex(now)+2)%7] = true
	tm := Timer{Kind: Every, Interval: time.Second, Days: days}

	got := CalculateNextHit(tm, now)
	midnight := localMidnight(now)
	want := midnight + 2*86400 + 1
	if got != want {
		t.Errorf("CalculateNextHit = %d, want %d", got, want)
	}
}

func TestShouldRun(t *testing.T) {
	tm := Timer{NextHit: 100}
	if !tm.ShouldRun(100) {
		t.Error("expected ShouldRun(100) true when NextHit == now")
	}
	if !tm.ShouldRun(150) {
		t.Error("expected ShouldRun(150) true when now > NextHit")
	}
	if tm.ShouldRun(99) {
		t.Error("expected ShouldRun(99) false when now < NextHit")
	}
}

func TestReschedule_OneShotRetires(t *testing.T) {
	tm := Timer{Kind: OneShot, NextHit: 100}
	got, remove := Reschedule(tm, 100)
	if !remove {
		t.Error("expected OneShot to be retired")
	}
	if got.NextHit != 100 {
		t.Errorf("NextHit should be unchanged, got %d", got.NextHit)
	}
}

func TestReschedule_EveryAdvances(t *testing.T) {
	tm := Timer{Kind: Every, Interval: 10 * time.Second, NextHit: 100}
	got, remove := Reschedule(tm, 100)
	if remove {
		t.Error("Every timer should never be removed")
	}
	if got.NextHit != 110 {
		t.Errorf("NextHit = %d, want 110", got.NextHit)
	}
}

func TestReschedule_EveryCatchesUpAfterMissedTicks(t *testing.T) {
	// Simulate a long stall: NextHit far in the past relative to now.
	tm := Timer{Kind: Every, Interval: 10 * time.Second, NextHit: 100}
	got, _ := Reschedule(tm, 135)
	if got.NextHit <= 135 {
		t.Errorf("NextHit = %d, want > 135 after catch-up", got.NextHit)
	}
	if (got.NextHit-100)%10 != 0 {
		t.Errorf("NextHit = %d, want to remain aligned to 10s grid from 100", got.NextHit)
	}
}

func TestCommandLine(t *testing.T) {
	tm := Timer{Command: []string{"echo", "hello", "world"}}
	if got, want := tm.CommandLine(), "echo hello world"; got != want {
		t.Errorf("CommandLine() = %q, want %q", got, want)
	}
}
