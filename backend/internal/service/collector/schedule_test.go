package collector

import (
	"testing"
	"time"
)

func TestNextWaitSameDay(t *testing.T) {
	schedule := Schedule{RunAt: "12:30", Location: time.UTC}
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	if got, want := schedule.nextWait(now), 2*time.Hour+30*time.Minute; got != want {
		t.Fatalf("nextWait = %v, want %v", got, want)
	}
}

func TestNextWaitRollsToNextDay(t *testing.T) {
	schedule := Schedule{RunAt: "00:00", Location: time.UTC}
	now := time.Date(2024, 3, 10, 1, 0, 0, 0, time.UTC)

	if got, want := schedule.nextWait(now), 23*time.Hour; got != want {
		t.Fatalf("nextWait = %v, want %v", got, want)
	}
}

func TestNextWaitExactRunAtWaitsFullDay(t *testing.T) {
	schedule := Schedule{RunAt: "06:00", Location: time.UTC}
	now := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

	if got, want := schedule.nextWait(now), 24*time.Hour; got != want {
		t.Fatalf("nextWait = %v, want %v", got, want)
	}
}

func TestNextWaitIntervalOverride(t *testing.T) {
	schedule := Schedule{RunAt: "00:00", Location: time.UTC, Interval: 15 * time.Minute}
	now := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

	if got := schedule.nextWait(now); got != 15*time.Minute {
		t.Fatalf("nextWait = %v, want 15m", got)
	}
}

func TestLoadScheduleDefaults(t *testing.T) {
	t.Setenv("CONFIG_SKIP_ENV_LOAD", "1")
	t.Setenv("COLLECT_AT", "")
	t.Setenv("COLLECT_TZ", "")
	t.Setenv("COLLECT_INTERVAL", "")

	schedule, err := LoadScheduleFromEnv()
	if err != nil {
		t.Fatalf("load schedule: %v", err)
	}
	if schedule.RunAt != "00:00" {
		t.Fatalf("unexpected run_at: %q", schedule.RunAt)
	}
	if schedule.Location.String() != "Europe/Moscow" {
		t.Fatalf("unexpected timezone: %s", schedule.Location)
	}
	if schedule.Interval != 0 {
		t.Fatalf("unexpected interval: %v", schedule.Interval)
	}
}

func TestLoadScheduleRejectsBadRunAt(t *testing.T) {
	t.Setenv("CONFIG_SKIP_ENV_LOAD", "1")
	for _, raw := range []string{"24:00", "12:60", "noon", "12"} {
		t.Setenv("COLLECT_AT", raw)
		if _, err := LoadScheduleFromEnv(); err == nil {
			t.Fatalf("expected error for COLLECT_AT=%q", raw)
		}
	}
}

func TestLoadRetryOptionsFromEnv(t *testing.T) {
	t.Setenv("COLLECT_RETRY_MAX_ATTEMPTS", "6")
	t.Setenv("COLLECT_RETRY_DELAYS", "1s, 2s,4s")

	opts, err := LoadRetryOptionsFromEnv()
	if err != nil {
		t.Fatalf("load retry options: %v", err)
	}
	if opts.MaxAttempts != 6 {
		t.Fatalf("max attempts = %d, want 6", opts.MaxAttempts)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(opts.Delays) != len(want) {
		t.Fatalf("delays = %v, want %v", opts.Delays, want)
	}
	for i, d := range opts.Delays {
		if d != want[i] {
			t.Fatalf("delay %d = %v, want %v", i, d, want[i])
		}
	}
}

func TestLoadRetryOptionsRejectsBadValues(t *testing.T) {
	t.Setenv("COLLECT_RETRY_MAX_ATTEMPTS", "0")
	if _, err := LoadRetryOptionsFromEnv(); err == nil {
		t.Fatal("expected error for zero max attempts")
	}

	t.Setenv("COLLECT_RETRY_MAX_ATTEMPTS", "4")
	t.Setenv("COLLECT_RETRY_DELAYS", "3s,never")
	if _, err := LoadRetryOptionsFromEnv(); err == nil {
		t.Fatal("expected error for malformed delay")
	}
}
