package schedule

import (
	"testing"
	"time"
)

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		timezone string
		wantErr  bool
	}{
		{"five field", "*/10 * * * *", "UTC", false},
		{"descriptor", "@daily", "", false},
		{"with timezone", "0 3 * * *", "Europe/Berlin", false},
		{"bad timezone falls back to bare parse", "0 3 * * *", "Mars/Olympus", false},
		{"garbage", "not a cron expression", "UTC", true},
		{"empty", "", "UTC", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTrigger(tt.expr, tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseTrigger(%q, %q) error = %v, wantErr %v", tt.expr, tt.timezone, err, tt.wantErr)
			}
		})
	}
}

func TestTriggerDue(t *testing.T) {
	window := time.Minute

	tests := []struct {
		name string
		expr string
		now  time.Time
		want bool
	}{
		{"every minute always due", "* * * * *", time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC), true},
		{"daily due just after midnight", "0 0 * * *", time.Date(2025, 6, 1, 0, 0, 30, 0, time.UTC), true},
		{"daily not due one window later", "0 0 * * *", time.Date(2025, 6, 1, 0, 1, 30, 0, time.UTC), false},
		{"daily not due midday", "0 0 * * *", time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC), false},
		{"fire time on the window edge", "0 0 * * *", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TriggerDue(tt.expr, "UTC", tt.now, window)
			if err != nil {
				t.Fatalf("TriggerDue(%q) error: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("TriggerDue(%q, now=%s) = %v, want %v", tt.expr, tt.now, got, tt.want)
			}
		})
	}
}

func TestTriggerDue_InvalidExpression(t *testing.T) {
	if _, err := TriggerDue("bogus", "UTC", time.Now(), time.Minute); err == nil {
		t.Error("TriggerDue should fail on an unparseable expression")
	}
}

func TestMinimumPeriod(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Duration
	}{
		{"* * * * *", time.Minute},
		{"*/10 * * * *", 10 * time.Minute},
		{"0 * * * *", time.Hour},
		{"0 0 * * *", 24 * time.Hour},
	}

	for _, tt := range tests {
		got, err := MinimumPeriod(tt.expr, "UTC", now)
		if err != nil {
			t.Fatalf("MinimumPeriod(%q) error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("MinimumPeriod(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestMinimumPeriod_InvalidExpression(t *testing.T) {
	if _, err := MinimumPeriod("bogus", "UTC", time.Now()); err == nil {
		t.Error("MinimumPeriod should fail on an unparseable expression")
	}
}
