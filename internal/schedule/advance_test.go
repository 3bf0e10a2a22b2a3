package schedule

import (
	"testing"

	"cadence/internal/core"
)

func TestDailyAdvance(t *testing.T) {
	tests := []struct {
		name   string
		anchor core.Date
		want   core.Date
	}{
		{"plain day", core.NewDate(2024, 6, 10), core.NewDate(2024, 6, 11)},
		{"month boundary", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 1)},
		{"year boundary", core.NewDate(2023, 12, 31), core.NewDate(2024, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DailyAdvancer{}.Advance(tt.anchor, 0)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s) = %s, want %s", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestWeeklyAdvance(t *testing.T) {
	tests := []struct {
		name   string
		anchor core.Date
		want   core.Date
	}{
		{"plain week", core.NewDate(2024, 6, 10), core.NewDate(2024, 6, 17)},
		{"across month", core.NewDate(2024, 2, 26), core.NewDate(2024, 3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeeklyAdvancer{}.Advance(tt.anchor, 0)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s) = %s, want %s", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestMonthlyAdvance(t *testing.T) {
	tests := []struct {
		name   string
		anchor core.Date
		want   core.Date
	}{
		{"plain month", core.NewDate(2024, 3, 15), core.NewDate(2024, 4, 15)},
		{"jan 31 into leap february", core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29)},
		{"jan 31 into non-leap february", core.NewDate(2023, 1, 31), core.NewDate(2023, 2, 28)},
		{"may 31 into june clamps to 30", core.NewDate(2024, 5, 31), core.NewDate(2024, 6, 30)},
		{"december carries year", core.NewDate(2024, 12, 15), core.NewDate(2025, 1, 15)},
		{"clamped day does not stick", core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyAdvancer{}.Advance(tt.anchor, 0)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s) = %s, want %s", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestYearlyAdvance(t *testing.T) {
	tests := []struct {
		name   string
		anchor core.Date
		want   core.Date
	}{
		{"plain year", core.NewDate(2024, 6, 15), core.NewDate(2025, 6, 15)},
		{"feb 29 into non-leap year", core.NewDate(2024, 2, 29), core.NewDate(2025, 2, 28)},
		{"feb 28 stays feb 28", core.NewDate(2023, 2, 28), core.NewDate(2024, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearlyAdvancer{}.Advance(tt.anchor, 0)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s) = %s, want %s", tt.anchor, got, tt.want)
			}
		})
	}
}

func TestCustomAdvance(t *testing.T) {
	tests := []struct {
		name       string
		anchor     core.Date
		customDays int
		want       core.Date
	}{
		{"every 14 days", core.NewDate(2024, 6, 1), 14, core.NewDate(2024, 6, 15)},
		{"every 30 days", core.NewDate(2024, 1, 15), 30, core.NewDate(2024, 2, 14)},
		{"unset interval falls back to one day", core.NewDate(2024, 6, 1), 0, core.NewDate(2024, 6, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CustomAdvancer{}.Advance(tt.anchor, tt.customDays)
			if !got.Equal(tt.want.Time) {
				t.Errorf("Advance(%s, %d) = %s, want %s", tt.anchor, tt.customDays, got, tt.want)
			}
		})
	}
}

func TestAdvanceUnknownFrequency(t *testing.T) {
	if _, err := Advance(core.NewDate(2024, 1, 1), core.Frequency("fortnightly"), 0); err == nil {
		t.Fatal("Advance() expected error for unknown frequency")
	}
}

func TestGetAdvancer(t *testing.T) {
	tests := []struct {
		name      string
		frequency core.Frequency
		wantErr   bool
	}{
		{"daily", core.Daily, false},
		{"weekly", core.Weekly, false},
		{"monthly", core.Monthly, false},
		{"yearly", core.Yearly, false},
		{"custom", core.Custom, false},
		{"unknown", core.Frequency("biweekly"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := GetAdvancer(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetAdvancer() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && a == nil {
				t.Error("GetAdvancer() returned nil advancer")
			}
		})
	}
}

func TestRegisterAdvancer(t *testing.T) {
	freq := core.Frequency("quarterly")
	RegisterAdvancer(freq, MonthlyAdvancer{})

	a, err := GetAdvancer(freq)
	if err != nil {
		t.Errorf("GetAdvancer() after register error = %v", err)
	}
	if a == nil {
		t.Error("GetAdvancer() returned nil after registration")
	}

	// Cleanup - remove the custom advancer to avoid affecting other tests
	delete(advancers, freq)
}

func TestIsDue(t *testing.T) {
	today := core.NewDate(2024, 6, 10)
	tests := []struct {
		name     string
		nextDate core.Date
		want     bool
	}{
		{"overdue", core.NewDate(2024, 6, 5), true},
		{"due today", core.NewDate(2024, 6, 10), true},
		{"due tomorrow", core.NewDate(2024, 6, 11), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(tt.nextDate, today); got != tt.want {
				t.Errorf("IsDue(%s, %s) = %v, want %v", tt.nextDate, today, got, tt.want)
			}
		})
	}
}
