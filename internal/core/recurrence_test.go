package core

import "testing"

func TestAdvance(t *testing.T) {
	tests := []struct {
		name      string
		current   Date
		frequency Frequency
		want      Date
	}{
		{
			name:      "daily adds one day",
			current:   NewDate(2024, 3, 1),
			frequency: Daily,
			want:      NewDate(2024, 3, 2),
		},
		{
			name:      "daily crosses month boundary",
			current:   NewDate(2024, 1, 31),
			frequency: Daily,
			want:      NewDate(2024, 2, 1),
		},
		{
			name:      "weekly adds seven days",
			current:   NewDate(2024, 3, 1),
			frequency: Weekly,
			want:      NewDate(2024, 3, 8),
		},
		{
			name:      "weekly crosses year boundary",
			current:   NewDate(2023, 12, 28),
			frequency: Weekly,
			want:      NewDate(2024, 1, 4),
		},
		{
			name:      "monthly simple",
			current:   NewDate(2024, 3, 1),
			frequency: Monthly,
			want:      NewDate(2024, 4, 1),
		},
		{
			name:      "monthly jan 31 clamps to feb 29 on leap year",
			current:   NewDate(2024, 1, 31),
			frequency: Monthly,
			want:      NewDate(2024, 2, 29),
		},
		{
			name:      "monthly jan 31 clamps to feb 28 on non-leap year",
			current:   NewDate(2023, 1, 31),
			frequency: Monthly,
			want:      NewDate(2023, 2, 28),
		},
		{
			name:      "monthly mar 31 clamps to apr 30",
			current:   NewDate(2024, 3, 31),
			frequency: Monthly,
			want:      NewDate(2024, 4, 30),
		},
		{
			name:      "monthly dec rolls into next year",
			current:   NewDate(2024, 12, 15),
			frequency: Monthly,
			want:      NewDate(2025, 1, 15),
		},
		{
			name:      "yearly simple",
			current:   NewDate(2024, 3, 1),
			frequency: Yearly,
			want:      NewDate(2025, 3, 1),
		},
		{
			name:      "yearly feb 29 clamps to feb 28 on non-leap target",
			current:   NewDate(2024, 2, 29),
			frequency: Yearly,
			want:      NewDate(2025, 2, 28),
		},
		{
			name:      "unknown frequency falls back to monthly",
			current:   NewDate(2024, 1, 31),
			frequency: Frequency("biweekly"),
			want:      NewDate(2024, 2, 29),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advance(tt.current, tt.frequency)
			if !got.Equal(tt.want) {
				t.Errorf("Advance(%s, %s) = %s, want %s", tt.current, tt.frequency, got, tt.want)
			}
		})
	}
}

func TestAdvance_NeverMovesBackward(t *testing.T) {
	frequencies := []Frequency{Daily, Weekly, Monthly, Yearly}
	start := NewDate(2024, 2, 29)
	for _, f := range frequencies {
		d := start
		for i := 0; i < 24; i++ {
			next := Advance(d, f)
			if !d.Before(next) {
				t.Fatalf("Advance(%s, %s) = %s did not move forward", d, f, next)
			}
			d = next
		}
	}
}
