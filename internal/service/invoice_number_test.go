package service

import (
	"testing"
	"time"
)

func TestFormatInvoiceNumber(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		seq  int
		want string
	}{
		{"first of month", time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), 1, "INV/2509/0001"},
		{"padded sequence", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), 42, "INV/2509/0042"},
		{"four digit sequence", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 9999, "INV/2512/9999"},
		{"widened sequence", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), 10000, "INV/2512/10000"},
		{"single digit month", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 7, "INV/2601/0007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatInvoiceNumber(tt.at, tt.seq)
			if got != tt.want {
				t.Errorf("formatInvoiceNumber() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	september := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	october := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		last string
		now  time.Time
		want string
	}{
		{"empty month starts at one", "", september, "INV/2509/0001"},
		{"increments last", "INV/2509/0012", september, "INV/2509/0013"},
		{"month rollover restarts", "", october, "INV/2510/0001"},
		{"widens past four digits", "INV/2509/9999", september, "INV/2509/10000"},
		{"increments widened number", "INV/2509/10000", september, "INV/2509/10001"},
		{"garbage suffix falls back to one", "INV/2509/xxxx", september, "INV/2509/0001"},
		{"short string falls back to one", "INV", september, "INV/2509/0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextInvoiceNumber(tt.last, tt.now)
			if got != tt.want {
				t.Errorf("nextInvoiceNumber(%q) = %q, want %q", tt.last, got, tt.want)
			}
		})
	}
}
