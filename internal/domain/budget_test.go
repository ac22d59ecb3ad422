package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBudgetContains(t *testing.T) {
	b := &Budget{
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		at       time.Time
		expected bool
	}{
		{"start of window", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), true},
		{"late on end date", time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC), true},
		{"day after end", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), false},
		{"before start", time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Contains(tt.at); got != tt.expected {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.expected)
			}
		})
	}
}

func TestBudgetPatchApply_RejectsInvertedWindow(t *testing.T) {
	b := &Budget{
		Amount:    decimal.NewFromInt(200000),
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	patch := BudgetPatch{StartDate: &start}
	if err := patch.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := patch.Apply(b); err != ErrInvalidDateRange {
		t.Errorf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestWarningThreshold(t *testing.T) {
	if !WarningThreshold.Equal(decimal.RequireFromString("0.8")) {
		t.Errorf("WarningThreshold = %s, want 0.8", WarningThreshold)
	}
}
