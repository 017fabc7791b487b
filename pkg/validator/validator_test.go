package validator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type datedInput struct {
	Date time.Time `validate:"notfuture"`
}

func TestNotFuture(t *testing.T) {
	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	tests := []struct {
		name  string
		date  time.Time
		valid bool
	}{
		{"now", now, true},
		{"start of today", startOfToday, true},
		{"late today local", startOfToday.Add(23 * time.Hour), true},
		{"yesterday", now.AddDate(0, 0, -1), true},
		{"tomorrow", startOfToday.AddDate(0, 0, 1).Add(time.Hour), false},
		{"two days out", now.AddDate(0, 0, 2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(datedInput{Date: tt.date})
			if got := len(errs) == 0; got != tt.valid {
				t.Errorf("valid = %v, want %v (date %s)", got, tt.valid, tt.date)
			}
		})
	}
}

type idInput struct {
	ID uuid.UUID `validate:"uuid_required"`
}

func TestUUIDRequired(t *testing.T) {
	if errs := ValidateStruct(idInput{ID: uuid.New()}); len(errs) != 0 {
		t.Errorf("non-nil id rejected: %+v", errs[0])
	}
	if errs := ValidateStruct(idInput{}); len(errs) == 0 {
		t.Error("nil id accepted")
	}
}

type amountInput struct {
	Amount decimal.Decimal `validate:"dgte0"`
}

func TestDecimalGTEZero(t *testing.T) {
	if errs := ValidateStruct(amountInput{Amount: decimal.Zero}); len(errs) != 0 {
		t.Errorf("zero rejected: %+v", errs[0])
	}
	if errs := ValidateStruct(amountInput{Amount: decimal.NewFromInt(-1)}); len(errs) == 0 {
		t.Error("negative amount accepted")
	}
}
