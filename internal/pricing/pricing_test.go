package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNetPrice(t *testing.T) {
	tests := []struct {
		name  string
		base  decimal.Decimal
		steps []Step
		want  decimal.Decimal
	}{
		{
			name:  "no discounts",
			base:  d("50000"),
			steps: nil,
			want:  d("50000"),
		},
		{
			name: "percentage then amount",
			base: d("100000"),
			steps: []Step{
				{Sequence: 1, Type: Percentage, Value: d("10")},
				{Sequence: 2, Type: Amount, Value: d("5000")},
			},
			want: d("85000"),
		},
		{
			name: "steps applied in sequence order regardless of slice order",
			base: d("100000"),
			steps: []Step{
				{Sequence: 2, Type: Amount, Value: d("5000")},
				{Sequence: 1, Type: Percentage, Value: d("10")},
			},
			want: d("85000"),
		},
		{
			name: "amount larger than base clamps to zero",
			base: d("1000"),
			steps: []Step{
				{Sequence: 1, Type: Amount, Value: d("5000")},
			},
			want: d("0"),
		},
		{
			name: "clamp is not recovered by a later step",
			base: d("1000"),
			steps: []Step{
				{Sequence: 1, Type: Amount, Value: d("5000")},
				{Sequence: 2, Type: Percentage, Value: d("10")},
			},
			want: d("0"),
		},
		{
			name: "hundred percent discount",
			base: d("75000"),
			steps: []Step{
				{Sequence: 1, Type: Percentage, Value: d("100")},
			},
			want: d("0"),
		},
		{
			name: "fractional percentage rounds to two places",
			base: d("99999"),
			steps: []Step{
				{Sequence: 1, Type: Percentage, Value: d("15")},
			},
			want: d("84999.15"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NetPrice(tt.base, tt.steps)
			if !got.Equal(tt.want) {
				t.Errorf("NetPrice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		netPrice decimal.Decimal
		qty      int
		want     decimal.Decimal
	}{
		{"qty three", d("85000"), 3, d("255000")},
		{"qty one", d("40000"), 1, d("40000")},
		{"zero net price", d("0"), 10, d("0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtotal(tt.netPrice, tt.qty)
			if !got.Equal(tt.want) {
				t.Errorf("Subtotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNetPriceDoesNotMutateInput(t *testing.T) {
	steps := []Step{
		{Sequence: 2, Type: Amount, Value: d("5000")},
		{Sequence: 1, Type: Percentage, Value: d("10")},
	}
	NetPrice(d("100000"), steps)

	if steps[0].Sequence != 2 {
		t.Errorf("input slice was reordered")
	}
}
