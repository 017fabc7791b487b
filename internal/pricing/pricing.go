// Package pricing computes the post-discount unit price of a line item.
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	Percentage DiscountType = "PERCENTAGE"
	Amount     DiscountType = "AMOUNT"
)

// Step is one discount applied to a unit price. Sequence defines the
// application order within the stack.
type Step struct {
	Sequence int
	Type     DiscountType
	Value    decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// NetPrice folds the discount steps over the base unit price in ascending
// sequence order. The running price is clamped to zero after each step: a
// step can never drive the price negative, and a later step cannot recover
// value lost to an earlier clamp.
func NetPrice(base decimal.Decimal, steps []Step) decimal.Decimal {
	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	net := base
	for _, step := range ordered {
		switch step.Type {
		case Percentage:
			net = net.Sub(net.Mul(step.Value).Div(oneHundred))
		case Amount:
			net = net.Sub(step.Value)
		}
		if net.IsNegative() {
			net = decimal.Zero
		}
	}

	return net.Round(2)
}

// Subtotal is the line total for qty units at the given net unit price,
// floored at zero.
func Subtotal(netPrice decimal.Decimal, qty int) decimal.Decimal {
	subtotal := netPrice.Mul(decimal.NewFromInt(int64(qty)))
	if subtotal.IsNegative() {
		return decimal.Zero
	}
	return subtotal.Round(2)
}
