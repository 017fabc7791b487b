package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const invoicePrefix = "INV"

// formatInvoiceNumber renders INV/YYMM/NNNN for the month of t. A sequence
// past 9999 widens the last segment to five digits instead of wrapping.
func formatInvoiceNumber(t time.Time, seq int) string {
	return fmt.Sprintf("%s/%s/%04d", invoicePrefix, t.Format("0601"), seq)
}

// nextInvoiceNumber returns the number following last within the month of
// now. The sequence restarts at 1 each calendar month; last is the highest
// existing number for that month, or empty when the month has none.
func nextInvoiceNumber(last string, now time.Time) string {
	seq := 1
	if i := strings.LastIndex(last, "/"); i >= 0 {
		if n, err := strconv.Atoi(last[i+1:]); err == nil {
			seq = n + 1
		}
	}
	return formatInvoiceNumber(now, seq)
}
