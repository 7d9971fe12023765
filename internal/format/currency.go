// Package format provides locale-specific display formatting helpers.
package format

import (
	"strconv"
	"strings"
)

// RupeeSymbol prefixes every formatted currency amount.
const RupeeSymbol = "₹"

// Currency formats a rupee amount with Indian digit grouping, e.g.
// 200000 becomes "₹2,00,000" and 10000000 becomes "₹1,00,00,000".
// Amounts are whole rupees; no fractional part is rendered.
func Currency(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(RupeeSymbol)
	b.WriteString(groupIndian(digits))
	return b.String()
}

// groupIndian inserts commas Indian-style: the last three digits form one
// group, every preceding group has two digits.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	groups = append(groups, tail)

	return strings.Join(groups, ",")
}
