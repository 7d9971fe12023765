package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		tenure int
		want   Verdict
	}{
		{"zero amount", 0, 12, Rejected},
		{"negative amount", -5000, 12, Rejected},
		{"zero tenure", 200_000, 0, Rejected},
		{"small amount long tenure", 90_000, 48, Rejected},
		{"small amount boundary tenure ok", 90_000, 36, Approved},
		{"amount boundary long tenure ok", 100_000, 48, Approved},
		{"large amount short tenure", 3_000_000, 6, Rejected},
		{"large amount year tenure ok", 3_000_000, 12, Approved},
		{"amount boundary short tenure ok", 2_500_000, 6, Approved},
		{"repayment below floor", 100, 1, Rejected},
		{"repayment at floor", 24_000, 12, Approved},
		{"repayment above ceiling", 6_100_000, 12, Rejected},
		{"repayment at ceiling", 6_000_000, 12, Approved},
		{"typical approval", 600_000, 24, Approved},
		{"scenario approval", 200_000, 24, Approved},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.amount, tc.tenure))
		})
	}
}

func TestDecide_Deterministic(t *testing.T) {
	first := Decide(600_000, 24)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Decide(600_000, 24))
	}
}
