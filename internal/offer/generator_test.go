package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loangenie/loangenie/internal/domain"
	"github.com/loangenie/loangenie/internal/rate"
)

func TestGenerate_ThreeOffers(t *testing.T) {
	offers := Generate(domain.LoanDraft{Amount: 200_000, TenureMonths: 24})
	require.Len(t, offers, Count)

	assert.Equal(t, int64(200_000), offers[0].Amount)
	assert.Equal(t, int64(220_000), offers[1].Amount)
	assert.Equal(t, int64(180_000), offers[2].Amount)
}

func TestGenerate_RoundsToNearestThousand(t *testing.T) {
	// 1.1 × 123,456 = 135,801.6 → 136,000; 0.9 × 123,456 = 111,110.4 → 111,000.
	offers := Generate(domain.LoanDraft{Amount: 123_456, TenureMonths: 12})
	require.Len(t, offers, Count)

	assert.Equal(t, int64(136_000), offers[1].Amount)
	assert.Equal(t, int64(111_000), offers[2].Amount)
}

func TestGenerate_ClampsToLoanBounds(t *testing.T) {
	top := Generate(domain.LoanDraft{Amount: domain.MaxLoanAmount, TenureMonths: 12})
	assert.Equal(t, domain.MaxLoanAmount, top[1].Amount)

	bottom := Generate(domain.LoanDraft{Amount: domain.MinLoanAmount, TenureMonths: 12})
	assert.Equal(t, domain.MinLoanAmount, bottom[2].Amount)
}

func TestGenerate_RatesModeledPerOffer(t *testing.T) {
	draft := domain.LoanDraft{Amount: 200_000, TenureMonths: 24}
	offers := Generate(draft)

	assert.True(t, offers[0].Rate.Equal(rate.AnnualRounded(200_000, 24)))
	assert.True(t, offers[1].Rate.Equal(rate.AnnualRounded(220_000, 24)))
	assert.True(t, offers[2].Rate.Equal(rate.AnnualRounded(180_000, 24)))

	// The larger principal prices cheaper under the log adjustment, so the
	// three offers do not share a rate.
	assert.False(t, offers[0].Rate.Equal(offers[1].Rate))
	assert.False(t, offers[0].Rate.Equal(offers[2].Rate))
}

func TestGenerate_RatesRoundedToTwoDecimals(t *testing.T) {
	offers := Generate(domain.LoanDraft{Amount: 123_456, TenureMonths: 18})
	for _, o := range offers {
		assert.True(t, o.Rate.Equal(o.Rate.Round(2)), "rate %s not rounded", o.Rate)
	}
}
