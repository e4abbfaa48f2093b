package installment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fieldledger/internal/models"
)

func TestSplit_Conservation(t *testing.T) {
	totals := []string{"0.24", "1.00", "10.01", "99.99", "100.00", "1000.00", "1234.57", "2500.03", "99999.99"}

	for _, raw := range totals {
		total := decimal.RequireFromString(raw)
		for n := 1; n <= models.MaxInstallments; n++ {
			amounts, err := Split(total, n)
			require.NoError(t, err, "total %s n %d", raw, n)
			require.Len(t, amounts, n)

			sum := decimal.Zero
			for i, a := range amounts {
				sum = sum.Add(a)
				assert.True(t, a.Equal(a.Truncate(2)), "amount %s has more than two places", a)
				if i < n-1 {
					assert.True(t, a.Equal(amounts[0]), "only the last installment may differ (total %s n %d)", raw, n)
				}
			}
			assert.True(t, sum.Equal(total), "total %s n %d sums to %s", raw, n, sum)

			base := amounts[0]
			last := amounts[n-1]
			assert.True(t, last.GreaterThanOrEqual(base))
			assert.True(t, last.Sub(base).LessThan(models.FromCents(int64(n))), "remainder is less than n cents")
		}
	}
}

func TestSplit_ThousandInThree(t *testing.T) {
	amounts, err := Split(decimal.RequireFromString("1000.00"), 3)
	require.NoError(t, err)
	assert.Equal(t, "333.33", amounts[0].StringFixed(2))
	assert.Equal(t, "333.33", amounts[1].StringFixed(2))
	assert.Equal(t, "333.34", amounts[2].StringFixed(2))
}

func TestSplit_Rejects(t *testing.T) {
	_, err := Split(decimal.NewFromInt(100), 0)
	assert.ErrorIs(t, err, models.ErrInvalidInstallmentCount)

	_, err = Split(decimal.NewFromInt(100), 25)
	assert.ErrorIs(t, err, models.ErrInvalidInstallmentCount)

	_, err = Split(decimal.Zero, 2)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = Split(decimal.RequireFromString("10.005"), 2)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = Split(decimal.RequireFromString("0.02"), 3)
	assert.ErrorIs(t, err, models.ErrInvalidInstallmentCount, "each installment needs at least one cent")
}

func TestSchedule_ClampsToMonthEnd(t *testing.T) {
	dates := Schedule(models.Date(2025, time.January, 31), 4)
	assert.Equal(t, []time.Time{
		models.Date(2025, time.January, 31),
		models.Date(2025, time.February, 28),
		models.Date(2025, time.March, 31),
		models.Date(2025, time.April, 30),
	}, dates)

	leap := Schedule(models.Date(2024, time.January, 31), 2)
	assert.Equal(t, models.Date(2024, time.February, 29), leap[1])

	yearEnd := Schedule(models.Date(2024, time.November, 30), 4)
	assert.Equal(t, models.Date(2025, time.February, 28), yearEnd[3])
}

func TestSchedule_DropsClockTime(t *testing.T) {
	dates := Schedule(time.Date(2025, time.March, 5, 18, 30, 0, 0, time.UTC), 2)
	assert.Equal(t, models.Date(2025, time.March, 5), dates[0])
	assert.Equal(t, models.Date(2025, time.April, 5), dates[1])
}
