package installment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// Split divides total into n amounts of floor(total/n) to the cent, with the
// last amount absorbing the remainder. The amounts always sum to total.
func Split(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 || n > models.MaxInstallments {
		return nil, models.ErrInvalidInstallmentCount.WithField("count")
	}
	if !models.ValidAmount(total) {
		return nil, models.ErrInvalidAmount.WithField("total")
	}

	cents := models.Cents(total)
	base := cents / int64(n)
	if base < 1 {
		return nil, models.ErrInvalidInstallmentCount.WithField("count").
			WithMessage("%s cannot be split into %d installments of at least 0.01", total.StringFixed(2), n)
	}
	remainder := cents - base*int64(n)

	amounts := make([]decimal.Decimal, n)
	for i := range amounts {
		amounts[i] = models.FromCents(base)
	}
	amounts[n-1] = models.FromCents(base + remainder)
	return amounts, nil
}

// Schedule returns n due dates one calendar month apart starting at first.
// Each date is computed from first, so a day-31 start keeps landing on the
// last day of shorter months without drifting.
func Schedule(first time.Time, n int) []time.Time {
	first = models.DateOf(first)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = models.AddMonths(first, i)
	}
	return dates
}

// sum adds up a batch; used to re-check conservation before committing.
func sum(txs []*models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}
