package ledger

import (
	"time"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// DeriveStatus computes the lifecycle state of tx as of today and the payment
// date the entry should carry. It reads tx and never mutates it.
//
// Canceled is sticky. A projection without a payment date stays pending even
// past its due date, because it cannot be collected before it is invoiced.
func DeriveStatus(tx *models.Transaction, today time.Time) (models.Status, *time.Time) {
	switch {
	case tx.Status == models.StatusCanceled:
		return models.StatusCanceled, nil
	case tx.IsProjection && tx.PaymentDate == nil:
		return models.StatusPending, nil
	case tx.PaymentDate != nil:
		paid := *tx.PaymentDate
		return models.StatusRealized, &paid
	case tx.DueDate.Before(today):
		return models.StatusOverdue, nil
	}
	return models.StatusPending, nil
}

// ApplyStatus stores the derived state on tx and reports whether anything changed.
func ApplyStatus(tx *models.Transaction, today time.Time) bool {
	status, paid := DeriveStatus(tx, today)
	changed := status != tx.Status || !sameDate(paid, tx.PaymentDate)
	tx.Status = status
	tx.PaymentDate = paid
	return changed
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
