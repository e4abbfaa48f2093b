package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

// MarkRealized records the payment of an entry. paymentDate defaults to today.
// An entry that is already realized is returned unchanged with ErrAlreadyRealized.
func (s *Service) MarkRealized(ctx context.Context, id string, paymentDate *time.Time) (*models.Transaction, error) {
	today := s.today()
	paid := today
	if paymentDate != nil {
		paid = models.DateOf(*paymentDate)
	}

	var result *models.Transaction
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		tx, err := getTransaction(ctx, store, id)
		if err != nil {
			return err
		}
		result = tx
		if tx.IsCanceled() {
			return models.ErrTransactionCanceled
		}
		if tx.IsRealized() {
			return models.ErrAlreadyRealized
		}
		if tx.IsProjection {
			return models.ErrProjectionNotPayable
		}
		if err := ValidatePaymentDate(tx.DueDate, paid, today); err != nil {
			return err
		}

		updated := tx.Clone()
		updated.PaymentDate = &paid
		ApplyStatus(updated, today)
		updated.UpdatedAt = s.timestamp()
		if err := store.SaveTransaction(ctx, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		if models.ErrorKindOf(err) == models.KindWarning {
			s.logger.Warn().Str("transaction_id", id).Msg("Transaction already realized")
			return result, err
		}
		return nil, err
	}

	s.logger.Info().Str("transaction_id", id).Str("payment_date", models.FormatDate(paid)).Msg("Transaction realized")
	return result, nil
}

// MarkPending reverses a payment. The entry lands in pending or overdue
// depending on its due date. A non-realized entry is returned unchanged with ErrNotRealized.
func (s *Service) MarkPending(ctx context.Context, id string) (*models.Transaction, error) {
	today := s.today()

	var result *models.Transaction
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		tx, err := getTransaction(ctx, store, id)
		if err != nil {
			return err
		}
		result = tx
		if tx.IsCanceled() {
			return models.ErrTransactionCanceled
		}
		if !tx.IsRealized() {
			return models.ErrNotRealized
		}

		updated := tx.Clone()
		updated.PaymentDate = nil
		ApplyStatus(updated, today)
		updated.UpdatedAt = s.timestamp()
		if err := store.SaveTransaction(ctx, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		if models.ErrorKindOf(err) == models.KindWarning {
			s.logger.Warn().Str("transaction_id", id).Msg("Transaction is not realized")
			return result, err
		}
		return nil, err
	}

	s.logger.Info().Str("transaction_id", id).Str("status", string(result.Status)).Msg("Transaction marked pending")
	return result, nil
}

// Cancel terminates an unrealized installment. Canceling a canceled entry is a
// no-op. When the last live member of a group is canceled the group is closed
// in the same write.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Transaction, error) {
	var (
		result      *models.Transaction
		groupClosed bool
	)
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		tx, err := getTransaction(ctx, store, id)
		if err != nil {
			return err
		}
		result = tx
		if tx.IsCanceled() {
			return nil
		}
		if !tx.IsInstallment {
			return models.ErrCancelNonInstallment
		}
		if tx.IsRealized() {
			return models.ErrCancelRealized
		}

		updated := tx.Clone()
		updated.Status = models.StatusCanceled
		updated.PaymentDate = nil
		updated.UpdatedAt = s.timestamp()
		if err := store.SaveTransaction(ctx, updated); err != nil {
			return err
		}
		result = updated

		if updated.InstallmentGroupID == "" {
			return nil
		}
		groupClosed, err = closeGroupIfSpent(ctx, store, updated.InstallmentGroupID, updated.UpdatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", id).Str("group_id", result.InstallmentGroupID).
		Bool("group_closed", groupClosed).Msg("Installment canceled")
	return result, nil
}

// closeGroupIfSpent marks a group canceled once every member is canceled.
func closeGroupIfSpent(ctx context.Context, store interfaces.LedgerStore, groupID string, at time.Time) (bool, error) {
	members, err := store.ListTransactions(ctx, models.TransactionFilter{InstallmentGroupID: groupID})
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if !m.IsCanceled() {
			return false, nil
		}
	}

	group, err := store.GetInstallmentGroup(ctx, groupID)
	if err != nil {
		return false, err
	}
	if group == nil {
		return false, fmt.Errorf("installment group %s referenced by transactions does not exist", groupID)
	}
	if !group.Active() {
		return false, nil
	}
	group.CanceledAt = &at
	if err := store.CancelInstallmentGroup(ctx, group); err != nil {
		return false, err
	}
	return true, nil
}

// RefreshStatuses re-derives every open entry in the caller's scope and persists
// the ones whose state moved, typically pending entries that crossed their due date.
func (s *Service) RefreshStatuses(ctx context.Context) (int, error) {
	today := s.today()
	changed := 0
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		open, err := store.ListTransactions(ctx, models.TransactionFilter{
			UserID:   common.ResolveScopeUserID(ctx),
			Statuses: []models.Status{models.StatusPending, models.StatusOverdue},
		})
		if err != nil {
			return err
		}
		now := s.timestamp()
		for _, tx := range open {
			if !ApplyStatus(tx, today) {
				continue
			}
			tx.UpdatedAt = now
			if err := store.SaveTransaction(ctx, tx); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug().Int("changed", changed).Str("today", models.FormatDate(today)).Msg("Statuses refreshed")
	return changed, nil
}
