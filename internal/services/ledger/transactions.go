package ledger

import (
	"context"
	"strings"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

// CreateTransaction records an ad hoc receivable or payable. Installments are
// created by the installment service, never here.
func (s *Service) CreateTransaction(ctx context.Context, input *models.Transaction) (*models.Transaction, error) {
	if input.IsInstallment || input.IsProjection || input.InstallmentGroupID != "" {
		return nil, models.ErrInstallmentFieldsManaged
	}

	tx := input.Clone()
	tx.ID = newID()
	tx.UserID = common.ResolveUserID(ctx)
	tx.Description = strings.TrimSpace(tx.Description)
	tx.WorkOrderID = strings.TrimSpace(tx.WorkOrderID)
	tx.Status = models.StatusPending
	tx.InstallmentNumber = 0
	tx.InstallmentTotal = 0
	normalizeDates(tx)

	today := s.today()
	if err := validateFields(tx, today); err != nil {
		return nil, err
	}

	now := s.timestamp()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		if err := ValidateReferences(ctx, store, tx); err != nil {
			return err
		}
		if err := checkWorkOrderEntry(ctx, store, tx); err != nil {
			return err
		}
		ApplyStatus(tx, today)
		return store.SaveTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", tx.ID).Str("kind", string(tx.Kind)).
		Str("amount", tx.Amount.StringFixed(2)).Str("status", string(tx.Status)).Msg("Transaction created")
	return tx, nil
}

// UpdateTransaction edits an entry. Installment entries keep their amount, kind,
// work order and grouping; their payment date moves only through MarkRealized and
// MarkPending, and their documents only through AttachInvoice.
func (s *Service) UpdateTransaction(ctx context.Context, input *models.Transaction) (*models.Transaction, error) {
	today := s.today()
	var updated *models.Transaction

	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		existing, err := getTransaction(ctx, store, input.ID)
		if err != nil {
			return err
		}
		if existing.IsCanceled() {
			return models.ErrTransactionCanceled
		}

		tx := existing.Clone()
		tx.Description = strings.TrimSpace(input.Description)
		tx.DueDate = models.DateOf(input.DueDate)
		tx.AccountID = input.AccountID
		tx.CategoryID = input.CategoryID
		tx.PaymentMethod = input.PaymentMethod
		tx.Notes = input.Notes
		tx.ExpenseClass = input.ExpenseClass
		tx.Recurring = input.Recurring
		tx.RecurrencePeriod = input.RecurrencePeriod
		tx.ServiceTypeID = input.ServiceTypeID

		if existing.IsInstallment {
			if !input.Amount.Equal(existing.Amount) || input.Kind != existing.Kind {
				return models.ErrInstallmentFieldsManaged
			}
		} else {
			if input.IsInstallment || input.IsProjection || input.InstallmentGroupID != "" {
				return models.ErrInstallmentFieldsManaged
			}
			in := input.Clone()
			normalizeDates(in)
			tx.Kind = in.Kind
			tx.Amount = in.Amount
			tx.WorkOrderID = strings.TrimSpace(in.WorkOrderID)
			tx.PaymentDate = in.PaymentDate
			tx.Invoice = in.Invoice
			tx.Boleto = in.Boleto
		}

		if err := ValidateTransaction(ctx, store, tx, today); err != nil {
			return err
		}
		if tx.WorkOrderID != existing.WorkOrderID {
			if err := checkWorkOrderEntry(ctx, store, tx); err != nil {
				return err
			}
		}

		ApplyStatus(tx, today)
		tx.UpdatedAt = s.timestamp()
		if err := store.SaveTransaction(ctx, tx); err != nil {
			return err
		}
		updated = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", updated.ID).Str("status", string(updated.Status)).Msg("Transaction updated")
	return updated, nil
}

// GetTransaction returns an entry in the caller's scope.
func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return getTransaction(ctx, s.storage.Ledger(), id)
}

func getTransaction(ctx context.Context, store interfaces.LedgerStore, id string) (*models.Transaction, error) {
	tx, err := store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil || !visible(ctx, tx.UserID) {
		return nil, models.ErrTransactionNotFound
	}
	return tx, nil
}

// ListTransactions lists entries ordered by due date. Callers limited to their
// own data always get their own user filter.
func (s *Service) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	if scope := common.ResolveScopeUserID(ctx); scope != "" {
		filter.UserID = scope
	}
	if filter.Kind != "" && !models.ValidKind(filter.Kind) {
		return nil, models.ErrInvalidKind.WithField("kind")
	}
	for _, st := range filter.Statuses {
		if !models.ValidStatus(st) {
			return nil, models.ErrInvalidField.WithField("status").WithMessage("invalid status %q", st)
		}
	}
	return s.storage.Ledger().ListTransactions(ctx, filter)
}

// DeleteTransaction removes an entry that is neither realized nor an installment.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		tx, err := getTransaction(ctx, store, id)
		if err != nil {
			return err
		}
		if tx.IsRealized() {
			return models.ErrDeleteRealized
		}
		if tx.IsInstallment {
			return models.ErrDeleteInstallment
		}
		return store.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("transaction_id", id).Msg("Transaction deleted")
	return nil
}

// checkWorkOrderEntry enforces one live non-installment entry per work order.
func checkWorkOrderEntry(ctx context.Context, store interfaces.LedgerStore, tx *models.Transaction) error {
	if tx.WorkOrderID == "" {
		return nil
	}
	entries, err := store.ListTransactions(ctx, models.TransactionFilter{
		WorkOrderID:   tx.WorkOrderID,
		IsInstallment: models.Bool(false),
		Statuses:      []models.Status{models.StatusPending, models.StatusOverdue, models.StatusRealized},
	})
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.ID != tx.ID {
			return models.ErrWorkOrderHasEntry.WithField("work_order_id")
		}
	}
	return nil
}

// normalizeDates drops any clock part so dates compare as calendar days.
func normalizeDates(tx *models.Transaction) {
	if !tx.DueDate.IsZero() {
		tx.DueDate = models.DateOf(tx.DueDate)
	}
	if tx.PaymentDate != nil {
		d := models.DateOf(*tx.PaymentDate)
		tx.PaymentDate = &d
	}
	if tx.Invoice.IssuedOn != nil {
		d := models.DateOf(*tx.Invoice.IssuedOn)
		tx.Invoice.IssuedOn = &d
	}
	if tx.Boleto.IssuedOn != nil {
		d := models.DateOf(*tx.Boleto.IssuedOn)
		tx.Boleto.IssuedOn = &d
	}
}
