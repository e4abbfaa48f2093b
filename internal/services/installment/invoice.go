package installment

import (
	"context"
	"strings"
	"time"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
	"github.com/bobmcallan/fieldledger/internal/services/ledger"
)

// AttachInvoice replaces the invoice and boleto data of an open installment.
// A document left out of the request is cleared. Attaching an invoice turns a
// projection into a collectable receivable.
func (s *Service) AttachInvoice(ctx context.Context, transactionID string, req models.InvoiceRequest) (*models.Transaction, error) {
	invoice, boleto := req.Invoice, req.Boleto
	if invoice != nil && invoice.IsZero() {
		invoice = nil
	}
	if boleto != nil && boleto.IsZero() {
		boleto = nil
	}
	if invoice == nil && boleto == nil {
		return nil, models.ErrInvoiceRequired
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return nil, models.ErrInvalidField.WithField("payment_method").
			WithMessage("invalid payment method %q; must be pix, ted, card or boleto", req.PaymentMethod)
	}

	today := s.today()
	var updated *models.Transaction
	err := s.storage.Atomic(ctx, func(store interfaces.LedgerStore) error {
		tx, err := store.GetTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx == nil || !visible(ctx, tx.UserID) {
			return models.ErrTransactionNotFound
		}
		if !tx.IsInstallment || tx.Kind != models.KindIncome {
			return models.ErrInvoiceNotAllowed
		}
		if tx.IsRealized() {
			return models.ErrInvoiceNotAllowed.WithMessage("installment is already paid")
		}
		if tx.IsCanceled() {
			return models.ErrInvoiceNotAllowed.WithMessage("installment is canceled")
		}

		method := req.PaymentMethod
		if method == "" {
			method = tx.PaymentMethod
		}
		if method == "" {
			return models.ErrRequiredField.WithField("payment_method")
		}
		if boleto != nil && method != models.PaymentBoleto {
			return models.ErrBoletoNotAllowed.WithField("boleto")
		}

		next := tx.Clone()
		next.PaymentMethod = method
		next.Invoice = models.Document{}
		next.Boleto = models.Document{}

		if invoice != nil {
			doc, err := checkInvoice(ctx, store, tx.ID, *invoice, today)
			if err != nil {
				return err
			}
			next.Invoice = doc
			next.IsProjection = false
		}
		if boleto != nil {
			doc := models.Document{Number: strings.TrimSpace(boleto.Number)}
			if boleto.IssuedOn != nil {
				d := models.DateOf(*boleto.IssuedOn)
				doc.IssuedOn = &d
			}
			next.Boleto = doc
		}

		ledger.ApplyStatus(next, today)
		next.UpdatedAt = s.now().UTC()
		if err := store.SaveTransaction(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transaction_id", transactionID).Str("invoice", updated.Invoice.Number).
		Bool("boleto", updated.Boleto.Number != "").Str("status", string(updated.Status)).Msg("Installment documents attached")
	return updated, nil
}

func checkInvoice(ctx context.Context, store interfaces.LedgerStore, ownerID string, in models.Document, today time.Time) (models.Document, error) {
	doc := in
	doc.Number = strings.TrimSpace(in.Number)
	doc.City = strings.TrimSpace(in.City)
	doc.Description = strings.TrimSpace(in.Description)
	if doc.Number == "" {
		return doc, models.ErrRequiredField.WithField("invoice.number")
	}
	if in.IssuedOn == nil {
		return doc, models.ErrRequiredField.WithField("invoice.issued_on")
	}
	issued := models.DateOf(*in.IssuedOn)
	if issued.Before(today) {
		return doc, models.ErrInvoiceIssuedInPast.WithField("invoice.issued_on")
	}
	doc.IssuedOn = &issued

	taken, err := store.ListTransactions(ctx, models.TransactionFilter{InvoiceNumber: doc.Number})
	if err != nil {
		return doc, err
	}
	for _, t := range taken {
		if t.ID != ownerID {
			return doc, models.ErrDuplicateInvoice.WithField("invoice.number")
		}
	}
	return doc, nil
}

// BillingQueue lists receivable installments at one billing stage, ordered by due date:
// awaiting_invoice has no invoice yet (canceled excluded), open is invoiced and unpaid, closed is invoiced and paid.
func (s *Service) BillingQueue(ctx context.Context, stage models.BillingStage) ([]*models.Transaction, error) {
	filter := models.TransactionFilter{
		UserID:        common.ResolveScopeUserID(ctx),
		Kind:          models.KindIncome,
		IsInstallment: models.Bool(true),
	}
	switch stage {
	case models.StageAwaitingInvoice:
		filter.HasInvoice = models.Bool(false)
		filter.Statuses = []models.Status{models.StatusPending, models.StatusOverdue, models.StatusRealized}
	case models.StageOpen:
		filter.HasInvoice = models.Bool(true)
		filter.Statuses = []models.Status{models.StatusPending, models.StatusOverdue}
	case models.StageClosed:
		filter.HasInvoice = models.Bool(true)
		filter.Statuses = []models.Status{models.StatusRealized}
	default:
		return nil, models.ErrInvalidField.WithField("stage").
			WithMessage("invalid billing stage %q; must be awaiting_invoice, open or closed", stage)
	}
	return s.storage.Ledger().ListTransactions(ctx, filter)
}

func visible(ctx context.Context, ownerID string) bool {
	scope := common.ResolveScopeUserID(ctx)
	return scope == "" || scope == ownerID
}
