package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// documentRequest carries invoice or boleto data with a YYYY-MM-DD issue date.
type documentRequest struct {
	Number      string          `json:"number"`
	IssuedOn    *string         `json:"issued_on"`
	City        string          `json:"city"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"`
}

func (req *documentRequest) document(field string) (*models.Document, error) {
	if req == nil {
		return nil, nil
	}
	issued, err := parseDate(field+".issued_on", req.IssuedOn)
	if err != nil {
		return nil, err
	}
	return &models.Document{
		Number:      req.Number,
		IssuedOn:    issued,
		City:        req.City,
		Description: req.Description,
		Payload:     req.Payload,
	}, nil
}

// transactionRequest is the body of transaction create and update. Absent
// fields keep their current value on update.
type transactionRequest struct {
	Kind             *models.Kind             `json:"kind"`
	Description      *string                  `json:"description"`
	Amount           *decimal.Decimal         `json:"amount"`
	DueDate          *string                  `json:"due_date"`
	PaymentDate      *string                  `json:"payment_date"`
	PaymentMethod    *models.PaymentMethod    `json:"payment_method"`
	AccountID        *string                  `json:"account_id"`
	CategoryID       *string                  `json:"category_id"`
	WorkOrderID      *string                  `json:"work_order_id"`
	Notes            *string                  `json:"notes"`
	ExpenseClass     *models.ExpenseClass     `json:"expense_class"`
	Recurring        *bool                    `json:"recurring"`
	RecurrencePeriod *models.RecurrencePeriod `json:"recurrence_period"`
	ServiceTypeID    *string                  `json:"service_type_id"`
	Invoice          *documentRequest         `json:"invoice"`
	Boleto           *documentRequest         `json:"boleto"`
}

func (req *transactionRequest) apply(tx *models.Transaction) error {
	if req.Kind != nil {
		tx.Kind = *req.Kind
	}
	if req.Description != nil {
		tx.Description = *req.Description
	}
	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.DueDate != nil {
		due, err := parseDate("due_date", req.DueDate)
		if err != nil {
			return err
		}
		if due == nil {
			return models.ErrMissingDueDate.WithField("due_date")
		}
		tx.DueDate = *due
	}
	if req.PaymentDate != nil {
		paid, err := parseDate("payment_date", req.PaymentDate)
		if err != nil {
			return err
		}
		tx.PaymentDate = paid
	}
	if req.PaymentMethod != nil {
		tx.PaymentMethod = *req.PaymentMethod
	}
	if req.AccountID != nil {
		tx.AccountID = *req.AccountID
	}
	if req.CategoryID != nil {
		tx.CategoryID = *req.CategoryID
	}
	if req.WorkOrderID != nil {
		tx.WorkOrderID = *req.WorkOrderID
	}
	if req.Notes != nil {
		tx.Notes = *req.Notes
	}
	if req.ExpenseClass != nil {
		tx.ExpenseClass = *req.ExpenseClass
	}
	if req.Recurring != nil {
		tx.Recurring = *req.Recurring
	}
	if req.RecurrencePeriod != nil {
		tx.RecurrencePeriod = *req.RecurrencePeriod
	}
	if req.ServiceTypeID != nil {
		tx.ServiceTypeID = *req.ServiceTypeID
	}
	if req.Invoice != nil {
		doc, err := req.Invoice.document("invoice")
		if err != nil {
			return err
		}
		tx.Invoice = *doc
	}
	if req.Boleto != nil {
		doc, err := req.Boleto.document("boleto")
		if err != nil {
			return err
		}
		tx.Boleto = *doc
	}
	return nil
}

// transactionFilter builds a listing filter from query parameters.
func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	f := models.TransactionFilter{
		AccountID:          q.Get("account_id"),
		CategoryID:         q.Get("category_id"),
		WorkOrderID:        q.Get("work_order_id"),
		InstallmentGroupID: q.Get("installment_group_id"),
		InvoiceNumber:      q.Get("invoice_number"),
		Kind:               models.Kind(q.Get("kind")),
	}
	if f.Kind != "" && !models.ValidKind(f.Kind) {
		return f, models.ErrInvalidKind.WithField("kind")
	}
	for _, raw := range splitList(q.Get("status")) {
		status := models.Status(strings.ToLower(raw))
		if !models.ValidStatus(status) {
			return f, models.ErrInvalidField.WithField("status").
				WithMessage("invalid status %q; must be pending, realized, overdue or canceled", raw)
		}
		f.Statuses = append(f.Statuses, status)
	}

	var err error
	if f.DueFrom, err = queryDate(r, "due_from"); err != nil {
		return f, err
	}
	if f.DueTo, err = queryDate(r, "due_to"); err != nil {
		return f, err
	}
	if f.PaidFrom, err = queryDate(r, "paid_from"); err != nil {
		return f, err
	}
	if f.PaidTo, err = queryDate(r, "paid_to"); err != nil {
		return f, err
	}
	if f.IsInstallment, err = queryBool(r, "is_installment"); err != nil {
		return f, err
	}
	if f.IsProjection, err = queryBool(r, "is_projection"); err != nil {
		return f, err
	}
	if f.HasInvoice, err = queryBool(r, "has_invoice"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	txs, err := s.app.LedgerService.ListTransactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	WriteJSON(w, http.StatusOK, txs)
}

func (s *Server) handleTransactionCreate(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	tx := &models.Transaction{}
	if err := req.apply(tx); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	created, err := s.app.LedgerService.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTransactionGet(w http.ResponseWriter, r *http.Request) {
	tx, err := s.app.LedgerService.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionUpdate(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	existing, err := s.app.LedgerService.GetTransaction(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	tx := existing.Clone()
	if err := req.apply(tx); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	updated, err := s.app.LedgerService.UpdateTransaction(ctx, tx)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleTransactionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.app.LedgerService.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransactionRealize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentDate *string `json:"payment_date"`
	}
	if r.ContentLength != 0 && !DecodeJSON(w, r, &req) {
		return
	}
	paid, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	tx, err := s.app.LedgerService.MarkRealized(r.Context(), chi.URLParam(r, "id"), paid)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionPending(w http.ResponseWriter, r *http.Request) {
	tx, err := s.app.LedgerService.MarkPending(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionCancel(w http.ResponseWriter, r *http.Request) {
	tx, err := s.app.LedgerService.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) handleTransactionInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentMethod models.PaymentMethod `json:"payment_method"`
		Invoice       *documentRequest     `json:"invoice"`
		Boleto        *documentRequest     `json:"boleto"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	invoice, err := req.Invoice.document("invoice")
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	boleto, err := req.Boleto.document("boleto")
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	tx, err := s.app.InstallmentService.AttachInvoice(r.Context(), chi.URLParam(r, "id"), models.InvoiceRequest{
		PaymentMethod: req.PaymentMethod,
		Invoice:       invoice,
		Boleto:        boleto,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

func (s *Server) handleRefreshStatuses(w http.ResponseWriter, r *http.Request) {
	n, err := s.app.LedgerService.RefreshStatuses(r.Context())
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}
