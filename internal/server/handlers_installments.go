package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

type installmentRequest struct {
	Kind              models.Kind          `json:"kind"`
	Total             decimal.Decimal      `json:"total"`
	Count             int                  `json:"count"`
	FirstDueDate      *string              `json:"first_due_date"`
	AccountID         string               `json:"account_id"`
	CategoryID        string               `json:"category_id"`
	Description       string               `json:"description"`
	PaymentMethod     models.PaymentMethod `json:"payment_method"`
	ExpenseClass      models.ExpenseClass  `json:"expense_class"`
	ServiceTypeID     string               `json:"service_type_id"`
	Notes             string               `json:"notes"`
	WorkOrderID       string               `json:"work_order_id"`
	ConfirmRegenerate bool                 `json:"confirm_regenerate"`
}

type workOrderBillingRequest struct {
	WorkOrderCode     string               `json:"work_order_code"`
	Total             decimal.Decimal      `json:"total"`
	Count             int                  `json:"count"`
	FirstDueDate      *string              `json:"first_due_date"`
	AccountID         string               `json:"account_id"`
	CategoryID        string               `json:"category_id"`
	PaymentMethod     models.PaymentMethod `json:"payment_method"`
	ServiceTypeID     string               `json:"service_type_id"`
	ConfirmRegenerate bool                 `json:"confirm_regenerate"`
}

// firstDueDate parses the required first due date of a split.
func firstDueDate(raw *string) (time.Time, error) {
	d, err := parseDate("first_due_date", raw)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, models.ErrMissingDueDate.WithField("first_due_date")
	}
	return *d, nil
}

func (s *Server) handleInstallmentGenerate(w http.ResponseWriter, r *http.Request) {
	var req installmentRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	due, err := firstDueDate(req.FirstDueDate)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	result, err := s.app.InstallmentService.Generate(r.Context(), models.InstallmentRequest{
		Kind:              req.Kind,
		Total:             req.Total,
		Count:             req.Count,
		FirstDueDate:      due,
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		Description:       req.Description,
		PaymentMethod:     req.PaymentMethod,
		ExpenseClass:      req.ExpenseClass,
		ServiceTypeID:     req.ServiceTypeID,
		Notes:             req.Notes,
		WorkOrderID:       req.WorkOrderID,
		ConfirmRegenerate: req.ConfirmRegenerate,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

func (s *Server) handleWorkOrderBilling(w http.ResponseWriter, r *http.Request) {
	var req workOrderBillingRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	due, err := firstDueDate(req.FirstDueDate)
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}

	result, err := s.app.InstallmentService.BillWorkOrder(r.Context(), models.WorkOrderBilling{
		WorkOrderID:       chi.URLParam(r, "workOrderID"),
		WorkOrderCode:     req.WorkOrderCode,
		Total:             req.Total,
		Count:             req.Count,
		FirstDueDate:      due,
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		PaymentMethod:     req.PaymentMethod,
		ServiceTypeID:     req.ServiceTypeID,
		ConfirmRegenerate: req.ConfirmRegenerate,
	})
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

func (s *Server) handleBillingQueue(w http.ResponseWriter, r *http.Request) {
	txs, err := s.app.InstallmentService.BillingQueue(r.Context(), models.BillingStage(chi.URLParam(r, "stage")))
	if err != nil {
		writeServiceError(w, s.logger, err)
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}
	WriteJSON(w, http.StatusOK, txs)
}
