package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxInstallments caps how many entries one split may produce.
const MaxInstallments = 24

// InstallmentGroup is the persisted header of one split. A group stays active
// until every member is canceled; CanceledAt marks that moment.
type InstallmentGroup struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	WorkOrderID  string          `json:"work_order_id,omitempty"`
	Kind         Kind            `json:"kind"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
	FirstDueDate time.Time       `json:"first_due_date"`
	CanceledAt   *time.Time      `json:"canceled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Active reports whether any member of the group may still be billed.
func (g *InstallmentGroup) Active() bool {
	return g.CanceledAt == nil
}

// InstallmentRequest asks for a generic split, typically ad hoc expense installments.
type InstallmentRequest struct {
	Kind              Kind            `json:"kind"`
	Total             decimal.Decimal `json:"total"`
	Count             int             `json:"count"`
	FirstDueDate      time.Time       `json:"first_due_date"`
	AccountID         string          `json:"account_id"`
	CategoryID        string          `json:"category_id"`
	Description       string          `json:"description"`
	PaymentMethod     PaymentMethod   `json:"payment_method,omitempty"`
	ExpenseClass      ExpenseClass    `json:"expense_class,omitempty"`
	ServiceTypeID     string          `json:"service_type_id,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	WorkOrderID       string          `json:"work_order_id,omitempty"`
	// ConfirmRegenerate must be set to split a work order again after its group was canceled.
	ConfirmRegenerate bool            `json:"confirm_regenerate,omitempty"`
}

// WorkOrderBilling is supplied by the billing workflow when a work order closes.
// AccountID and CategoryID are optional; defaults are resolved from the ledger.
type WorkOrderBilling struct {
	WorkOrderID       string          `json:"work_order_id"`
	WorkOrderCode     string          `json:"work_order_code,omitempty"`
	Total             decimal.Decimal `json:"total"`
	Count             int             `json:"count"`
	FirstDueDate      time.Time       `json:"first_due_date"`
	AccountID         string          `json:"account_id,omitempty"`
	CategoryID        string          `json:"category_id,omitempty"`
	PaymentMethod     PaymentMethod   `json:"payment_method,omitempty"`
	ServiceTypeID     string          `json:"service_type_id,omitempty"`
	// ConfirmRegenerate must be set to bill again after a previous group was canceled.
	ConfirmRegenerate bool            `json:"confirm_regenerate"`
}

// InstallmentResult lists what a split created and what it superseded.
type InstallmentResult struct {
	GroupID        string         `json:"group_id"`
	TransactionIDs []string       `json:"transaction_ids"`
	Transactions   []*Transaction `json:"transactions"`
	SupersededIDs  []string       `json:"superseded_ids,omitempty"`
}

// InvoiceRequest attaches fiscal documents to an open installment.
type InvoiceRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	Invoice       *Document     `json:"invoice,omitempty"`
	Boleto        *Document     `json:"boleto,omitempty"`
}

// BillingStage selects a billing queue.
type BillingStage string

const (
	// StageAwaitingInvoice holds projection installments not yet invoiced.
	StageAwaitingInvoice BillingStage = "awaiting_invoice"
	// StageOpen holds invoiced installments waiting for payment.
	StageOpen BillingStage = "open"
	// StageClosed holds paid installments.
	StageClosed BillingStage = "closed"
)

// ValidBillingStage returns true for the three queues.
func ValidBillingStage(s BillingStage) bool {
	return s == StageAwaitingInvoice || s == StageOpen || s == StageClosed
}
