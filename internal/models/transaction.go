package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction. Only StatusCanceled is set explicitly;
// the others are derived from dates on every write.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRealized Status = "realized"
	StatusOverdue  Status = "overdue"
	StatusCanceled Status = "canceled"
)

// ValidStatus returns true for the four lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusRealized, StatusOverdue, StatusCanceled:
		return true
	}
	return false
}

// PaymentMethod tags how an entry is settled.
type PaymentMethod string

const (
	PaymentPix    PaymentMethod = "pix"
	PaymentTED    PaymentMethod = "ted"
	PaymentCard   PaymentMethod = "card"
	PaymentBoleto PaymentMethod = "boleto"
)

// ValidPaymentMethod accepts the known methods and the empty tag.
func ValidPaymentMethod(p PaymentMethod) bool {
	switch p {
	case "", PaymentPix, PaymentTED, PaymentCard, PaymentBoleto:
		return true
	}
	return false
}

// ExpenseClass is an optional management-accounting tag for expenses.
type ExpenseClass string

const (
	ExpenseDirect      ExpenseClass = "direct"
	ExpenseIndirect    ExpenseClass = "indirect"
	ExpenseFixed       ExpenseClass = "fixed"
	ExpenseVariable    ExpenseClass = "variable"
	ExpenseAdmin       ExpenseClass = "admin"
	ExpenseOperational ExpenseClass = "operational"
	ExpenseFinancial   ExpenseClass = "financial"
)

var validExpenseClasses = map[ExpenseClass]bool{
	"":                 true,
	ExpenseDirect:      true,
	ExpenseIndirect:    true,
	ExpenseFixed:       true,
	ExpenseVariable:    true,
	ExpenseAdmin:       true,
	ExpenseOperational: true,
	ExpenseFinancial:   true,
}

// ValidExpenseClass accepts the known classes and the empty tag.
func ValidExpenseClass(c ExpenseClass) bool {
	return validExpenseClasses[c]
}

// RecurrencePeriod is informational; nothing schedules recurrences.
type RecurrencePeriod string

const (
	RecurrenceOnce       RecurrencePeriod = "once"
	RecurrenceMonthly    RecurrencePeriod = "monthly"
	RecurrenceBimonthly  RecurrencePeriod = "bimonthly"
	RecurrenceQuarterly  RecurrencePeriod = "quarterly"
	RecurrenceSemiannual RecurrencePeriod = "semiannual"
	RecurrenceAnnual     RecurrencePeriod = "annual"
)

// ValidRecurrencePeriod accepts the known periods and the empty tag.
func ValidRecurrencePeriod(p RecurrencePeriod) bool {
	switch p {
	case "", RecurrenceOnce, RecurrenceMonthly, RecurrenceBimonthly, RecurrenceQuarterly, RecurrenceSemiannual, RecurrenceAnnual:
		return true
	}
	return false
}

// Document is invoice (NF) or boleto metadata attached to a receivable.
type Document struct {
	Number      string          `json:"number,omitempty"`
	IssuedOn    *time.Time      `json:"issued_on,omitempty"`
	City        string          `json:"city,omitempty"`
	Description string          `json:"description,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// IsZero reports whether no document data is present.
func (d Document) IsZero() bool {
	return d.Number == "" && d.IssuedOn == nil && d.City == "" && d.Description == "" && len(d.Payload) == 0
}

// Transaction is one accounts-receivable or accounts-payable entry.
type Transaction struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	WorkOrderID      string           `json:"work_order_id,omitempty"`
	Kind             Kind             `json:"kind"`
	Status           Status           `json:"status"`
	Description      string           `json:"description"`
	Amount           decimal.Decimal  `json:"amount"`
	DueDate          time.Time        `json:"due_date"`
	PaymentDate      *time.Time       `json:"payment_date,omitempty"`
	PaymentMethod    PaymentMethod    `json:"payment_method,omitempty"`
	AccountID        string           `json:"account_id"`
	CategoryID       string           `json:"category_id"`
	Notes            string           `json:"notes,omitempty"`
	ExpenseClass     ExpenseClass     `json:"expense_class,omitempty"`
	Recurring        bool             `json:"recurring"`
	RecurrencePeriod RecurrencePeriod `json:"recurrence_period,omitempty"`
	ServiceTypeID    string           `json:"service_type_id,omitempty"`

	IsInstallment      bool   `json:"is_installment"`
	IsProjection       bool   `json:"is_projection"`
	InstallmentGroupID string `json:"installment_group_id,omitempty"`
	InstallmentNumber  int    `json:"installment_number,omitempty"`
	InstallmentTotal   int    `json:"installment_total,omitempty"`

	Invoice Document `json:"invoice"`
	Boleto  Document `json:"boleto"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRealized reports whether money has moved for this entry.
func (t *Transaction) IsRealized() bool {
	return t.Status == StatusRealized
}

// IsCanceled reports whether the entry reached the terminal state.
func (t *Transaction) IsCanceled() bool {
	return t.Status == StatusCanceled
}

// SignedAmount is the amount as it moves a balance: positive for income, negative for expense.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == KindExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Clone returns a copy that does not share date pointers with t.
func (t *Transaction) Clone() *Transaction {
	cp := *t
	if t.PaymentDate != nil {
		d := *t.PaymentDate
		cp.PaymentDate = &d
	}
	if t.Invoice.IssuedOn != nil {
		d := *t.Invoice.IssuedOn
		cp.Invoice.IssuedOn = &d
	}
	if t.Boleto.IssuedOn != nil {
		d := *t.Boleto.IssuedOn
		cp.Boleto.IssuedOn = &d
	}
	return &cp
}

// TransactionFilter narrows a transaction listing. Zero values do not filter.
type TransactionFilter struct {
	UserID             string
	AccountID          string
	CategoryID         string
	WorkOrderID        string
	InstallmentGroupID string
	InvoiceNumber      string
	Kind               Kind
	Statuses           []Status
	IsInstallment      *bool
	IsProjection       *bool
	HasInvoice         *bool
	DueFrom            *time.Time
	DueTo              *time.Time
	PaidFrom           *time.Time
	PaidTo             *time.Time
	Limit              int
}

// Matches applies the filter to a single transaction. Stores that cannot push
// every predicate down use it as the final word.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.WorkOrderID != "" && t.WorkOrderID != f.WorkOrderID {
		return false
	}
	if f.InstallmentGroupID != "" && t.InstallmentGroupID != f.InstallmentGroupID {
		return false
	}
	if f.InvoiceNumber != "" && t.Invoice.Number != f.InvoiceNumber {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.IsInstallment != nil && t.IsInstallment != *f.IsInstallment {
		return false
	}
	if f.IsProjection != nil && t.IsProjection != *f.IsProjection {
		return false
	}
	if f.HasInvoice != nil && (t.Invoice.Number != "") != *f.HasInvoice {
		return false
	}
	if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && t.DueDate.After(*f.DueTo) {
		return false
	}
	if f.PaidFrom != nil && (t.PaymentDate == nil || t.PaymentDate.Before(*f.PaidFrom)) {
		return false
	}
	if f.PaidTo != nil && (t.PaymentDate == nil || t.PaymentDate.After(*f.PaidTo)) {
		return false
	}
	return true
}

// Bool returns a pointer to b, for optional filter fields.
func Bool(b bool) *bool { return &b }
