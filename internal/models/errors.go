package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger errors so callers can pick a response without string matching.
type ErrorKind string

const (
	// KindValidation is a bad input the caller can fix.
	KindValidation ErrorKind = "validation"
	// KindConflict is a request that contradicts the current state of the ledger.
	KindConflict ErrorKind = "conflict"
	// KindNotFound is a reference to a record that does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindWarning is an idempotent no-op the caller may surface as a notice.
	KindWarning ErrorKind = "warning"
	// KindIntegrity is a broken internal invariant. Never expected; logged as a defect.
	KindIntegrity ErrorKind = "integrity"
)

// Error is the typed error returned by ledger services.
// Two Errors match under errors.Is when their codes are equal, so sentinels
// below can be compared against errors carrying extra context.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithField returns a copy of e pointing at a specific input field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e carrying an underlying cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// ErrorKindOf returns the kind of a ledger error, or "" for foreign errors.
func ErrorKindOf(err error) ErrorKind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation errors.
var (
	ErrInvalidAmount           = newError(KindValidation, "invalid_amount", "amount must be at least 0.01 with at most two decimal places")
	ErrMissingBillableAmount   = newError(KindValidation, "missing_billable_amount", "missing billable amount")
	ErrInvalidInstallmentCount = newError(KindValidation, "invalid_installment_count", "installment count must be between 1 and 24")
	ErrMissingDueDate          = newError(KindValidation, "missing_due_date", "due date is required")
	ErrPaymentBeforeDue        = newError(KindValidation, "payment_before_due", "payment date cannot be earlier than the due date")
	ErrPaymentInFuture         = newError(KindValidation, "payment_in_future", "payment date cannot be in the future")
	ErrCategoryKindMismatch    = newError(KindValidation, "category_kind_mismatch", "category kind does not match the transaction kind")
	ErrInvalidKind             = newError(KindValidation, "invalid_kind", "kind must be income or expense")
	ErrInvalidField            = newError(KindValidation, "invalid_field", "invalid value")
	ErrRequiredField           = newError(KindValidation, "required_field", "value is required")
	ErrNoDefaultReceivable     = newError(KindValidation, "no_default_receivable", "no default receivable account/category configured")
	ErrInvalidStatementGroup   = newError(KindValidation, "invalid_statement_group", "income statement group does not fit the category kind")
	ErrInvalidRange            = newError(KindValidation, "invalid_range", "report range start must not be after its end")
	ErrInvoiceRequired         = newError(KindValidation, "invoice_required", "provide an invoice or a boleto")
	ErrInvoiceIssuedInPast     = newError(KindValidation, "invoice_issued_in_past", "invoice issue date cannot be in the past")
	ErrBoletoNotAllowed        = newError(KindValidation, "boleto_not_allowed", "boleto data requires payment method boleto")
)

// State conflict errors.
var (
	ErrTransactionCanceled      = newError(KindConflict, "transaction_canceled", "transaction is canceled")
	ErrCancelRealized           = newError(KindConflict, "cancel_realized", "a realized transaction cannot be canceled")
	ErrCancelNonInstallment     = newError(KindConflict, "cancel_non_installment", "only installment entries can be canceled")
	ErrDeleteRealized           = newError(KindConflict, "delete_realized", "a realized transaction cannot be deleted")
	ErrDeleteInstallment        = newError(KindConflict, "delete_installment", "installments are canceled, never deleted")
	ErrActiveGroupExists        = newError(KindConflict, "active_group_exists", "work order already has an active installment group")
	ErrRegenerationUnconfirmed  = newError(KindConflict, "regeneration_unconfirmed", "work order has a canceled installment group; regeneration requires confirmation")
	ErrWorkOrderAlreadyPaid     = newError(KindConflict, "work_order_already_paid", "work order already has a realized receipt")
	ErrWorkOrderHasEntry        = newError(KindConflict, "work_order_has_entry", "work order already has a non-installment transaction")
	ErrProjectionNotPayable     = newError(KindConflict, "projection_not_payable", "projection installments must be invoiced before they can be realized")
	ErrAccountInUse             = newError(KindConflict, "account_in_use", "account has transactions and cannot be deleted")
	ErrDuplicateCategory        = newError(KindConflict, "duplicate_category", "a category with this name and kind already exists")
	ErrDuplicateInvoice         = newError(KindConflict, "duplicate_invoice", "invoice number is already in use")
	ErrInvoiceNotAllowed        = newError(KindConflict, "invoice_not_allowed", "invoices can only be attached to open installments")
	ErrInstallmentFieldsManaged = newError(KindConflict, "installment_fields_managed", "installment fields are managed by the installment generator")
)

// Not found errors.
var (
	ErrAccountNotFound     = newError(KindNotFound, "account_not_found", "account not found")
	ErrCategoryNotFound    = newError(KindNotFound, "category_not_found", "category not found")
	ErrTransactionNotFound = newError(KindNotFound, "transaction_not_found", "transaction not found")
)

// Warnings: the operation left the entry as it was.
var (
	ErrAlreadyRealized = newError(KindWarning, "already_realized", "transaction is already realized")
	ErrNotRealized     = newError(KindWarning, "not_realized", "transaction is not realized")
)

// Integrity errors.
var (
	ErrSplitMismatch = newError(KindIntegrity, "split_mismatch", "installment amounts do not add up to the total")
)
