package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

const (
	maxDescriptionLength = 255
	maxNameLength        = 100
)

// ValidatePaymentDate checks that a payment happened on or after the due date and not after today.
func ValidatePaymentDate(due, paid, today time.Time) error {
	if paid.Before(due) {
		return models.ErrPaymentBeforeDue.WithField("payment_date")
	}
	if paid.After(today) {
		return models.ErrPaymentInFuture.WithField("payment_date")
	}
	return nil
}

// validateFields checks the values a transaction carries on its own.
func validateFields(tx *models.Transaction, today time.Time) error {
	if !models.ValidKind(tx.Kind) {
		return models.ErrInvalidKind.WithField("kind")
	}
	desc := strings.TrimSpace(tx.Description)
	if desc == "" {
		return models.ErrRequiredField.WithField("description")
	}
	if len(desc) > maxDescriptionLength {
		return models.ErrInvalidField.WithField("description").
			WithMessage("description exceeds %d characters", maxDescriptionLength)
	}
	if !models.ValidAmount(tx.Amount) {
		return models.ErrInvalidAmount.WithField("amount")
	}
	if tx.DueDate.IsZero() {
		return models.ErrMissingDueDate.WithField("due_date")
	}
	if !models.ValidPaymentMethod(tx.PaymentMethod) {
		return models.ErrInvalidField.WithField("payment_method").
			WithMessage("invalid payment method %q; must be pix, ted, card or boleto", tx.PaymentMethod)
	}
	if !models.ValidExpenseClass(tx.ExpenseClass) {
		return models.ErrInvalidField.WithField("expense_class").
			WithMessage("invalid expense class %q", tx.ExpenseClass)
	}
	if tx.ExpenseClass != "" && tx.Kind != models.KindExpense {
		return models.ErrInvalidField.WithField("expense_class").
			WithMessage("expense class applies to expenses only")
	}
	if !models.ValidRecurrencePeriod(tx.RecurrencePeriod) {
		return models.ErrInvalidField.WithField("recurrence_period").
			WithMessage("invalid recurrence period %q", tx.RecurrencePeriod)
	}
	if tx.PaymentDate != nil {
		if err := ValidatePaymentDate(tx.DueDate, *tx.PaymentDate, today); err != nil {
			return err
		}
	}
	return nil
}

// ValidateReferences checks that the account and category exist and that the
// category kind matches the transaction kind.
func ValidateReferences(ctx context.Context, store interfaces.LedgerStore, tx *models.Transaction) error {
	if tx.AccountID == "" {
		return models.ErrRequiredField.WithField("account_id")
	}
	account, err := store.GetAccount(ctx, tx.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return models.ErrAccountNotFound.WithField("account_id")
	}

	if tx.CategoryID == "" {
		return models.ErrRequiredField.WithField("category_id")
	}
	category, err := store.GetCategory(ctx, tx.CategoryID)
	if err != nil {
		return fmt.Errorf("failed to load category: %w", err)
	}
	if category == nil {
		return models.ErrCategoryNotFound.WithField("category_id")
	}
	if category.Kind != tx.Kind {
		return models.ErrCategoryKindMismatch.WithField("category_id")
	}
	return nil
}

// ValidateTransaction runs every write-time check for a transaction.
func ValidateTransaction(ctx context.Context, store interfaces.LedgerStore, tx *models.Transaction, today time.Time) error {
	if err := validateFields(tx, today); err != nil {
		return err
	}
	return ValidateReferences(ctx, store, tx)
}

func validateAccount(a *models.Account) error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return models.ErrRequiredField.WithField("name")
	}
	if len(name) > maxNameLength {
		return models.ErrInvalidField.WithField("name").WithMessage("name exceeds %d characters", maxNameLength)
	}
	if !models.ValidAccountType(a.Type) {
		return models.ErrInvalidField.WithField("type").
			WithMessage("invalid account type %q; must be checking, savings, cash, investment or other", a.Type)
	}
	if !a.OpeningBalance.Equal(a.OpeningBalance.Truncate(2)) {
		return models.ErrInvalidField.WithField("opening_balance").
			WithMessage("opening balance allows at most two decimal places")
	}
	return nil
}

func validateCategory(c *models.Category) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return models.ErrRequiredField.WithField("name")
	}
	if len(name) > maxNameLength {
		return models.ErrInvalidField.WithField("name").WithMessage("name exceeds %d characters", maxNameLength)
	}
	if !models.ValidKind(c.Kind) {
		return models.ErrInvalidKind.WithField("kind")
	}
	if c.StatementGroup != "" && !models.StatementGroupFits(c.StatementGroup, c.Kind) {
		return models.ErrInvalidStatementGroup.WithField("statement_group")
	}
	return nil
}
