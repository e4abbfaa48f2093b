package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

var transactionColumnList = []string{
	"id", "user_id", "work_order_id", "kind", "status", "description", "amount",
	"due_date", "payment_date", "payment_method", "account_id", "category_id",
	"notes", "expense_class", "recurring", "recurrence_period", "service_type_id",
	"is_installment", "is_projection", "installment_group_id", "installment_number", "installment_total",
	"invoice_number", "invoice_issued_on", "invoice_city", "invoice_description", "invoice_payload",
	"boleto_number", "boleto_issued_on", "created_at", "updated_at",
}

var (
	transactionColumns = strings.Join(transactionColumnList, ", ")
	transactionUpsert  = buildTransactionUpsert()
)

func buildTransactionUpsert() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(transactionColumnList)), ", ")
	var updates []string
	for _, col := range transactionColumnList {
		if col == "id" || col == "created_at" {
			continue
		}
		updates = append(updates, col+" = excluded."+col)
	}
	return "INSERT INTO transactions (" + transactionColumns + ") VALUES (" + placeholders + ")" +
		" ON CONFLICT(id) DO UPDATE SET " + strings.Join(updates, ", ")
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t                                       models.Transaction
		kind, status, method, class, recurrence string
		amount                                  decimal.Decimal
		dueDate, createdAt, updatedAt           string
		paymentDate, groupID, invoiceNumber     sql.NullString
		invoiceIssued, invoicePayload           sql.NullString
		boletoIssued                            sql.NullString
		recurring, installment, projection      int
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.WorkOrderID, &kind, &status, &t.Description, &amount,
		&dueDate, &paymentDate, &method, &t.AccountID, &t.CategoryID,
		&t.Notes, &class, &recurring, &recurrence, &t.ServiceTypeID,
		&installment, &projection, &groupID, &t.InstallmentNumber, &t.InstallmentTotal,
		&invoiceNumber, &invoiceIssued, &t.Invoice.City, &t.Invoice.Description, &invoicePayload,
		&t.Boleto.Number, &boletoIssued, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	t.Kind = models.Kind(kind)
	t.Status = models.Status(status)
	t.Amount = amount
	t.PaymentMethod = models.PaymentMethod(method)
	t.ExpenseClass = models.ExpenseClass(class)
	t.RecurrencePeriod = models.RecurrencePeriod(recurrence)
	t.Recurring = recurring == 1
	t.IsInstallment = installment == 1
	t.IsProjection = projection == 1
	t.InstallmentGroupID = groupID.String
	t.Invoice.Number = invoiceNumber.String
	if invoicePayload.Valid && invoicePayload.String != "" {
		t.Invoice.Payload = json.RawMessage(invoicePayload.String)
	}

	var err error
	if t.DueDate, err = models.ParseDate(dueDate); err != nil {
		return nil, err
	}
	if t.PaymentDate, err = models.ParseDatePtr(ptrFromNull(paymentDate)); err != nil {
		return nil, err
	}
	if t.Invoice.IssuedOn, err = models.ParseDatePtr(ptrFromNull(invoiceIssued)); err != nil {
		return nil, err
	}
	if t.Boleto.IssuedOn, err = models.ParseDatePtr(ptrFromNull(boletoIssued)); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// buildTransactionWhere translates a filter into SQL predicates. Dates are stored
// as YYYY-MM-DD, so string comparison orders them chronologically.
func buildTransactionWhere(f models.TransactionFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, values ...any) {
		clauses = append(clauses, clause)
		args = append(args, values...)
	}

	if f.UserID != "" {
		add("user_id = ?", f.UserID)
	}
	if f.AccountID != "" {
		add("account_id = ?", f.AccountID)
	}
	if f.CategoryID != "" {
		add("category_id = ?", f.CategoryID)
	}
	if f.WorkOrderID != "" {
		add("work_order_id = ?", f.WorkOrderID)
	}
	if f.InstallmentGroupID != "" {
		add("installment_group_id = ?", f.InstallmentGroupID)
	}
	if f.InvoiceNumber != "" {
		add("invoice_number = ?", f.InvoiceNumber)
	}
	if f.Kind != "" {
		add("kind = ?", string(f.Kind))
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		values := make([]any, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			values[i] = string(st)
		}
		add("status IN ("+strings.Join(marks, ", ")+")", values...)
	}
	if f.IsInstallment != nil {
		add("is_installment = ?", boolInt(*f.IsInstallment))
	}
	if f.IsProjection != nil {
		add("is_projection = ?", boolInt(*f.IsProjection))
	}
	if f.HasInvoice != nil {
		if *f.HasInvoice {
			add("invoice_number IS NOT NULL")
		} else {
			add("invoice_number IS NULL")
		}
	}
	if f.DueFrom != nil {
		add("due_date >= ?", models.FormatDate(*f.DueFrom))
	}
	if f.DueTo != nil {
		add("due_date <= ?", models.FormatDate(*f.DueTo))
	}
	if f.PaidFrom != nil {
		add("payment_date IS NOT NULL AND payment_date >= ?", models.FormatDate(*f.PaidFrom))
	}
	if f.PaidTo != nil {
		add("payment_date IS NOT NULL AND payment_date <= ?", models.FormatDate(*f.PaidTo))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) ListTransactions(ctx context.Context, f models.TransactionFilter) ([]*models.Transaction, error) {
	where, args := buildTransactionWhere(f)
	query := "SELECT " + transactionColumns + " FROM transactions" + where + " ORDER BY due_date, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Store) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	var payload sql.NullString
	if len(t.Invoice.Payload) > 0 {
		payload = sql.NullString{String: string(t.Invoice.Payload), Valid: true}
	}

	_, err := s.exec(ctx, transactionUpsert,
		t.ID, t.UserID, t.WorkOrderID, string(t.Kind), string(t.Status), t.Description, t.Amount.String(),
		models.FormatDate(t.DueDate), nullPtr(models.FormatDatePtr(t.PaymentDate)), string(t.PaymentMethod),
		t.AccountID, t.CategoryID,
		t.Notes, string(t.ExpenseClass), boolInt(t.Recurring), string(t.RecurrencePeriod), t.ServiceTypeID,
		boolInt(t.IsInstallment), boolInt(t.IsProjection), nullString(t.InstallmentGroupID),
		t.InstallmentNumber, t.InstallmentTotal,
		nullString(t.Invoice.Number), nullPtr(models.FormatDatePtr(t.Invoice.IssuedOn)),
		t.Invoice.City, t.Invoice.Description, payload,
		t.Boleto.Number, nullPtr(models.FormatDatePtr(t.Boleto.IssuedOn)),
		formatTimestamp(t.CreatedAt), formatTimestamp(t.UpdatedAt))
	if err != nil {
		switch {
		case isUniqueViolation(err, "transactions.invoice_number"):
			return models.ErrDuplicateInvoice.Wrap(err)
		case isUniqueViolation(err, "transactions.work_order_id"):
			return models.ErrWorkOrderHasEntry.Wrap(err)
		case isForeignKeyViolation(err):
			return fmt.Errorf("transaction references a missing account, category or group: %w", err)
		}
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}
