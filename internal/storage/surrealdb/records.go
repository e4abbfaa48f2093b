package surrealdb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// Records keep money, dates and timestamps as strings: amounts stay exact and
// YYYY-MM-DD dates compare correctly as text inside SurrealQL.
// The record id lives in "key"; the SurrealDB id field is left undecoded.

const timestampLayout = time.RFC3339Nano

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatDatePtr(d *time.Time) string {
	if d == nil {
		return ""
	}
	return models.FormatDate(*d)
}

func parseDatePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type accountRecord struct {
	Key            string `json:"key"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	BankCode       string `json:"bank_code"`
	BankName       string `json:"bank_name"`
	Agency         string `json:"agency"`
	AgencyDigit    string `json:"agency_digit"`
	Number         string `json:"number"`
	NumberDigit    string `json:"number_digit"`
	Type           string `json:"type"`
	OpeningBalance string `json:"opening_balance"`
	Active         bool   `json:"active"`
	IsPrimary      bool   `json:"is_primary"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toAccountRecord(a *models.Account) accountRecord {
	return accountRecord{
		Key:            a.ID,
		UserID:         a.UserID,
		Name:           a.Name,
		BankCode:       a.BankCode,
		BankName:       a.BankName,
		Agency:         a.Agency,
		AgencyDigit:    a.AgencyDigit,
		Number:         a.Number,
		NumberDigit:    a.NumberDigit,
		Type:           string(a.Type),
		OpeningBalance: a.OpeningBalance.String(),
		Active:         a.Active,
		IsPrimary:      a.IsPrimary,
		CreatedAt:      formatTimestamp(a.CreatedAt),
		UpdatedAt:      formatTimestamp(a.UpdatedAt),
	}
}

func (r accountRecord) model() (*models.Account, error) {
	opening, err := decimal.NewFromString(r.OpeningBalance)
	if err != nil {
		return nil, fmt.Errorf("account %s: invalid opening balance %q: %w", r.Key, r.OpeningBalance, err)
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &models.Account{
		ID:             r.Key,
		UserID:         r.UserID,
		Name:           r.Name,
		BankCode:       r.BankCode,
		BankName:       r.BankName,
		Agency:         r.Agency,
		AgencyDigit:    r.AgencyDigit,
		Number:         r.Number,
		NumberDigit:    r.NumberDigit,
		Type:           models.AccountType(r.Type),
		OpeningBalance: opening,
		Active:         r.Active,
		IsPrimary:      r.IsPrimary,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}, nil
}

type categoryRecord struct {
	Key            string `json:"key"`
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	StatementGroup string `json:"statement_group"`
	Active         bool   `json:"active"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toCategoryRecord(c *models.Category) categoryRecord {
	return categoryRecord{
		Key:            c.ID,
		Name:           c.Name,
		Kind:           string(c.Kind),
		StatementGroup: string(c.StatementGroup),
		Active:         c.Active,
		CreatedAt:      formatTimestamp(c.CreatedAt),
		UpdatedAt:      formatTimestamp(c.UpdatedAt),
	}
}

func (r categoryRecord) model() (*models.Category, error) {
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &models.Category{
		ID:             r.Key,
		Name:           r.Name,
		Kind:           models.Kind(r.Kind),
		StatementGroup: models.StatementGroup(r.StatementGroup),
		Active:         r.Active,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}, nil
}

type groupRecord struct {
	Key          string `json:"key"`
	UserID       string `json:"user_id"`
	WorkOrderID  string `json:"work_order_id"`
	Kind         string `json:"kind"`
	Total        string `json:"total"`
	Count        int    `json:"count"`
	FirstDueDate string `json:"first_due_date"`
	CanceledAt   string `json:"canceled_at"`
	CreatedAt    string `json:"created_at"`
}

func toGroupRecord(g *models.InstallmentGroup) groupRecord {
	r := groupRecord{
		Key:          g.ID,
		UserID:       g.UserID,
		WorkOrderID:  g.WorkOrderID,
		Kind:         string(g.Kind),
		Total:        g.Total.String(),
		Count:        g.Count,
		FirstDueDate: models.FormatDate(g.FirstDueDate),
		CreatedAt:    formatTimestamp(g.CreatedAt),
	}
	if g.CanceledAt != nil {
		r.CanceledAt = formatTimestamp(*g.CanceledAt)
	}
	return r
}

func (r groupRecord) model() (*models.InstallmentGroup, error) {
	total, err := decimal.NewFromString(r.Total)
	if err != nil {
		return nil, fmt.Errorf("installment group %s: invalid total %q: %w", r.Key, r.Total, err)
	}
	first, err := models.ParseDate(r.FirstDueDate)
	if err != nil {
		return nil, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	g := &models.InstallmentGroup{
		ID:           r.Key,
		UserID:       r.UserID,
		WorkOrderID:  r.WorkOrderID,
		Kind:         models.Kind(r.Kind),
		Total:        total,
		Count:        r.Count,
		FirstDueDate: first,
		CreatedAt:    created,
	}
	if r.CanceledAt != "" {
		at, err := parseTimestamp(r.CanceledAt)
		if err != nil {
			return nil, err
		}
		g.CanceledAt = &at
	}
	return g, nil
}

type documentRecord struct {
	Number      string `json:"number"`
	IssuedOn    string `json:"issued_on"`
	City        string `json:"city"`
	Description string `json:"description"`
	Payload     string `json:"payload"`
}

func toDocumentRecord(d models.Document) documentRecord {
	return documentRecord{
		Number:      d.Number,
		IssuedOn:    formatDatePtr(d.IssuedOn),
		City:        d.City,
		Description: d.Description,
		Payload:     string(d.Payload),
	}
}

func (r documentRecord) model() (models.Document, error) {
	issued, err := parseDatePtr(r.IssuedOn)
	if err != nil {
		return models.Document{}, err
	}
	d := models.Document{
		Number:      r.Number,
		IssuedOn:    issued,
		City:        r.City,
		Description: r.Description,
	}
	if r.Payload != "" {
		d.Payload = json.RawMessage(r.Payload)
	}
	return d, nil
}

type entryRecord struct {
	Key                string         `json:"key"`
	UserID             string         `json:"user_id"`
	WorkOrderID        string         `json:"work_order_id"`
	Kind               string         `json:"kind"`
	Status             string         `json:"status"`
	Description        string         `json:"description"`
	Amount             string         `json:"amount"`
	DueDate            string         `json:"due_date"`
	PaymentDate        string         `json:"payment_date"`
	PaymentMethod      string         `json:"payment_method"`
	AccountID          string         `json:"account_id"`
	CategoryID         string         `json:"category_id"`
	Notes              string         `json:"notes"`
	ExpenseClass       string         `json:"expense_class"`
	Recurring          bool           `json:"recurring"`
	RecurrencePeriod   string         `json:"recurrence_period"`
	ServiceTypeID      string         `json:"service_type_id"`
	IsInstallment      bool           `json:"is_installment"`
	IsProjection       bool           `json:"is_projection"`
	InstallmentGroupID string         `json:"installment_group_id"`
	InstallmentNumber  int            `json:"installment_number"`
	InstallmentTotal   int            `json:"installment_total"`
	Invoice            documentRecord `json:"invoice"`
	Boleto             documentRecord `json:"boleto"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
}

func toEntryRecord(t *models.Transaction) entryRecord {
	return entryRecord{
		Key:                t.ID,
		UserID:             t.UserID,
		WorkOrderID:        t.WorkOrderID,
		Kind:               string(t.Kind),
		Status:             string(t.Status),
		Description:        t.Description,
		Amount:             t.Amount.String(),
		DueDate:            models.FormatDate(t.DueDate),
		PaymentDate:        formatDatePtr(t.PaymentDate),
		PaymentMethod:      string(t.PaymentMethod),
		AccountID:          t.AccountID,
		CategoryID:         t.CategoryID,
		Notes:              t.Notes,
		ExpenseClass:       string(t.ExpenseClass),
		Recurring:          t.Recurring,
		RecurrencePeriod:   string(t.RecurrencePeriod),
		ServiceTypeID:      t.ServiceTypeID,
		IsInstallment:      t.IsInstallment,
		IsProjection:       t.IsProjection,
		InstallmentGroupID: t.InstallmentGroupID,
		InstallmentNumber:  t.InstallmentNumber,
		InstallmentTotal:   t.InstallmentTotal,
		Invoice:            toDocumentRecord(t.Invoice),
		Boleto:             toDocumentRecord(t.Boleto),
		CreatedAt:          formatTimestamp(t.CreatedAt),
		UpdatedAt:          formatTimestamp(t.UpdatedAt),
	}
}

func (r entryRecord) model() (*models.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: invalid amount %q: %w", r.Key, r.Amount, err)
	}
	due, err := models.ParseDate(r.DueDate)
	if err != nil {
		return nil, err
	}
	paid, err := parseDatePtr(r.PaymentDate)
	if err != nil {
		return nil, err
	}
	invoice, err := r.Invoice.model()
	if err != nil {
		return nil, err
	}
	boleto, err := r.Boleto.model()
	if err != nil {
		return nil, err
	}
	created, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &models.Transaction{
		ID:                 r.Key,
		UserID:             r.UserID,
		WorkOrderID:        r.WorkOrderID,
		Kind:               models.Kind(r.Kind),
		Status:             models.Status(r.Status),
		Description:        r.Description,
		Amount:             amount,
		DueDate:            due,
		PaymentDate:        paid,
		PaymentMethod:      models.PaymentMethod(r.PaymentMethod),
		AccountID:          r.AccountID,
		CategoryID:         r.CategoryID,
		Notes:              r.Notes,
		ExpenseClass:       models.ExpenseClass(r.ExpenseClass),
		Recurring:          r.Recurring,
		RecurrencePeriod:   models.RecurrencePeriod(r.RecurrencePeriod),
		ServiceTypeID:      r.ServiceTypeID,
		IsInstallment:      r.IsInstallment,
		IsProjection:       r.IsProjection,
		InstallmentGroupID: r.InstallmentGroupID,
		InstallmentNumber:  r.InstallmentNumber,
		InstallmentTotal:   r.InstallmentTotal,
		Invoice:            invoice,
		Boleto:             boleto,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}, nil
}
