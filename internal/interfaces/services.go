package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// LedgerService manages accounts, categories and the transaction lifecycle
type LedgerService interface {
	// Accounts
	SaveAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	AccountBalance(ctx context.Context, id string) (decimal.Decimal, error)
	AccountBalances(ctx context.Context) (*models.AccountBalances, error)

	// Categories
	SaveCategory(ctx context.Context, category *models.Category) (*models.Category, error)
	ListCategories(ctx context.Context, kind models.Kind, activeOnly bool) ([]*models.Category, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error

	// Lifecycle
	MarkRealized(ctx context.Context, id string, paymentDate *time.Time) (*models.Transaction, error)
	MarkPending(ctx context.Context, id string) (*models.Transaction, error)
	Cancel(ctx context.Context, id string) (*models.Transaction, error)
	RefreshStatuses(ctx context.Context) (int, error)
}

// InstallmentService splits totals into installments and manages their billing documents
type InstallmentService interface {
	// Generate creates a generic split (ad hoc installments).
	Generate(ctx context.Context, req models.InstallmentRequest) (*models.InstallmentResult, error)
	// BillWorkOrder creates receivable installments for a closed work order,
	// superseding its earlier unrealized entry.
	BillWorkOrder(ctx context.Context, req models.WorkOrderBilling) (*models.InstallmentResult, error)
	// AttachInvoice records invoice/boleto data on an open installment.
	AttachInvoice(ctx context.Context, transactionID string, req models.InvoiceRequest) (*models.Transaction, error)
	// BillingQueue lists receivable installments at a billing stage.
	BillingQueue(ctx context.Context, stage models.BillingStage) ([]*models.Transaction, error)
}

// ReportService builds the income statement, cashflow sheet and headline summary
type ReportService interface {
	BuildDRE(ctx context.Context, query models.ReportQuery) (*models.DRE, error)
	BuildCashflow(ctx context.Context, query models.ReportQuery) (*models.Cashflow, error)
	BuildSummary(ctx context.Context, query models.ReportQuery) (*models.FinancialSummary, error)
}

// BankDirectory resolves COMPE bank codes to names
type BankDirectory interface {
	// Lookup finds a bank by code ("1", "001" and "0001" are the same bank).
	Lookup(ctx context.Context, code string) (*models.Bank, bool)
	// List returns the catalog sorted by name.
	List(ctx context.Context) []models.Bank
}
