// Package interfaces defines service contracts for fieldledger
package interfaces

import (
	"context"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// StorageManager coordinates the ledger storage backend
type StorageManager interface {
	// Ledger returns a store whose writes commit individually.
	Ledger() LedgerStore

	// Atomic runs fn inside one write transaction. Any error returned by fn
	// rolls back every write it made; fn must only use the store it is given.
	Atomic(ctx context.Context, fn func(store LedgerStore) error) error

	// Snapshot runs fn against one consistent read view, so a report never mixes
	// state from before and after a concurrent commit.
	Snapshot(ctx context.Context, fn func(store LedgerStore) error) error

	// Lifecycle
	Close() error
}

// LedgerStore persists accounts, categories, transactions and installment groups.
// Getters return (nil, nil) when the record does not exist.
type LedgerStore interface {
	AccountStore
	CategoryStore
	TransactionStore
	InstallmentGroupStore
}

// AccountStore manages ledger accounts.
type AccountStore interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	// ListAccounts lists a user's accounts ordered by name; empty userID lists all.
	ListAccounts(ctx context.Context, userID string) ([]*models.Account, error)
	// SaveAccount inserts or updates an account. A primary account clears the flag
	// on the owner's other accounts in the same write.
	SaveAccount(ctx context.Context, account *models.Account) error
	// DeleteAccount removes an account; returns models.ErrAccountInUse when
	// transactions still reference it.
	DeleteAccount(ctx context.Context, id string) error
}

// CategoryStore manages income/expense categories.
type CategoryStore interface {
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	// ListCategories lists categories ordered by name; empty kind lists both kinds.
	ListCategories(ctx context.Context, kind models.Kind, activeOnly bool) ([]*models.Category, error)
	// SaveCategory inserts or updates a category; returns models.ErrDuplicateCategory
	// when another category has the same name and kind.
	SaveCategory(ctx context.Context, category *models.Category) error
}

// TransactionStore manages receivable and payable entries.
type TransactionStore interface {
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	// ListTransactions returns matching entries ordered by due date, then id.
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error)
	// SaveTransaction inserts or updates an entry; returns models.ErrDuplicateInvoice
	// when the invoice number is taken.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// InstallmentGroupStore manages installment group headers.
type InstallmentGroupStore interface {
	// CreateInstallmentGroup inserts a group; returns models.ErrActiveGroupExists
	// when the work order already has an active group.
	CreateInstallmentGroup(ctx context.Context, group *models.InstallmentGroup) error
	GetInstallmentGroup(ctx context.Context, id string) (*models.InstallmentGroup, error)
	// ListInstallmentGroups lists a work order's groups, newest first.
	ListInstallmentGroups(ctx context.Context, workOrderID string) ([]*models.InstallmentGroup, error)
	// CancelInstallmentGroup stamps the group as canceled, releasing the work order.
	CancelInstallmentGroup(ctx context.Context, group *models.InstallmentGroup) error
}
