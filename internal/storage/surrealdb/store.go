package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

// Store implements interfaces.LedgerStore. A store with a batch stages its
// writes for the enclosing Atomic block and reads its own staged state.
type Store struct {
	db       *surrealdb.DB
	logger   *common.Logger
	m        *Manager
	batch    *batch
	readOnly bool
}

var errReadOnly = errors.New("write attempted inside a read snapshot")

// write runs fn against a batch: the current one inside Atomic, else a fresh
// single-write transaction.
func (s *Store) write(ctx context.Context, fn func(b *Store) error) error {
	if s.readOnly {
		return errReadOnly
	}
	if s.batch != nil {
		return fn(s)
	}
	return s.m.Atomic(ctx, func(store interfaces.LedgerStore) error {
		return fn(store.(*Store))
	})
}

// mapCommitError turns a failed lock-record CREATE into the typed conflict.
func mapCommitError(err error) error {
	if strings.Contains(err.Error(), tableLock) {
		return models.ErrActiveGroupExists.Wrap(err)
	}
	return fmt.Errorf("failed to commit transaction: %w", err)
}

func selectOne[T any](ctx context.Context, db *surrealdb.DB, table, key string) (*T, error) {
	rec, err := surrealdb.Select[T](ctx, db, surrealmodels.NewRecordID(table, key))
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", table, err)
	}
	return rec, nil
}

func queryAll[T any](ctx context.Context, db *surrealdb.DB, sql string, vars map[string]any) ([]T, error) {
	results, err := surrealdb.Query[[]T](ctx, db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// merge overlays staged records on the rows read from the database. A staged
// nil marks a deletion.
func merge[R any](rows []R, key func(R) string, staged map[string]*R) []R {
	if len(staged) == 0 {
		return rows
	}
	out := make([]R, 0, len(rows)+len(staged))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		k := key(r)
		seen[k] = true
		if rec, ok := staged[k]; ok {
			if rec != nil {
				out = append(out, *rec)
			}
			continue
		}
		out = append(out, r)
	}
	for k, rec := range staged {
		if !seen[k] && rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// Accounts

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if s.batch != nil {
		if rec, ok := s.batch.accounts[id]; ok {
			if rec == nil {
				return nil, nil
			}
			return rec.model()
		}
	}
	rec, err := selectOne[accountRecord](ctx, s.db, tableAccount, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.model()
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*models.Account, error) {
	sql := "SELECT * FROM account"
	vars := map[string]any{}
	if userID != "" {
		sql += " WHERE user_id = $user_id"
		vars["user_id"] = userID
	}
	rows, err := queryAll[accountRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if s.batch != nil {
		rows = merge(rows, func(r accountRecord) string { return r.Key }, s.batch.accounts)
	}

	var accounts []*models.Account
	for _, r := range rows {
		if userID != "" && r.UserID != userID {
			continue
		}
		a, err := r.model()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool {
		a, b := strings.ToLower(accounts[i].Name), strings.ToLower(accounts[j].Name)
		if a != b {
			return a < b
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts, nil
}

func (s *Store) SaveAccount(ctx context.Context, a *models.Account) error {
	return s.write(ctx, func(b *Store) error {
		if a.IsPrimary {
			others, err := b.ListAccounts(ctx, a.UserID)
			if err != nil {
				return err
			}
			for _, o := range others {
				if o.ID != a.ID && o.IsPrimary {
					o.IsPrimary = false
					b.stageAccount(o)
				}
			}
		}
		b.stageAccount(a)
		return nil
	})
}

func (s *Store) stageAccount(a *models.Account) {
	rec := toAccountRecord(a)
	s.batch.accounts[a.ID] = &rec
	s.batch.upsert(tableAccount, a.ID, rec)
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	return s.write(ctx, func(b *Store) error {
		used, err := b.ListTransactions(ctx, models.TransactionFilter{AccountID: id, Limit: 1})
		if err != nil {
			return err
		}
		if len(used) > 0 {
			return models.ErrAccountInUse
		}
		b.batch.accounts[id] = nil
		b.batch.remove(tableAccount, id)
		return nil
	})
}

// Categories

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	if s.batch != nil {
		if rec, ok := s.batch.categories[id]; ok {
			if rec == nil {
				return nil, nil
			}
			return rec.model()
		}
	}
	rec, err := selectOne[categoryRecord](ctx, s.db, tableCategory, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.model()
}

func (s *Store) ListCategories(ctx context.Context, kind models.Kind, activeOnly bool) ([]*models.Category, error) {
	rows, err := queryAll[categoryRecord](ctx, s.db, "SELECT * FROM category", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if s.batch != nil {
		rows = merge(rows, func(r categoryRecord) string { return r.Key }, s.batch.categories)
	}

	var categories []*models.Category
	for _, r := range rows {
		if (kind != "" && models.Kind(r.Kind) != kind) || (activeOnly && !r.Active) {
			continue
		}
		c, err := r.model()
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := strings.ToLower(categories[i].Name), strings.ToLower(categories[j].Name)
		if a != b {
			return a < b
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

func (s *Store) SaveCategory(ctx context.Context, c *models.Category) error {
	return s.write(ctx, func(b *Store) error {
		same, err := b.ListCategories(ctx, c.Kind, false)
		if err != nil {
			return err
		}
		for _, o := range same {
			if o.ID != c.ID && strings.EqualFold(o.Name, c.Name) {
				return models.ErrDuplicateCategory
			}
		}
		rec := toCategoryRecord(c)
		b.batch.categories[c.ID] = &rec
		b.batch.upsert(tableCategory, c.ID, rec)
		return nil
	})
}

// Transactions

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	if s.batch != nil {
		if rec, ok := s.batch.entries[id]; ok {
			if rec == nil {
				return nil, nil
			}
			return rec.model()
		}
	}
	rec, err := selectOne[entryRecord](ctx, s.db, tableEntry, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.model()
}

// ListTransactions pushes the indexed equality predicates into SurrealQL and
// applies the full filter to the merged result.
func (s *Store) ListTransactions(ctx context.Context, f models.TransactionFilter) ([]*models.Transaction, error) {
	var where []string
	vars := map[string]any{}
	eq := func(field, value string) {
		if value != "" {
			where = append(where, field+" = $"+field)
			vars[field] = value
		}
	}
	eq("user_id", f.UserID)
	eq("account_id", f.AccountID)
	eq("work_order_id", f.WorkOrderID)
	eq("installment_group_id", f.InstallmentGroupID)
	if f.InvoiceNumber != "" {
		where = append(where, "invoice.number = $invoice_number")
		vars["invoice_number"] = f.InvoiceNumber
	}

	sql := "SELECT * FROM ledger_entry"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := queryAll[entryRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	if s.batch != nil {
		rows = merge(rows, func(r entryRecord) string { return r.Key }, s.batch.entries)
	}

	var txs []*models.Transaction
	for _, r := range rows {
		t, err := r.model()
		if err != nil {
			return nil, err
		}
		if f.Matches(t) {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].DueDate.Equal(txs[j].DueDate) {
			return txs[i].DueDate.Before(txs[j].DueDate)
		}
		return txs[i].ID < txs[j].ID
	})
	if f.Limit > 0 && len(txs) > f.Limit {
		txs = txs[:f.Limit]
	}
	return txs, nil
}

func (s *Store) SaveTransaction(ctx context.Context, t *models.Transaction) error {
	return s.write(ctx, func(b *Store) error {
		if t.Invoice.Number != "" {
			taken, err := b.ListTransactions(ctx, models.TransactionFilter{InvoiceNumber: t.Invoice.Number})
			if err != nil {
				return err
			}
			for _, o := range taken {
				if o.ID != t.ID {
					return models.ErrDuplicateInvoice
				}
			}
		}
		if t.WorkOrderID != "" && !t.IsInstallment && !t.IsCanceled() {
			live, err := b.ListTransactions(ctx, models.TransactionFilter{
				WorkOrderID:   t.WorkOrderID,
				IsInstallment: models.Bool(false),
				Statuses:      []models.Status{models.StatusPending, models.StatusOverdue, models.StatusRealized},
			})
			if err != nil {
				return err
			}
			for _, o := range live {
				if o.ID != t.ID {
					return models.ErrWorkOrderHasEntry
				}
			}
		}
		rec := toEntryRecord(t)
		b.batch.entries[t.ID] = &rec
		b.batch.upsert(tableEntry, t.ID, rec)
		return nil
	})
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return s.write(ctx, func(b *Store) error {
		b.batch.entries[id] = nil
		b.batch.remove(tableEntry, id)
		return nil
	})
}

// Installment groups

type lockRecord struct {
	GroupID string `json:"group_id"`
}

func (s *Store) CreateInstallmentGroup(ctx context.Context, g *models.InstallmentGroup) error {
	return s.write(ctx, func(b *Store) error {
		if g.WorkOrderID != "" {
			groups, err := b.ListInstallmentGroups(ctx, g.WorkOrderID)
			if err != nil {
				return err
			}
			for _, o := range groups {
				if o.Active() {
					return models.ErrActiveGroupExists
				}
			}
			b.batch.create(tableLock, g.WorkOrderID, lockRecord{GroupID: g.ID})
		}
		rec := toGroupRecord(g)
		b.batch.groups[g.ID] = &rec
		b.batch.create(tableGroup, g.ID, rec)
		return nil
	})
}

func (s *Store) GetInstallmentGroup(ctx context.Context, id string) (*models.InstallmentGroup, error) {
	if s.batch != nil {
		if rec, ok := s.batch.groups[id]; ok && rec != nil {
			return rec.model()
		}
	}
	rec, err := selectOne[groupRecord](ctx, s.db, tableGroup, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.model()
}

func (s *Store) ListInstallmentGroups(ctx context.Context, workOrderID string) ([]*models.InstallmentGroup, error) {
	rows, err := queryAll[groupRecord](ctx, s.db,
		"SELECT * FROM installment_group WHERE work_order_id = $work_order_id", map[string]any{"work_order_id": workOrderID})
	if err != nil {
		return nil, fmt.Errorf("failed to list installment groups: %w", err)
	}
	if s.batch != nil {
		rows = merge(rows, func(r groupRecord) string { return r.Key }, s.batch.groups)
	}

	var groups []*models.InstallmentGroup
	for _, r := range rows {
		if r.WorkOrderID != workOrderID {
			continue
		}
		g, err := r.model()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.After(groups[j].CreatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func (s *Store) CancelInstallmentGroup(ctx context.Context, g *models.InstallmentGroup) error {
	if g.CanceledAt == nil {
		return fmt.Errorf("installment group %s has no cancel time", g.ID)
	}
	return s.write(ctx, func(b *Store) error {
		current, err := b.GetInstallmentGroup(ctx, g.ID)
		if err != nil {
			return err
		}
		if current == nil || !current.Active() {
			return nil
		}
		at := *g.CanceledAt
		current.CanceledAt = &at
		rec := toGroupRecord(current)
		b.batch.groups[g.ID] = &rec
		b.batch.upsert(tableGroup, g.ID, rec)
		if current.WorkOrderID != "" {
			b.batch.remove(tableLock, current.WorkOrderID)
		}
		return nil
	})
}

// Compile-time check
var _ interfaces.LedgerStore = (*Store)(nil)
