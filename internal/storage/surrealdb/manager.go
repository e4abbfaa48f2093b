// Package surrealdb implements ledger storage on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
)

// Table names.
const (
	tableAccount  = "account"
	tableCategory = "category"
	tableGroup    = "installment_group"
	tableEntry    = "ledger_entry"
	// tableLock holds one record per work order with an active installment group.
	// CREATE fails when the record exists, so a second active group cannot commit.
	tableLock = "installment_lock"
)

var schema = []string{
	"DEFINE TABLE IF NOT EXISTS account SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS category SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS installment_group SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS ledger_entry SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS installment_lock SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS idx_account_user ON TABLE account FIELDS user_id",
	"DEFINE INDEX IF NOT EXISTS idx_group_work_order ON TABLE installment_group FIELDS work_order_id",
	"DEFINE INDEX IF NOT EXISTS idx_entry_user_due ON TABLE ledger_entry FIELDS user_id, due_date",
	"DEFINE INDEX IF NOT EXISTS idx_entry_work_order ON TABLE ledger_entry FIELDS work_order_id",
	"DEFINE INDEX IF NOT EXISTS idx_entry_group ON TABLE ledger_entry FIELDS installment_group_id",
	"DEFINE INDEX IF NOT EXISTS idx_entry_account ON TABLE ledger_entry FIELDS account_id",
}

// Manager implements interfaces.StorageManager using SurrealDB.
//
// Atomic buffers writes and sends them as one BEGIN/COMMIT block. Writers in
// this process are serialised by mu, and Snapshot holds the read side so a
// report never observes half of a commit.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger
	mu     sync.RWMutex
}

// NewManager connects to the SurrealDB configured in storage.surrealdb.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()
	cfg := config.Storage.SurrealDB

	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	m, err := newManager(ctx, db, logger)
	if err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

// newManager defines the schema on an already selected database.
func newManager(ctx context.Context, db *surrealdb.DB, logger *common.Logger) (*Manager, error) {
	for _, sql := range schema {
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to apply schema %q: %w", sql, err)
		}
	}
	return &Manager{db: db, logger: logger}, nil
}

// Ledger returns a store whose writes commit individually.
func (m *Manager) Ledger() interfaces.LedgerStore {
	return &Store{db: m.db, logger: m.logger, m: m}
}

// Atomic runs fn against a buffering store and commits every staged write in
// one SurrealDB transaction when fn succeeds.
func (m *Manager) Atomic(ctx context.Context, fn func(store interfaces.LedgerStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := &Store{db: m.db, logger: m.logger, m: m, batch: newBatch()}
	if err := fn(b); err != nil {
		return err
	}
	return b.batch.commit(ctx, m.db)
}

// Snapshot runs fn while no Atomic block can commit.
func (m *Manager) Snapshot(ctx context.Context, fn func(store interfaces.LedgerStore) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&Store{db: m.db, logger: m.logger, m: m, readOnly: true})
}

// Close closes the connection.
func (m *Manager) Close() error {
	return m.db.Close(context.Background())
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)

// statement is one staged SurrealQL statement.
type statement struct {
	sql string
}

// batch collects the statements and pending state of one Atomic block.
type batch struct {
	statements []statement
	vars       map[string]any
	seq        int

	accounts   map[string]*accountRecord
	categories map[string]*categoryRecord
	groups     map[string]*groupRecord
	entries    map[string]*entryRecord
}

func newBatch() *batch {
	return &batch{
		vars:       make(map[string]any),
		accounts:   make(map[string]*accountRecord),
		categories: make(map[string]*categoryRecord),
		groups:     make(map[string]*groupRecord),
		entries:    make(map[string]*entryRecord),
	}
}

// bind registers a value and returns its parameter name.
func (b *batch) bind(v any) string {
	b.seq++
	name := fmt.Sprintf("p%d", b.seq)
	b.vars[name] = v
	return "$" + name
}

func (b *batch) upsert(table, key string, content any) {
	b.statements = append(b.statements, statement{
		sql: fmt.Sprintf("UPSERT type::record('%s', %s) CONTENT %s", table, b.bind(key), b.bind(content)),
	})
}

func (b *batch) create(table, key string, content any) {
	b.statements = append(b.statements, statement{
		sql: fmt.Sprintf("CREATE type::record('%s', %s) CONTENT %s", table, b.bind(key), b.bind(content)),
	})
}

func (b *batch) remove(table, key string) {
	b.statements = append(b.statements, statement{
		sql: fmt.Sprintf("DELETE type::record('%s', %s)", table, b.bind(key)),
	})
}

func (b *batch) commit(ctx context.Context, db *surrealdb.DB) error {
	if len(b.statements) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("BEGIN TRANSACTION;\n")
	for _, st := range b.statements {
		sb.WriteString(st.sql)
		sb.WriteString(";\n")
	}
	sb.WriteString("COMMIT TRANSACTION;")

	if _, err := surrealdb.Query[any](ctx, db, sb.String(), b.vars); err != nil {
		return mapCommitError(err)
	}
	return nil
}
